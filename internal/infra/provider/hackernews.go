package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/resilience/circuitbreaker"
	"technews-bot/internal/resilience/retry"
	"technews-bot/internal/repository"
	usecase "technews-bot/internal/usecase/provider"
)

// hnCategories maps user-facing category names to API endpoints.
var hnCategories = map[string]string{
	"new":  "newstories.json",
	"top":  "topstories.json",
	"best": "beststories.json",
}

// HackerNewsConfig configures the HackerNews provider.
type HackerNewsConfig struct {
	// BaseURL is the API root. Defaults to the public Firebase endpoint.
	BaseURL string

	// DefaultCategory is used by GetNews when no category is requested.
	// One of "new", "top", "best". Defaults to "new".
	DefaultCategory string

	// Selection picks the unseen candidate: first in snapshot order or
	// a random one. Defaults to SelectionFirst.
	Selection usecase.Selection
}

// HackerNews is the API-style provider. It snapshots the story-ID lists of
// up to three endpoint categories and resolves a chosen ID to title+link
// with a second round-trip.
type HackerNews struct {
	cfg       HackerNewsConfig
	client    *http.Client
	store     repository.BlobStore
	blacklist *usecase.Blacklist
	breaker   *circuitbreaker.CircuitBreaker
	retryCfg  retry.Config

	// mu makes "select unseen + blacklist" one atomic unit, so overlapping
	// digest cycles never pick the same story.
	mu sync.Mutex
}

// NewHackerNews creates the HackerNews provider backed by store.
func NewHackerNews(cfg HackerNewsConfig, client *http.Client, store repository.BlobStore) (*HackerNews, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://hacker-news.firebaseio.com/v0"
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "new"
	}
	if _, ok := hnCategories[cfg.DefaultCategory]; !ok {
		return nil, fmt.Errorf("hackernews: %w: %q", entity.ErrUnknownCategory, cfg.DefaultCategory)
	}
	if cfg.Selection == "" {
		cfg.Selection = usecase.SelectionFirst
	}
	if !cfg.Selection.Valid() {
		return nil, fmt.Errorf("hackernews: invalid selection mode %q", cfg.Selection)
	}
	hn := &HackerNews{
		cfg:      cfg,
		client:   client,
		store:    store,
		breaker:  circuitbreaker.New(circuitbreaker.APIFetchConfig("hackernews-api")),
		retryCfg: retry.APIFetchConfig(),
	}
	hn.blacklist = usecase.NewBlacklist(store, hn.Name()+"/blacklist.json")
	return hn, nil
}

// Name implements provider.Provider.
func (h *HackerNews) Name() string { return "HackerNews" }

// Categories lists the category names this provider serves.
func (h *HackerNews) Categories() []string {
	return []string{"new", "top", "best"}
}

// UpdateNews refreshes the snapshot of every category. Categories fail
// independently: a failed download leaves that category's previous snapshot
// intact and does not block the others. An error is returned only when no
// category could be refreshed at all.
func (h *HackerNews) UpdateNews(ctx context.Context) error {
	var failed []error
	for category, endpoint := range hnCategories {
		if err := h.updateCategory(ctx, category, endpoint); err != nil {
			slog.Warn("snapshot refresh failed, keeping previous snapshot",
				slog.String("provider", h.Name()),
				slog.String("category", category),
				slog.Any("error", err))
			failed = append(failed, fmt.Errorf("%s: %w", category, err))
		}
	}
	if len(failed) == len(hnCategories) {
		return fmt.Errorf("hackernews update: all categories failed: %w", errors.Join(failed...))
	}
	return nil
}

// updateCategory downloads one ID list and stores it verbatim after
// validating that it parses as a JSON array of integers.
func (h *HackerNews) updateCategory(ctx context.Context, category, endpoint string) error {
	url := h.cfg.BaseURL + "/" + endpoint
	body, err := h.fetch(ctx, "update", url)
	if err != nil {
		return err
	}
	var ids []int64
	if err := json.Unmarshal(body, &ids); err != nil {
		return fmt.Errorf("decode id list: %w", err)
	}
	key := h.Name() + "/" + category + ".json"
	if err := h.store.Store(ctx, key, body); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	slog.Info("snapshot refreshed",
		slog.String("provider", h.Name()),
		slog.String("category", category),
		slog.Int("candidates", len(ids)))
	return nil
}

// GetNews implements provider.Provider using the configured default category.
func (h *HackerNews) GetNews(ctx context.Context) ([]entity.NewsItem, error) {
	return h.GetNewsCategory(ctx, h.cfg.DefaultCategory)
}

// GetNewsCategory returns exactly one unseen story from the given category.
// The chosen ID is blacklisted atomically with the selection. If the detail
// lookup fails the ID is left unblacklisted so a later cycle can retry it.
func (h *HackerNews) GetNewsCategory(ctx context.Context, category string) ([]entity.NewsItem, error) {
	if _, ok := hnCategories[category]; !ok {
		return nil, fmt.Errorf("%w: %q (expected new, top or best)", entity.ErrUnknownCategory, category)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ids, err := h.loadSnapshot(ctx, category)
	if err != nil {
		return nil, err
	}
	unseen, err := h.blacklist.Unseen(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hackernews %s: %w", category, err)
	}
	if len(unseen) == 0 {
		return nil, fmt.Errorf("hackernews %s: %w", category, entity.ErrNoNews)
	}

	chosen := unseen[0]
	if h.cfg.Selection == usecase.SelectionRandom {
		chosen = unseen[rand.Intn(len(unseen))]
	}

	item, err := h.fetchItem(ctx, chosen)
	if err != nil {
		return nil, fmt.Errorf("hackernews %s: resolve item %s: %w", category, chosen, err)
	}
	if err := h.blacklist.Add(ctx, chosen); err != nil {
		return nil, fmt.Errorf("hackernews %s: %w", category, err)
	}

	providerItemsDelivered.WithLabelValues(h.Name()).Inc()
	return []entity.NewsItem{item}, nil
}

// CleanBlacklist implements provider.Provider.
func (h *HackerNews) CleanBlacklist(ctx context.Context) error {
	slog.Info("cleaning blacklist", slog.String("provider", h.Name()))
	return h.blacklist.Clean(ctx)
}

// loadSnapshot reads one category's ID list from the local snapshot.
// Absent or corrupt snapshots read as "no candidates".
func (h *HackerNews) loadSnapshot(ctx context.Context, category string) ([]string, error) {
	key := h.Name() + "/" + category + ".json"
	data, err := h.store.Load(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("hackernews %s: snapshot absent: %w", category, entity.ErrNoNews)
	}
	if err != nil {
		return nil, fmt.Errorf("hackernews %s: load snapshot: %w", category, err)
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("snapshot is corrupt, treating as empty",
			slog.String("provider", h.Name()),
			slog.String("category", category),
			slog.Any("error", err))
		return nil, fmt.Errorf("hackernews %s: snapshot corrupt: %w", category, entity.ErrNoNews)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out, nil
}

// hnItem is the subset of the item detail payload the bot cares about.
type hnItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// fetchItem resolves a story ID to its title and link. Stories without an
// external URL (Ask HN and similar) link to their comment page instead.
func (h *HackerNews) fetchItem(ctx context.Context, id string) (entity.NewsItem, error) {
	url := h.cfg.BaseURL + "/item/" + id + ".json"
	body, err := h.fetch(ctx, "detail", url)
	if err != nil {
		return entity.NewsItem{}, err
	}
	var raw hnItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return entity.NewsItem{}, fmt.Errorf("decode item %s: %w", id, err)
	}
	if raw.Title == "" {
		return entity.NewsItem{}, fmt.Errorf("item %s has no title", id)
	}
	link := raw.URL
	if link == "" {
		link = "https://news.ycombinator.com/item?id=" + id
	}
	return entity.NewsItem{Title: raw.Title, Link: link, Provider: h.Name()}, nil
}

// fetch runs one GET through retry and the circuit breaker.
func (h *HackerNews) fetch(ctx context.Context, operation, url string) ([]byte, error) {
	var body []byte
	start := time.Now()
	err := retry.WithBackoff(ctx, h.retryCfg, func() error {
		result, err := h.breaker.Execute(func() (interface{}, error) {
			return httpGet(ctx, h.client, url, "")
		})
		if err != nil {
			return err
		}
		body = result.([]byte)
		return nil
	})
	recordFetch(h.Name(), operation, start, err)
	return body, err
}

var _ usecase.Provider = (*HackerNews)(nil)
