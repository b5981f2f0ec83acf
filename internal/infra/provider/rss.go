package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/repository"
	"technews-bot/internal/resilience/circuitbreaker"
	"technews-bot/internal/resilience/retry"
	usecase "technews-bot/internal/usecase/provider"
)

// defaultMaxItems caps how many unseen entries a multi-item RSS provider
// contributes to one digest.
const defaultMaxItems = 5

// RSSConfig configures one RSS provider instance.
type RSSConfig struct {
	// Name is the provider's identity, also its state directory name.
	Name string

	// FeedURL is where the feed document is downloaded from.
	FeedURL string

	// UserAgent overrides the request User-Agent. Some feeds reject
	// obviously robotic clients, so a browser-like value can be configured
	// per provider. Empty means Go's default.
	UserAgent string

	// MaxItems limits how many unseen entries GetNews returns per cycle.
	// Zero means defaultMaxItems; 1 gives single-item digest mode.
	MaxItems int
}

// RSS is the feed-based provider. UpdateNews stores the downloaded document
// verbatim; GetNews parses the stored snapshot and filters entries against
// the blacklist by link.
type RSS struct {
	cfg       RSSConfig
	client    *http.Client
	store     repository.BlobStore
	blacklist *usecase.Blacklist
	breaker   *circuitbreaker.CircuitBreaker
	retryCfg  retry.Config

	// mu serializes "select unseen + blacklist" per provider.
	mu sync.Mutex
}

// NewRSS creates an RSS provider backed by store.
func NewRSS(cfg RSSConfig, client *http.Client, store repository.BlobStore) (*RSS, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("rss: provider name must not be empty")
	}
	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("rss %s: feed url must not be empty", cfg.Name)
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	r := &RSS{
		cfg:      cfg,
		client:   client,
		store:    store,
		breaker:  circuitbreaker.New(circuitbreaker.FeedFetchConfig("rss-" + cfg.Name)),
		retryCfg: retry.FeedFetchConfig(),
	}
	r.blacklist = usecase.NewBlacklist(store, cfg.Name+"/blacklist.json")
	return r, nil
}

// Name implements provider.Provider.
func (r *RSS) Name() string { return r.cfg.Name }

// UpdateNews downloads the feed document and stores it verbatim. On any
// failure the previous snapshot stays in place.
func (r *RSS) UpdateNews(ctx context.Context) error {
	var body []byte
	start := time.Now()
	err := retry.WithBackoff(ctx, r.retryCfg, func() error {
		result, execErr := r.breaker.Execute(func() (interface{}, error) {
			return httpGet(ctx, r.client, r.cfg.FeedURL, r.cfg.UserAgent)
		})
		if execErr != nil {
			return execErr
		}
		body = result.([]byte)
		return nil
	})
	recordFetch(r.Name(), "update", start, err)
	if err != nil {
		return fmt.Errorf("rss %s: download feed: %w", r.Name(), err)
	}

	if err := r.store.Store(ctx, r.snapshotKey(), body); err != nil {
		return fmt.Errorf("rss %s: store snapshot: %w", r.Name(), err)
	}
	slog.Info("snapshot refreshed",
		slog.String("provider", r.Name()),
		slog.Int("bytes", len(body)))
	return nil
}

// GetNews parses the stored snapshot and returns up to MaxItems unseen
// entries in feed order, blacklisting their links atomically with the
// selection. A missing or unparseable snapshot is a "no news" outcome,
// never a crash.
func (r *RSS) GetNews(ctx context.Context) ([]entity.NewsItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.store.Load(ctx, r.snapshotKey())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("rss %s: snapshot absent: %w", r.Name(), entity.ErrNoNews)
	}
	if err != nil {
		return nil, fmt.Errorf("rss %s: load snapshot: %w", r.Name(), err)
	}

	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		slog.Warn("feed document is malformed, reporting no news this cycle",
			slog.String("provider", r.Name()),
			slog.Any("error", err))
		return nil, fmt.Errorf("rss %s: malformed feed: %w", r.Name(), entity.ErrNoNews)
	}

	byLink := make(map[string]*gofeed.Item, len(feed.Items))
	links := make([]string, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Link == "" || it.Title == "" {
			continue
		}
		if _, dup := byLink[it.Link]; dup {
			continue
		}
		byLink[it.Link] = it
		links = append(links, it.Link)
	}

	unseen, err := r.blacklist.Unseen(ctx, links)
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", r.Name(), err)
	}
	if len(unseen) == 0 {
		return nil, fmt.Errorf("rss %s: %w", r.Name(), entity.ErrNoNews)
	}
	if len(unseen) > r.cfg.MaxItems {
		unseen = unseen[:r.cfg.MaxItems]
	}

	items := make([]entity.NewsItem, 0, len(unseen))
	for _, link := range unseen {
		items = append(items, entity.NewsItem{
			Title:    byLink[link].Title,
			Link:     link,
			Provider: r.Name(),
		})
	}
	if err := r.blacklist.Add(ctx, unseen...); err != nil {
		return nil, fmt.Errorf("rss %s: %w", r.Name(), err)
	}

	providerItemsDelivered.WithLabelValues(r.Name()).Add(float64(len(items)))
	return items, nil
}

// CleanBlacklist implements provider.Provider.
func (r *RSS) CleanBlacklist(ctx context.Context) error {
	slog.Info("cleaning blacklist", slog.String("provider", r.Name()))
	return r.blacklist.Clean(ctx)
}

func (r *RSS) snapshotKey() string {
	return r.cfg.Name + "/rss.xml"
}

var _ usecase.Provider = (*RSS)(nil)
