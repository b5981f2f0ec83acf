package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technews-bot/internal/domain/entity"
	"technews-bot/internal/infra/blob"
	usecase "technews-bot/internal/usecase/provider"
)

// newHNServer serves the endpoints the provider talks to. Story IDs map to
// items titled "story <id>" with an external link.
func newHNServer(t *testing.T, ids string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for _, endpoint := range []string{"newstories.json", "topstories.json", "beststories.json"} {
		endpoint := endpoint
		mux.HandleFunc("/"+endpoint, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, ids)
		})
	}
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/item/"), ".json")
		fmt.Fprintf(w, `{"title":"story %s","url":"https://example.com/%s"}`, id, id)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHNProvider(t *testing.T, srv *httptest.Server, dir string, sel usecase.Selection) *HackerNews {
	t.Helper()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	hn, err := NewHackerNews(HackerNewsConfig{
		BaseURL:         srv.URL,
		DefaultCategory: "new",
		Selection:       sel,
	}, &http.Client{Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	return hn
}

func TestHackerNews_FirstSelectionSkipsBlacklisted(t *testing.T) {
	srv := newHNServer(t, `[1,2,3]`)
	dir := t.TempDir()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	// Snapshot [1,2,3], blacklist [1].
	require.NoError(t, store.Store(ctx, "HackerNews/new.json", []byte(`[1,2,3]`)))
	require.NoError(t, store.Store(ctx, "HackerNews/blacklist.json", []byte(`["1"]`)))

	hn := newHNProvider(t, srv, dir, usecase.SelectionFirst)

	items, err := hn.GetNews(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "story 2", items[0].Title)
	assert.Equal(t, "https://example.com/2", items[0].Link)
	assert.Equal(t, "HackerNews", items[0].Provider)

	data, err := store.Load(ctx, "HackerNews/blacklist.json")
	require.NoError(t, err)
	assert.JSONEq(t, `["1","2"]`, string(data))
}

func TestHackerNews_SequentialCallsYieldDistinctThenNoNews(t *testing.T) {
	srv := newHNServer(t, `[10,11,12]`)
	dir := t.TempDir()
	hn := newHNProvider(t, srv, dir, usecase.SelectionFirst)
	ctx := context.Background()

	require.NoError(t, hn.UpdateNews(ctx))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		items, err := hn.GetNews(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.False(t, seen[items[0].Link], "link %s delivered twice", items[0].Link)
		seen[items[0].Link] = true
	}

	_, err := hn.GetNews(ctx)
	assert.ErrorIs(t, err, entity.ErrNoNews)
	// Exhausted stays exhausted.
	_, err = hn.GetNews(ctx)
	assert.ErrorIs(t, err, entity.ErrNoNews)
}

func TestHackerNews_UnknownCategory(t *testing.T) {
	srv := newHNServer(t, `[1]`)
	hn := newHNProvider(t, srv, t.TempDir(), usecase.SelectionFirst)

	_, err := hn.GetNewsCategory(context.Background(), "weird")
	assert.ErrorIs(t, err, entity.ErrUnknownCategory)
	assert.Contains(t, err.Error(), "weird")
}

func TestHackerNews_AbsentSnapshotIsNoNews(t *testing.T) {
	srv := newHNServer(t, `[1]`)
	hn := newHNProvider(t, srv, t.TempDir(), usecase.SelectionFirst)

	_, err := hn.GetNews(context.Background())
	assert.ErrorIs(t, err, entity.ErrNoNews)
}

func TestHackerNews_CorruptSnapshotIsNoNews(t *testing.T) {
	srv := newHNServer(t, `[1]`)
	dir := t.TempDir()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "HackerNews/new.json", []byte(`{oops`)))

	hn := newHNProvider(t, srv, dir, usecase.SelectionFirst)
	_, err = hn.GetNews(ctx)
	assert.ErrorIs(t, err, entity.ErrNoNews)
}

func TestHackerNews_UpdateNewsWritesAllCategorySnapshots(t *testing.T) {
	srv := newHNServer(t, `[7,8]`)
	dir := t.TempDir()
	hn := newHNProvider(t, srv, dir, usecase.SelectionFirst)
	ctx := context.Background()

	require.NoError(t, hn.UpdateNews(ctx))

	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	for _, category := range []string{"new", "top", "best"} {
		data, err := store.Load(ctx, "HackerNews/"+category+".json")
		require.NoError(t, err, "category %s", category)
		assert.JSONEq(t, `[7,8]`, string(data))
	}
}

func TestHackerNews_DetailFailureDoesNotBlacklist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/item/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "HackerNews/new.json", []byte(`[5]`)))

	hn := newHNProvider(t, srv, dir, usecase.SelectionFirst)

	_, err = hn.GetNews(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, entity.ErrNoNews))

	// The candidate is still unseen for the next cycle.
	_, loadErr := store.Load(ctx, "HackerNews/blacklist.json")
	assert.Error(t, loadErr, "blacklist should not have been written")
}

func TestHackerNews_RandomSelectionStaysWithinUnseenPool(t *testing.T) {
	srv := newHNServer(t, `[1,2,3,4]`)
	dir := t.TempDir()
	store, err := blob.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "HackerNews/new.json", []byte(`[1,2,3,4]`)))
	require.NoError(t, store.Store(ctx, "HackerNews/blacklist.json", []byte(`["1","2","3"]`)))

	hn := newHNProvider(t, srv, dir, usecase.SelectionRandom)

	items, err := hn.GetNews(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "story 4", items[0].Title)
}
