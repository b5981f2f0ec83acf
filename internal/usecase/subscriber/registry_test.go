package subscriber

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technews-bot/internal/repository"
)

// memStore is an in-memory BlobStore with injectable failures.
type memStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	storeErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Store(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func TestRegistry_SubscribeReportsNewlyAdded(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(ctx, newMemStore())
	require.NoError(t, err)

	added, err := r.Subscribe(ctx, 42)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Subscribe(ctx, 42)
	require.NoError(t, err)
	assert.False(t, added)

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)
}

func TestRegistry_UnsubscribeAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(ctx, newMemStore())
	require.NoError(t, err)

	require.NoError(t, r.Unsubscribe(ctx, 7))

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegistry_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	r, err := NewRegistry(ctx, store)
	require.NoError(t, err)
	_, err = r.Subscribe(ctx, 3)
	require.NoError(t, err)
	_, err = r.Subscribe(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, r.Unsubscribe(ctx, 3))

	assert.JSONEq(t, `[1]`, string(store.blobs[blobKey]))

	reloaded, err := NewRegistry(ctx, store)
	require.NoError(t, err)
	ids, err := reloaded.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestRegistry_CorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.blobs[blobKey] = []byte(`{not json`)

	r, err := NewRegistry(ctx, store)
	require.NoError(t, err)

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegistry_WriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.storeErr = errors.New("disk full")

	r, err := NewRegistry(ctx, store)
	require.NoError(t, err)

	added, err := r.Subscribe(ctx, 99)
	require.NoError(t, err)
	assert.True(t, added)

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, ids)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(ctx, newMemStore())
	require.NoError(t, err)

	for _, id := range []int64{30, 10, 20} {
		_, err := r.Subscribe(ctx, id)
		require.NoError(t, err)
	}

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)
}
