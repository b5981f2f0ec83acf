// Package subscriber keeps the set of Telegram chats that receive digests.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"technews-bot/internal/repository"
)

// blobKey is where the subscriber set lives under the data root.
const blobKey = "subscribers.json"

// Registry is a mutex-guarded set of chat IDs with write-through
// persistence. The blob is read once on construction; after that memory is
// authoritative and every mutation is flushed best-effort.
type Registry struct {
	store repository.BlobStore

	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewRegistry loads the persisted subscriber set from store. A missing blob
// starts an empty registry; a corrupt blob is logged and treated as empty
// rather than failing startup.
func NewRegistry(ctx context.Context, store repository.BlobStore) (*Registry, error) {
	r := &Registry{store: store, ids: make(map[int64]struct{})}

	data, err := store.Load(ctx, blobKey)
	if errors.Is(err, repository.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("subscriber blob is corrupt, starting with empty set",
			slog.Any("error", err))
		return r, nil
	}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r, nil
}

// Subscribe adds a chat to the set. It reports whether the chat was newly
// added; subscribing twice is a no-op that returns false.
func (r *Registry) Subscribe(ctx context.Context, chatID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[chatID]; ok {
		return false, nil
	}
	r.ids[chatID] = struct{}{}
	r.persist(ctx)
	return true, nil
}

// Unsubscribe removes a chat from the set. Removing an absent chat is a
// no-op.
func (r *Registry) Unsubscribe(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[chatID]; !ok {
		return nil
	}
	delete(r.ids, chatID)
	r.persist(ctx)
	return nil
}

// List returns the current subscribers in ascending order.
func (r *Registry) List(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// persist flushes the set under r.mu. A write failure loses durability, not
// the in-memory subscription, so it is logged rather than returned.
func (r *Registry) persist(ctx context.Context) {
	ids := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	data, err := json.Marshal(ids)
	if err != nil {
		slog.Error("marshal subscribers", slog.Any("error", err))
		return
	}
	if err := r.store.Store(ctx, blobKey, data); err != nil {
		slog.Warn("persist subscribers failed, in-memory set stays authoritative",
			slog.Any("error", err))
	}
}
