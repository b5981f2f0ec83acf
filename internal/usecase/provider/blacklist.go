package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"technews-bot/internal/repository"
)

// Blacklist is the persisted set of identifiers a provider has already
// delivered. It is stored as a JSON array of strings in a single blob,
// one per provider.
//
// The set only grows between resets: entries are never removed except by
// Clean. Inserts are deduplicated. A missing or corrupt blob reads as the
// empty set. A failed write is logged and the in-memory view stays
// authoritative for the rest of the process lifetime.
type Blacklist struct {
	store repository.BlobStore
	key   string

	mu     sync.Mutex
	loaded bool
	seen   map[string]struct{}
	order  []string
}

// NewBlacklist creates a blacklist persisted under key in store.
// The blob is read lazily on first use.
func NewBlacklist(store repository.BlobStore, key string) *Blacklist {
	return &Blacklist{store: store, key: key}
}

// Unseen returns the candidates not present in the blacklist,
// preserving their order.
func (b *Blacklist) Unseen(ctx context.Context, candidates []string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := b.seen[c]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Add inserts identifiers into the blacklist and writes the set through to
// the store. Duplicates are ignored. A persistence failure is logged; the
// in-memory set keeps the new entries regardless.
func (b *Blacklist) Add(ctx context.Context, ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(ctx); err != nil {
		return err
	}
	changed := false
	for _, id := range ids {
		if _, ok := b.seen[id]; ok {
			continue
		}
		b.seen[id] = struct{}{}
		b.order = append(b.order, id)
		changed = true
	}
	if !changed {
		return nil
	}
	if err := b.persist(ctx); err != nil {
		slog.Warn("blacklist write failed, in-memory state stays authoritative",
			slog.String("key", b.key),
			slog.Any("error", err))
	}
	return nil
}

// Clean resets the blacklist to the empty set, in memory and on disk.
// Calling it twice in a row is the same as calling it once.
func (b *Blacklist) Clean(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = true
	b.seen = make(map[string]struct{})
	b.order = nil
	if err := b.persist(ctx); err != nil {
		slog.Warn("blacklist reset write failed",
			slog.String("key", b.key),
			slog.Any("error", err))
	}
	return nil
}

// Len returns the current number of blacklisted identifiers.
func (b *Blacklist) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(ctx); err != nil {
		return 0, err
	}
	return len(b.order), nil
}

// load populates the in-memory set from the store on first use.
// Caller holds b.mu.
func (b *Blacklist) load(ctx context.Context) error {
	if b.loaded {
		return nil
	}
	b.seen = make(map[string]struct{})
	b.order = nil

	data, err := b.store.Load(ctx, b.key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// First run for this provider.
	case err != nil:
		return fmt.Errorf("load blacklist %s: %w", b.key, err)
	default:
		var ids []string
		if jsonErr := json.Unmarshal(data, &ids); jsonErr != nil {
			slog.Warn("blacklist blob is corrupt, starting from empty set",
				slog.String("key", b.key),
				slog.Any("error", jsonErr))
		} else {
			for _, id := range ids {
				if _, ok := b.seen[id]; ok {
					continue
				}
				b.seen[id] = struct{}{}
				b.order = append(b.order, id)
			}
		}
	}
	b.loaded = true
	return nil
}

// persist writes the current set to the store. Caller holds b.mu.
func (b *Blacklist) persist(ctx context.Context) error {
	ids := b.order
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode blacklist %s: %w", b.key, err)
	}
	return b.store.Store(ctx, b.key, data)
}
