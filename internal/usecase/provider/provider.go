// Package provider defines the contract every news source implements and the
// shared deduplication state (Blacklist) each source owns. Concrete sources
// live under internal/infra/provider.
package provider

import (
	"context"

	"technews-bot/internal/domain/entity"
)

// Selection controls how an API-style provider picks one candidate out of
// the unseen pool.
type Selection string

const (
	// SelectionFirst picks the first unseen candidate in snapshot order.
	SelectionFirst Selection = "first"

	// SelectionRandom picks a uniformly random unseen candidate.
	SelectionRandom Selection = "random"
)

// Valid reports whether s is a known selection mode.
func (s Selection) Valid() bool {
	return s == SelectionFirst || s == SelectionRandom
}

// Provider is a source of news items. Implementations abstract over
// API-based and RSS-based origins behind the same four operations.
//
// Thread safety: all methods must be safe for concurrent use. GetNews must
// serialize its select-unseen-plus-blacklist sequence so that two concurrent
// calls never return the same identifier.
type Provider interface {
	// Name returns the provider's stable identity, used for logging,
	// message attribution, and the on-disk state directory.
	Name() string

	// UpdateNews fetches current candidate data from the remote source and
	// overwrites the local snapshot. On failure the previous snapshot is
	// left intact and the error is returned for logging; the caller treats
	// it as non-fatal.
	UpdateNews(ctx context.Context) error

	// GetNews reads the current snapshot, drops candidates already in the
	// blacklist, selects the provider's share of unseen items, appends
	// their identifiers to the blacklist, and returns them. It returns an
	// error wrapping entity.ErrNoNews when zero unseen candidates exist.
	GetNews(ctx context.Context) ([]entity.NewsItem, error)

	// CleanBlacklist resets the blacklist to empty. Idempotent.
	CleanBlacklist(ctx context.Context) error
}
