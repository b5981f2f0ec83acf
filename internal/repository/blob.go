// Package repository declares the persistence ports of the application.
// Implementations live under internal/infra.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no blob exists under the given key.
// Callers treat it as "empty state", never as a crash condition.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the generic key-value persistence capability the core builds
// on. Keys are slash-separated paths relative to a data root
// (e.g. "HackerNews/blacklist.json", "subscribers.json").
//
// Store must be atomic with respect to concurrent readers: a Load issued
// while a Store is in flight observes either the previous or the new
// contents, never a partial write.
type BlobStore interface {
	// Load returns the blob stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Store overwrites the blob under key, creating it if absent.
	Store(ctx context.Context, key string, data []byte) error
}
