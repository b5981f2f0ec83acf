// Package blob implements repository.BlobStore on the local filesystem.
// Each key maps to one file under a root directory. Writes go through a
// temp file plus rename so readers never observe a partial blob.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"technews-bot/internal/repository"
)

// FileStore persists blobs as files under Root.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir, creating the directory
// if it does not exist yet.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data root %s: %w", dir, err)
	}
	return &FileStore{root: dir}, nil
}

// Load implements repository.BlobStore.
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Store implements repository.BlobStore. The write is atomic: data lands in
// a temp file in the target directory first and is renamed into place.
func (s *FileStore) Store(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp blob for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close blob %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit blob %s: %w", key, err)
	}
	return nil
}

// resolve maps a key to an absolute path and rejects keys escaping the root.
func (s *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty blob key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("blob key %q escapes data root", key)
	}
	return filepath.Join(s.root, clean), nil
}
