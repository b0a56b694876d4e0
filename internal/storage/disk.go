package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore stages uploads in a local directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed and returns a DiskStore.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the reader to a freshly keyed file. The write goes to a
// temporary name first and is renamed into place so a concurrent Open never
// observes a partial object.
func (s *DiskStore) Save(ctx context.Context, field, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := NewKey(field, filename)
	tmp, err := os.CreateTemp(s.dir, ".part-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to place staging file: %w", err)
	}
	return key, nil
}

// Open returns a reader for a staged file.
func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	return f, nil
}

// Delete removes a staged file. Deleting an absent key succeeds.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete staged file: %w", err)
	}
	return nil
}

// path resolves a key inside the store directory, refusing traversal.
func (s *DiskStore) path(key string) string {
	clean := filepath.Base(strings.TrimSpace(key))
	return filepath.Join(s.dir, clean)
}
