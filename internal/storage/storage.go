// Package storage implements the upload store: durable staging for
// validated upload bytes, keyed by generated filenames.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/arthive/arthive/internal/pkg/ulid"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Store is a staging area for uploaded bytes. Delete is idempotent:
// removing an absent key is not an error, so purge-after-persist can be
// retried safely.
type Store interface {
	// Save writes the reader's bytes under a generated key derived from the
	// form field name and the original filename's extension.
	Save(ctx context.Context, field, filename string, r io.Reader) (key string, err error)

	// Open returns a reader for a previously saved object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Absent keys are ignored.
	Delete(ctx context.Context, key string) error
}

// NewKey builds a staging key: <field>-<ULID><ext>. ULIDs are time-ordered
// and unique, so concurrent uploads of the same field never collide.
func NewKey(field, filename string) string {
	return fmt.Sprintf("%s-%s%s", field, ulid.New(), filepath.Ext(filename))
}
