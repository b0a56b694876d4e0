// Package mediatype validates uploads against per-category MIME allow-lists
// and size caps, and carries each category's storage policy.
package mediatype

import (
	"strings"

	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

// MaxVideoBytes is the upload cap for video categories.
const MaxVideoBytes = 100 << 20 // 100 MiB

// StorageMode selects how a category persists its payload.
type StorageMode int

const (
	// StoreInline copies the staged bytes into the media record.
	StoreInline StorageMode = iota
	// StoreReferenced keeps the staged file and records its path.
	StoreReferenced
)

// Spec describes one category's upload contract.
type Spec struct {
	Category models.Category
	// Field is the multipart form field carrying the file.
	Field string
	// Allowed is the declared-content-type allow-list.
	Allowed []string
	// MaxBytes caps the payload size; 0 means unlimited.
	MaxBytes int64
	Mode     StorageMode
	// PurgeAfterPersist deletes the staged copy once the record is committed.
	PurgeAfterPersist bool
	// ReverseChronological lists newest-first instead of insertion order.
	ReverseChronological bool
	// ListPath is the gallery listing route, used for post-upload redirects.
	ListPath string
}

var specs = map[models.Category]Spec{
	models.CategoryPainting: {
		Category:          models.CategoryPainting,
		Field:             "image",
		Allowed:           []string{"image/jpeg", "image/png", "image/gif"},
		Mode:              StoreInline,
		PurgeAfterPersist: true,
		ListPath:          "/paintings",
	},
	models.CategoryTrack: {
		Category:          models.CategoryTrack,
		Field:             "file",
		Allowed:           []string{"audio/mpeg", "audio/mp3"},
		Mode:              StoreInline,
		PurgeAfterPersist: true,
		ListPath:          "/music",
	},
	models.CategoryDanceVideo: {
		Category: models.CategoryDanceVideo,
		Field:    "file",
		Allowed:  []string{"video/mp4", "video/avi", "video/mpeg"},
		MaxBytes: MaxVideoBytes,
		Mode:     StoreReferenced,
		ListPath: "/dance-videos",
	},
	models.CategoryAnimationVideo: {
		Category:             models.CategoryAnimationVideo,
		Field:                "file",
		Allowed:              []string{"video/mp4", "video/avi", "video/mpeg"},
		MaxBytes:             MaxVideoBytes,
		Mode:                 StoreInline,
		PurgeAfterPersist:    true,
		ReverseChronological: true,
		ListPath:             "/anime",
	},
}

// All returns every category's upload contract in a stable order,
// for mounting the gallery routes.
func All() []Spec {
	return []Spec{
		specs[models.CategoryPainting],
		specs[models.CategoryTrack],
		specs[models.CategoryDanceVideo],
		specs[models.CategoryAnimationVideo],
	}
}

// SpecFor returns the upload contract for a category.
func SpecFor(c models.Category) (Spec, bool) {
	s, ok := specs[c]
	return s, ok
}

// Validate checks a declared content type and size against the spec.
// It must pass before any staging or database write happens.
func (s Spec) Validate(contentType string, size int64) error {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	// Strip parameters like "; codecs=..."
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	allowed := false
	for _, a := range s.Allowed {
		if ct == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return apierrors.ErrUnsupportedMediaType.WithDetails(map[string]string{
			"content_type": contentType,
			"category":     string(s.Category),
		})
	}

	if s.MaxBytes > 0 && size > s.MaxBytes {
		return apierrors.ErrPayloadTooLarge
	}

	return nil
}
