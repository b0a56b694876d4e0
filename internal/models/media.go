package models

import (
	"time"

	"github.com/google/uuid"
)

// Category identifies a media gallery.
type Category string

// Gallery categories.
const (
	CategoryPainting       Category = "painting"
	CategoryTrack          Category = "track"
	CategoryDanceVideo     Category = "dance_video"
	CategoryAnimationVideo Category = "animation_video"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPainting, CategoryTrack, CategoryDanceVideo, CategoryAnimationVideo:
		return true
	}
	return false
}

// MediaItem is a persisted gallery entry. The payload is stored exactly one
// way: inline (Data + ContentType) or as a reference into the upload store
// (FilePath). Records are immutable after creation; there is no update.
type MediaItem struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Category      Category  `json:"category" db:"category"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Artist        string    `json:"artist,omitempty" db:"artist"`
	Choreographer string    `json:"choreographer,omitempty" db:"choreographer"`
	Genre         string    `json:"genre,omitempty" db:"genre"`
	Tags          []string  `json:"tags,omitempty" db:"tags"`
	Duration      int       `json:"duration,omitempty" db:"duration"`
	ContentType   string    `json:"content_type,omitempty" db:"content_type"`
	Data          []byte    `json:"-" db:"data"`
	FilePath      string    `json:"file_path,omitempty" db:"file_path"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Inline reports whether the payload is stored inside the record.
func (m *MediaItem) Inline() bool {
	return len(m.Data) > 0
}
