// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthive/arthive/internal/models"
)

// MediaRepository defines the interface for media record operations.
// Records are created and deleted, never updated.
type MediaRepository interface {
	Create(ctx context.Context, item *models.MediaItem) error
	ListByCategory(ctx context.Context, category models.Category, newestFirst bool) ([]*models.MediaItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
	// Delete reports whether a row was removed, so callers can tell
	// not-found apart from a backend failure.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type mediaRepo struct {
	pool *pgxpool.Pool
}

// NewMediaRepository creates a new media repository.
func NewMediaRepository(pool *pgxpool.Pool) MediaRepository {
	return &mediaRepo{pool: pool}
}

// Create inserts a new media item.
func (r *mediaRepo) Create(ctx context.Context, item *models.MediaItem) error {
	query := `
		INSERT INTO media_items (id, category, title, description, artist, choreographer, genre, tags, duration, content_type, data, file_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		item.ID,
		item.Category,
		item.Title,
		item.Description,
		item.Artist,
		item.Choreographer,
		item.Genre,
		item.Tags,
		item.Duration,
		item.ContentType,
		item.Data,
		item.FilePath,
	).Scan(&item.CreatedAt)
}

// ListByCategory retrieves a category's items, in insertion order or
// newest-first. Inline payload bytes are not fetched here; listings only
// need metadata.
func (r *mediaRepo) ListByCategory(ctx context.Context, category models.Category, newestFirst bool) ([]*models.MediaItem, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
		SELECT id, category, title, description, artist, choreographer, genre, tags, duration, content_type, file_path, created_at
		FROM media_items
		WHERE category = $1
		ORDER BY created_at ` + order

	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		var item models.MediaItem
		if err := rows.Scan(
			&item.ID,
			&item.Category,
			&item.Title,
			&item.Description,
			&item.Artist,
			&item.Choreographer,
			&item.Genre,
			&item.Tags,
			&item.Duration,
			&item.ContentType,
			&item.FilePath,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// GetByID retrieves a single item including inline payload bytes.
// Returns nil, nil when the id does not exist.
func (r *mediaRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	query := `
		SELECT id, category, title, description, artist, choreographer, genre, tags, duration, content_type, data, file_path, created_at
		FROM media_items WHERE id = $1`

	var item models.MediaItem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Category,
		&item.Title,
		&item.Description,
		&item.Artist,
		&item.Choreographer,
		&item.Genre,
		&item.Tags,
		&item.Duration,
		&item.ContentType,
		&item.Data,
		&item.FilePath,
		&item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an item by id.
func (r *mediaRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media_items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
