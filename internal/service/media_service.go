// Package service provides business logic implementations.
package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arthive/arthive/internal/mediatype"
	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/repository"
	"github.com/arthive/arthive/internal/storage"
)

// MediaService defines gallery operations: the upload pipeline plus
// listing, detail, payload streaming, and deletion.
type MediaService interface {
	Upload(ctx context.Context, req UploadRequest) (*models.MediaItem, error)
	List(ctx context.Context, category models.Category) ([]*models.MediaItem, error)
	Get(ctx context.Context, category models.Category, id uuid.UUID) (*models.MediaItem, error)
	Delete(ctx context.Context, category models.Category, id uuid.UUID) error
	// OpenFile streams a referenced payload from the upload store.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadRequest carries one multipart submission through the pipeline.
type UploadRequest struct {
	Category models.Category

	Title         string
	Description   string
	Artist        string
	Choreographer string
	Genre         string
	Tags          []string
	Duration      int

	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

type mediaService struct {
	repo   repository.MediaRepository
	store  storage.Store
	logger *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(repo repository.MediaRepository, store storage.Store, logger *slog.Logger) MediaService {
	return &mediaService{repo: repo, store: store, logger: logger}
}

// Upload runs validate -> stage -> persist -> cleanup, strictly in order.
// A rejected file causes zero store and zero database writes; a failure
// after staging removes the staged copy so nothing partial survives.
func (s *mediaService) Upload(ctx context.Context, req UploadRequest) (*models.MediaItem, error) {
	spec, ok := mediatype.SpecFor(req.Category)
	if !ok {
		return nil, apierrors.ErrBadRequest.WithMessage("Unknown media category")
	}
	if req.Title == "" {
		return nil, apierrors.NewValidationError("title", "title is required")
	}
	if err := spec.Validate(req.ContentType, req.Size); err != nil {
		return nil, err
	}

	// Stage the validated bytes. The reader is capped one byte past the
	// category limit so a lying Content-Length cannot smuggle an oversize
	// payload to disk unnoticed.
	src := req.File
	if spec.MaxBytes > 0 {
		src = io.LimitReader(req.File, spec.MaxBytes+1)
	}
	key, err := s.store.Save(ctx, spec.Field, req.Filename, src)
	if err != nil {
		return nil, apierrors.ErrInternal
	}

	// Tagless uploads carry a nil slice, which pgx encodes as SQL NULL;
	// the tags column is NOT NULL.
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	item := &models.MediaItem{
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Artist:        req.Artist,
		Choreographer: req.Choreographer,
		Genre:         req.Genre,
		Tags:          tags,
		Duration:      req.Duration,
		ContentType:   req.ContentType,
	}

	switch spec.Mode {
	case mediatype.StoreInline:
		data, err := s.readStaged(ctx, key, spec.MaxBytes)
		if err != nil {
			s.discard(ctx, key)
			return nil, err
		}
		item.Data = data
	case mediatype.StoreReferenced:
		item.FilePath = "/uploads/" + key
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("media create failed", slog.String("category", string(req.Category)), slog.String("error", err.Error()))
		s.discard(ctx, key)
		return nil, apierrors.ErrInternal
	}

	if spec.PurgeAfterPersist {
		s.discard(ctx, key)
	}

	return item, nil
}

// readStaged pulls the staged bytes back for inline persistence, enforcing
// the size cap on actual bytes rather than the declared length.
func (s *mediaService) readStaged(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, apierrors.ErrInternal
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apierrors.ErrInternal
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, apierrors.ErrPayloadTooLarge
	}
	if len(data) == 0 {
		return nil, apierrors.NewValidationError("file", "uploaded file is empty")
	}
	return data, nil
}

// discard deletes a staged object; deletion is idempotent, so retries and
// already-purged keys are fine.
func (s *mediaService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete staged upload", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// List returns a category's items in its configured order.
func (s *mediaService) List(ctx context.Context, category models.Category) ([]*models.MediaItem, error) {
	spec, ok := mediatype.SpecFor(category)
	if !ok {
		return nil, apierrors.ErrBadRequest.WithMessage("Unknown media category")
	}

	items, err := s.repo.ListByCategory(ctx, category, spec.ReverseChronological)
	if err != nil {
		s.logger.Error("media list failed", slog.String("category", string(category)), slog.String("error", err.Error()))
		return nil, apierrors.ErrInternal
	}
	return items, nil
}

// Get returns one item or not_found.
func (s *mediaService) Get(ctx context.Context, category models.Category, id uuid.UUID) (*models.MediaItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("media get failed", slog.String("id", id.String()), slog.String("error", err.Error()))
		return nil, apierrors.ErrInternal
	}
	if item == nil || item.Category != category {
		return nil, apierrors.NewNotFoundError("Media item")
	}
	return item, nil
}

// Delete removes an item and, for referenced payloads, its stored file.
// A missing id is not_found, distinct from a backend failure.
func (s *mediaService) Delete(ctx context.Context, category models.Category, id uuid.UUID) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apierrors.ErrInternal
	}
	if item == nil || item.Category != category {
		return apierrors.NewNotFoundError("Media item")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("media delete failed", slog.String("id", id.String()), slog.String("error", err.Error()))
		return apierrors.ErrInternal
	}
	if !deleted {
		return apierrors.NewNotFoundError("Media item")
	}

	if item.FilePath != "" {
		s.discard(ctx, fileKey(item.FilePath))
	}
	return nil
}

// OpenFile streams a referenced payload by staging key.
func (s *mediaService) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierrors.NewNotFoundError("File")
		}
		return nil, apierrors.ErrInternal
	}
	return rc, nil
}

// fileKey strips the public /uploads/ prefix off a stored reference path.
func fileKey(filePath string) string {
	const prefix = "/uploads/"
	if len(filePath) > len(prefix) && filePath[:len(prefix)] == prefix {
		return filePath[len(prefix):]
	}
	return filePath
}
