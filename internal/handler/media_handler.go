// Package handler provides HTTP handlers for the ArtHive API.
package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arthive/arthive/internal/mediatype"
	"github.com/arthive/arthive/internal/middleware"
	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/pkg/response"
	"github.com/arthive/arthive/internal/service"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to temp files.
const multipartMemory = 32 << 20

// MediaHandler handles gallery HTTP requests. One instance serves all
// categories; Routes binds it to a specific gallery.
type MediaHandler struct {
	media service.MediaService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// Routes returns a chi router for one gallery category.
func (h *MediaHandler) Routes(category models.Category) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list(category))
	r.Post("/", h.upload(category))
	r.Get("/{id}", h.get(category))
	r.Get("/{id}/file", h.file(category))
	r.Delete("/{id}", h.delete(category))

	return r
}

// upload handles POST /<gallery> multipart submissions.
func (h *MediaHandler) upload(category models.Category) http.HandlerFunc {
	spec, _ := mediatype.SpecFor(category)

	return func(w http.ResponseWriter, r *http.Request) {
		// Cap the whole request body; the slack covers multipart framing
		// and text fields.
		if spec.MaxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, spec.MaxBytes+multipartMemory)
		}

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			response.Error(w, multipartError(err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(spec.Field)
		if err != nil {
			response.Error(w, apierrors.NewValidationError(spec.Field, "file field is required"))
			return
		}
		defer file.Close()

		req := service.UploadRequest{
			Category:      category,
			Title:         firstValue(r, "title", "name"),
			Description:   firstValue(r, "description", "desc"),
			Artist:        r.FormValue("artist"),
			Choreographer: r.FormValue("choreographer"),
			Genre:         r.FormValue("genre"),
			Tags:          splitTags(r.FormValue("tags")),
			Duration:      atoiOrZero(r.FormValue("duration")),
			Filename:      header.Filename,
			ContentType:   header.Header.Get("Content-Type"),
			Size:          header.Size,
			File:          file,
		}

		item, err := h.media.Upload(r.Context(), req)
		if err != nil {
			middleware.RecordUpload(string(category), "rejected")
			response.Error(w, err)
			return
		}

		middleware.RecordUpload(string(category), "ok")
		response.Created(w, item, spec.ListPath)
	}
}

// list handles GET /<gallery>.
func (h *MediaHandler) list(category models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.media.List(r.Context(), category)
		if err != nil {
			response.Error(w, err)
			return
		}
		if items == nil {
			items = []*models.MediaItem{}
		}
		response.OK(w, items)
	}
}

// get handles GET /<gallery>/{id}.
func (h *MediaHandler) get(category models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
			return
		}

		item, err := h.media.Get(r.Context(), category, id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, item)
	}
}

// file handles GET /<gallery>/{id}/file, serving the raw payload.
func (h *MediaHandler) file(category models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
			return
		}

		item, err := h.media.Get(r.Context(), category, id)
		if err != nil {
			response.Error(w, err)
			return
		}

		if !item.Inline() {
			// Referenced payloads live under /uploads.
			http.Redirect(w, r, item.FilePath, http.StatusFound)
			return
		}

		w.Header().Set("Content-Type", item.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(item.Data)))
		w.Write(item.Data)
	}
}

// delete handles DELETE /<gallery>/{id}.
func (h *MediaHandler) delete(category models.Category) http.HandlerFunc {
	spec, _ := mediatype.SpecFor(category)

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
			return
		}

		if err := h.media.Delete(r.Context(), category, id); err != nil {
			response.Error(w, err)
			return
		}
		response.Redirect(w, spec.ListPath)
	}
}

// ServeUpload handles GET /uploads/{key}, streaming referenced payloads
// from the upload store.
func (h *MediaHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rc, err := h.media.OpenFile(r.Context(), key)
	if err != nil {
		response.Error(w, err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	io.Copy(w, rc)
}

// multipartError classifies a multipart parse failure: an exceeded
// MaxBytesReader cap is the upload being too large, anything else is a
// malformed form.
func multipartError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apierrors.ErrPayloadTooLarge
	}
	return apierrors.ErrBadRequest.WithMessage("Invalid multipart form")
}

// firstValue returns the first non-empty form value among names. Galleries
// predate a unified form schema, so paintings still post name/desc.
func firstValue(r *http.Request, names ...string) string {
	for _, n := range names {
		if v := r.FormValue(n); v != "" {
			return v
		}
	}
	return ""
}

// splitTags parses a comma-separated tag list, trimming whitespace and
// dropping empties.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
