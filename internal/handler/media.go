// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/markup"
	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
)

const (
	// maxUploadRequest bounds a whole multipart request.
	maxUploadRequest = 10 * model.MaxUploadSize
	// multipartMemory is kept in memory before parts spill to temp files.
	multipartMemory = 32 << 20
)

// uploadFields are the multipart field names that may carry files.
var uploadFields = []string{"file", "files", "files[]"}

// MediaHandler handles media library routes.
type MediaHandler struct {
	queries *store.Queries
	media   *service.MediaService
	events  *service.EventService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(db *sql.DB, media *service.MediaService, events *service.EventService) *MediaHandler {
	return &MediaHandler{
		queries: store.New(db),
		media:   media,
		events:  events,
	}
}

// uploadError reports a file that could not be stored.
type uploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// mediaView is a media item with its public URLs.
type mediaView struct {
	store.Media
	URL      string               `json:"url"`
	URLs     map[string]string    `json:"urls,omitempty"`
	Variants []store.MediaVariant `json:"variants,omitempty"`
}

func newMediaView(m store.Media, variants []store.MediaVariant) mediaView {
	v := mediaView{Media: m, URL: service.URL(m, ""), Variants: variants}
	if len(variants) > 0 {
		v.URLs = map[string]string{"original": v.URL}
		for _, variant := range variants {
			v.URLs[variant.Type] = service.URL(m, variant.Type)
		}
	}
	return v
}

// Upload handles POST /api/admin/media. Files are stored independently; one
// failure does not block the others.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var files []*multipart.FileHeader
	for _, field := range uploadFields {
		files = append(files, r.MultipartForm.File[field]...)
	}
	if len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	tags := model.ParseStringList(r.FormValue("tags"))
	uploaded := make([]mediaView, 0, len(files))
	failed := make([]uploadError, 0)

	for _, f := range files {
		res, err := h.uploadOne(r, f, tags)
		if err != nil {
			failed = append(failed, uploadError{Filename: f.Filename, Error: uploadErrorMessage(err)})
			continue
		}
		uploaded = append(uploaded, newMediaView(res.Media, res.Variants))
	}

	if len(uploaded) > 0 {
		_ = h.events.LogInfo(r.Context(), model.EventCategoryMedia, "Media uploaded",
			map[string]any{"uploaded": len(uploaded), "failed": len(failed)})
	}

	data := map[string]any{"uploaded": uploaded, "errors": failed}
	if len(uploaded) == 0 {
		data["success"] = false
		data["error"] = "No files were uploaded"
		writeJSON(w, http.StatusBadRequest, data)
		return
	}
	writeJSONCreated(w, data)
}

func (h *MediaHandler) uploadOne(r *http.Request, f *multipart.FileHeader, tags model.StringList) (*service.UploadResult, error) {
	file, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	res, err := h.media.Upload(r.Context(), service.UploadInput{
		Filename:    f.Filename,
		ContentType: f.Header.Get("Content-Type"),
		Size:        f.Size,
		Body:        file,
		AltText:     r.FormValue("alt_text"),
		Caption:     r.FormValue("caption"),
		Tags:        tags,
		UploadedBy:  middleware.GetUserIDPtr(r),
	})
	if err != nil {
		slog.Warn("media upload rejected", "filename", f.Filename, "error", err)
	}
	return res, err
}

func uploadErrorMessage(err error) string {
	for _, known := range []error{service.ErrFileTooLarge, service.ErrTypeNotAllowed, service.ErrContentMismatch, service.ErrEmptyFile} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "Failed to store file"
}

// List handles GET /api/admin/media.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MediaFilter{
		MimePrefix: strings.TrimSpace(q.Get("type")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	p := parsePagination(r)

	total, err := h.queries.CountMedia(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to count media", "error", err)
		return
	}
	items, err := h.queries.ListMedia(r.Context(), filter, p.limit(), p.offset())
	if err != nil {
		writeInternalError(w, "failed to list media", "error", err)
		return
	}

	views := make([]mediaView, 0, len(items))
	for _, m := range items {
		views = append(views, newMediaView(m, nil))
	}
	writeJSONSuccess(w, p.response(map[string]any{"media": views}, total))
}

// Get handles GET /api/admin/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.requireMedia(w, r)
	if !ok {
		return
	}
	variants, err := h.queries.ListMediaVariants(r.Context(), m.ID)
	if err != nil {
		writeInternalError(w, "failed to list media variants", "error", err, "media_id", m.ID)
		return
	}
	writeJSONSuccess(w, map[string]any{"media": newMediaView(m, variants)})
}

// Download handles GET /api/admin/media/{id}/download.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	m, ok := h.requireMedia(w, r)
	if !ok {
		return
	}

	f, err := os.Open(m.StoragePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "File not found")
			return
		}
		writeInternalError(w, "failed to open media file", "error", err, "media_id", m.ID)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", m.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": m.OriginalName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, "", m.UpdatedAt, f)
}

type mediaUpdateRequest struct {
	AltText *string           `json:"alt_text"`
	Caption *string           `json:"caption"`
	Tags    *model.StringList `json:"tags"`
}

// Update handles PUT /api/admin/media/{id}.
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	m, ok := h.requireMedia(w, r)
	if !ok {
		return
	}
	var req mediaUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateMediaMetaParams{
		ID:        m.ID,
		AltText:   m.AltText,
		Caption:   m.Caption,
		Tags:      m.Tags,
		UpdatedAt: time.Now().UTC(),
	}
	if req.AltText != nil {
		params.AltText = markup.PlainText(*req.AltText)
	}
	if req.Caption != nil {
		params.Caption = markup.PlainText(*req.Caption)
	}
	if req.Tags != nil {
		params.Tags = *req.Tags
	}

	updated, err := h.queries.UpdateMediaMeta(r.Context(), params)
	if err != nil {
		writeInternalError(w, "failed to update media", "error", err, "media_id", m.ID)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryMedia, "Media updated", map[string]any{"media_id": m.ID})
	writeJSONSuccess(w, map[string]any{"media": newMediaView(updated, nil)})
}

// Delete handles DELETE /api/admin/media/{id}.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.media.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Media not found")
			return
		}
		writeInternalError(w, "failed to delete media", "error", err, "media_id", id)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryMedia, "Media deleted", map[string]any{"media_id": id})
	writeJSONSuccess(w, nil)
}

func (h *MediaHandler) requireMedia(w http.ResponseWriter, r *http.Request) (store.Media, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return store.Media{}, false
	}
	return requireEntity(w, "Media", id, func(id int64) (store.Media, error) {
		return h.queries.GetMedia(r.Context(), id)
	})
}
