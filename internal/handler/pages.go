// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/util"
)

// emptyContent is stored when a page has no content.
const emptyContent = "{}"

// PagesHandler handles admin page routes.
type PagesHandler struct {
	queries *store.Queries
	pages   *service.PageService
	events  *service.EventService
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(db *sql.DB, pages *service.PageService, events *service.EventService) *PagesHandler {
	return &PagesHandler{
		queries: store.New(db),
		pages:   pages,
		events:  events,
	}
}

// pageRequest is the body of create and update calls.
// Content may be a JSON value or a string holding JSON.
type pageRequest struct {
	Title           *string         `json:"title"`
	Slug            *string         `json:"slug"`
	Content         json.RawMessage `json:"content"`
	MetaTitle       *string         `json:"meta_title"`
	MetaDescription *string         `json:"meta_description"`
	MetaKeywords    *string         `json:"meta_keywords"`
	Status          *string         `json:"status"`
}

// normalizeContent returns compact JSON text for raw, or false if it is not valid JSON.
func normalizeContent(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return emptyContent, true
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		if strings.TrimSpace(s) == "" {
			return emptyContent, true
		}
		raw = json.RawMessage(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	return buf.String(), true
}

// apply merges the request over p and returns field errors. excludeID is
// the page being updated, or 0 on create.
func (h *PagesHandler) apply(r *http.Request, req pageRequest, p *store.PageParams, excludeID int64) map[string]string {
	errs := make(map[string]string)
	currentSlug := p.Slug

	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if p.Title == "" {
		errs["title"] = "Title is required"
	}
	if req.Slug != nil {
		p.Slug = strings.TrimSpace(*req.Slug)
	}
	if p.Slug == "" {
		p.Slug = util.Slugify(p.Title)
	}
	if _, bad := errs["title"]; !bad {
		check := func() (bool, error) { return h.queries.SlugExists(r.Context(), p.Slug, excludeID) }
		if msg := ValidateSlugForUpdate(p.Slug, currentSlug, check); msg != "" {
			errs["slug"] = msg
		}
	}
	if req.Content != nil {
		content, ok := normalizeContent(req.Content)
		if !ok {
			errs["content"] = "Content must be valid JSON"
		}
		p.Content = content
	}
	if p.Content == "" {
		p.Content = emptyContent
	}
	if req.MetaTitle != nil {
		p.MetaTitle = strings.TrimSpace(*req.MetaTitle)
	}
	if req.MetaDescription != nil {
		p.MetaDescription = strings.TrimSpace(*req.MetaDescription)
	}
	if req.MetaKeywords != nil {
		p.MetaKeywords = strings.TrimSpace(*req.MetaKeywords)
	}
	if req.Status != nil && *req.Status != "" {
		p.Status = *req.Status
	}
	if !model.IsValidPageStatus(p.Status) {
		errs["status"] = "Invalid status"
	}
	stampPublished(p, time.Now().UTC())
	return errs
}

// stampPublished keeps published_at in step with the status.
func stampPublished(p *store.PageParams, now time.Time) {
	switch {
	case p.Status == model.PageStatusPublished && p.PublishedAt == nil:
		p.PublishedAt = &now
	case p.Status != model.PageStatusPublished:
		p.PublishedAt = nil
	}
}

func pageParams(p store.Page) store.PageParams {
	return store.PageParams{
		Slug:            p.Slug,
		Title:           p.Title,
		Content:         p.Content,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		Status:          p.Status,
		PublishedAt:     p.PublishedAt,
	}
}

// List handles GET /api/admin/pages.
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.queries.ListPages(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeInternalError(w, "failed to list pages", "error", err)
		return
	}
	views := make([]service.PageView, 0, len(pages))
	for _, p := range pages {
		views = append(views, service.NewPageView(p))
	}
	writeJSONSuccess(w, map[string]any{"pages": views, "total": len(views)})
}

// Get handles GET /api/admin/pages/{id}.
func (h *PagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, ok := h.requirePage(w, r)
	if !ok {
		return
	}
	writeJSONSuccess(w, map[string]any{"page": service.NewPageView(page)})
}

// Create handles POST /api/admin/pages.
func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.PageParams{Status: model.PageStatusDraft}
	if errs := h.apply(r, req, &params, 0); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	page, err := h.queries.CreatePage(r.Context(), params, middleware.GetUserIDPtr(r), time.Now().UTC())
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeValidationError(w, map[string]string{"slug": "Slug already exists"})
			return
		}
		writeInternalError(w, "failed to create page", "error", err)
		return
	}

	h.pages.Invalidate(r.Context())
	_ = h.events.LogInfo(r.Context(), model.EventCategoryPage, "Page created",
		map[string]any{"page_id": page.ID, "slug": page.Slug})

	writeJSONCreated(w, map[string]any{"page": service.NewPageView(page)})
}

// Update handles PUT /api/admin/pages/{id}.
func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requirePage(w, r)
	if !ok {
		return
	}
	var req pageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := pageParams(existing)
	if errs := h.apply(r, req, &params, existing.ID); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	h.save(w, r, existing.ID, params, "Page updated")
}

// TogglePublish handles POST /api/admin/pages/{id}/publish.
func (h *PagesHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requirePage(w, r)
	if !ok {
		return
	}

	params := pageParams(existing)
	if existing.Status == model.PageStatusPublished {
		params.Status = model.PageStatusDraft
	} else {
		params.Status = model.PageStatusPublished
		params.PublishedAt = nil
	}
	stampPublished(&params, time.Now().UTC())

	message := "Page unpublished"
	if params.Status == model.PageStatusPublished {
		message = "Page published"
	}
	h.save(w, r, existing.ID, params, message)
}

func (h *PagesHandler) save(w http.ResponseWriter, r *http.Request, id int64, params store.PageParams, message string) {
	page, err := h.queries.UpdatePage(r.Context(), id, params, time.Now().UTC())
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeValidationError(w, map[string]string{"slug": "Slug already exists"})
			return
		}
		writeInternalError(w, "failed to update page", "error", err, "page_id", id)
		return
	}

	h.pages.Invalidate(r.Context())
	_ = h.events.LogInfo(r.Context(), model.EventCategoryPage, message,
		map[string]any{"page_id": id, "slug": page.Slug, "status": page.Status})

	writeJSONSuccess(w, map[string]any{"page": service.NewPageView(page)})
}

// Delete handles DELETE /api/admin/pages/{id}.
func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.queries.DeletePage(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to delete page", "error", err, "page_id", id)
		return
	}
	if n == 0 {
		writeJSONError(w, http.StatusNotFound, "Page not found")
		return
	}

	h.pages.Invalidate(r.Context())
	_ = h.events.LogInfo(r.Context(), model.EventCategoryPage, "Page deleted", map[string]any{"page_id": id})
	writeJSONSuccess(w, nil)
}

func (h *PagesHandler) requirePage(w http.ResponseWriter, r *http.Request) (store.Page, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return store.Page{}, false
	}
	return requireEntity(w, "Page", id, func(id int64) (store.Page, error) {
		return h.queries.GetPage(r.Context(), id)
	})
}
