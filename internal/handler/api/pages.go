// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListPages handles GET /api/v1/pages.
// Only published pages are listed.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pages.ListPublished(r.Context())
	if err != nil {
		slog.Error("failed to list published pages", "error", err)
		WriteInternalError(w, "Failed to retrieve pages")
		return
	}

	page, perPage := pageParams(r)
	total := len(pages)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	WriteSuccess(w, pages[start:end], &Meta{
		Total:   int64(total),
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	})
}

// GetPage handles GET /api/v1/pages/{slug}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.pages.GetPublished(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Page not found")
			return
		}
		slog.Error("failed to get page", "error", err, "slug", slug)
		WriteInternalError(w, "Failed to retrieve page")
		return
	}
	WriteSuccess(w, p, nil)
}
