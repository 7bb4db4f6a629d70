// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/greenpower-cms/internal/service"
)

const maxQueryLength = 200

// Search handles GET /api/v1/search?q=.
// Only published pages are searched.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteBadRequest(w, "Query parameter q is required")
		return
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		WriteBadRequest(w, "Query is too long")
		return
	}

	page, perPage := pageParams(r)
	results, total, err := h.search.SearchPublishedPages(r.Context(), service.SearchParams{
		Query:  query,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		slog.Error("page search failed", "error", err, "query", query)
		WriteInternalError(w, "Search failed")
		return
	}

	WriteSuccess(w, results, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
	})
}
