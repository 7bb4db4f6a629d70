// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/olegiv/greenpower-cms/internal/store"
)

// ActivityHandler serves the activity log.
type ActivityHandler struct {
	queries *store.Queries
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(db *sql.DB) *ActivityHandler {
	return &ActivityHandler{queries: store.New(db)}
}

// eventView exposes metadata as a JSON object instead of a string.
type eventView struct {
	store.Event
	Metadata json.RawMessage `json:"metadata"`
}

func newEventView(e store.Event) eventView {
	metadata := json.RawMessage(e.Metadata)
	if !json.Valid(metadata) {
		metadata = json.RawMessage("{}")
	}
	return eventView{Event: e, Metadata: metadata}
}

// List handles GET /api/admin/activity.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{
		Level:    q.Get("level"),
		Category: q.Get("category"),
		UserID:   queryInt64(r, "user_id"),
	}
	p := parsePagination(r)

	total, err := h.queries.CountEvents(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to count events", "error", err)
		return
	}
	events, err := h.queries.ListEvents(r.Context(), filter, p.limit(), p.offset())
	if err != nil {
		writeInternalError(w, "failed to list events", "error", err)
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	writeJSONSuccess(w, p.response(map[string]any{"events": views}, total))
}
