// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// RolesHandler serves the role catalogue.
type RolesHandler struct {
	queries *store.Queries
}

// NewRolesHandler creates a new RolesHandler.
func NewRolesHandler(db *sql.DB) *RolesHandler {
	return &RolesHandler{queries: store.New(db)}
}

type roleView struct {
	store.Role
	Level int `json:"level"`
}

// List handles GET /api/admin/roles.
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.queries.ListRoles(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list roles", "error", err)
		return
	}

	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, roleView{Role: role, Level: model.RoleLevel(role.Name)})
	}
	writeJSONSuccess(w, map[string]any{"roles": views})
}
