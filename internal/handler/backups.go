// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// BackupsHandler manages backup records. No archive is produced.
type BackupsHandler struct {
	queries *store.Queries
	events  *service.EventService
}

// NewBackupsHandler creates a new BackupsHandler.
func NewBackupsHandler(db *sql.DB, events *service.EventService) *BackupsHandler {
	return &BackupsHandler{
		queries: store.New(db),
		events:  events,
	}
}

type backupRequest struct {
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	Tables        model.StringList `json:"tables"`
	RetentionDays *int64           `json:"retention_days"`
}

type backupStatusRequest struct {
	Status string `json:"status"`
	Size   *int64 `json:"size"`
}

// List handles GET /api/admin/backups.
func (h *BackupsHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.queries.ListBackups(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list backups", "error", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"backups": backups, "total": len(backups)})
}

// Get handles GET /api/admin/backups/{id}.
func (h *BackupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	backup, ok := h.requireBackup(w, r)
	if !ok {
		return
	}
	writeJSONSuccess(w, map[string]any{"backup": backup, "expires_at": backup.ExpiresAt()})
}

// Create handles POST /api/admin/backups. The record starts as pending.
func (h *BackupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	params := store.CreateBackupParams{
		Name:          strings.TrimSpace(req.Name),
		Type:          strings.TrimSpace(req.Type),
		Tables:        req.Tables,
		RetentionDays: model.DefaultBackupRetentionDays,
		CreatedBy:     middleware.GetUserIDPtr(r),
		CreatedAt:     now,
	}
	if params.Type == "" {
		params.Type = model.BackupTypeFull
	}
	if params.Name == "" {
		params.Name = params.Type + "-" + now.Format("20060102-150405")
	}
	if params.Tables == nil {
		params.Tables = model.StringList{}
	}
	if req.RetentionDays != nil {
		params.RetentionDays = *req.RetentionDays
	}

	errs := make(map[string]string)
	if !model.IsValidBackupType(params.Type) {
		errs["type"] = "Invalid backup type"
	}
	if params.Type == model.BackupTypeTables && len(params.Tables) == 0 {
		errs["tables"] = "Select at least one table"
	}
	if params.RetentionDays < 1 || params.RetentionDays > model.MaxBackupRetentionDays {
		errs["retention_days"] = "Retention must be between 1 and 3650 days"
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	backup, err := h.queries.CreateBackup(r.Context(), params)
	if err != nil {
		writeInternalError(w, "failed to create backup record", "error", err)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryBackup, "Backup requested",
		map[string]any{"backup_id": backup.ID, "type": backup.Type})
	writeJSONCreated(w, map[string]any{"backup": backup})
}

// UpdateStatus handles PUT /api/admin/backups/{id}/status.
func (h *BackupsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	backup, ok := h.requireBackup(w, r)
	if !ok {
		return
	}
	var req backupStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	errs := make(map[string]string)
	if !model.IsValidBackupStatus(req.Status) {
		errs["status"] = "Invalid status"
	} else if !model.CanTransitionBackup(backup.Status, req.Status) {
		errs["status"] = "Cannot change status from " + backup.Status + " to " + req.Status
	}
	size := backup.Size
	if req.Size != nil {
		if size = *req.Size; size < 0 {
			errs["size"] = "Size cannot be negative"
		}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	var completedAt *time.Time
	if model.IsFinalBackupStatus(req.Status) {
		now := time.Now().UTC()
		completedAt = &now
	}

	updated, err := h.queries.UpdateBackupStatus(r.Context(), backup.ID, req.Status, size, completedAt)
	if err != nil {
		writeInternalError(w, "failed to update backup status", "error", err, "backup_id", backup.ID)
		return
	}

	level := model.EventLevelInfo
	if req.Status == model.BackupStatusFailed {
		level = model.EventLevelError
	}
	_ = h.events.LogEvent(r.Context(), level, model.EventCategoryBackup, "Backup status changed",
		map[string]any{"backup_id": backup.ID, "from": backup.Status, "to": req.Status})
	writeJSONSuccess(w, map[string]any{"backup": updated})
}

// Delete handles DELETE /api/admin/backups/{id}.
func (h *BackupsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.queries.DeleteBackup(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to delete backup", "error", err, "backup_id", id)
		return
	}
	if n == 0 {
		writeJSONError(w, http.StatusNotFound, "Backup not found")
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryBackup, "Backup deleted", map[string]any{"backup_id": id})
	writeJSONSuccess(w, nil)
}

func (h *BackupsHandler) requireBackup(w http.ResponseWriter, r *http.Request) (store.Backup, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return store.Backup{}, false
	}
	return requireEntity(w, "Backup", id, func(id int64) (store.Backup, error) {
		return h.queries.GetBackup(r.Context(), id)
	})
}
