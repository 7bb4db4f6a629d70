// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/scheduler"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// ReportsHandler handles report definitions and runs.
type ReportsHandler struct {
	queries *store.Queries
	reports *service.ReportService
	events  *service.EventService
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(db *sql.DB, reports *service.ReportService, events *service.EventService) *ReportsHandler {
	return &ReportsHandler{
		queries: store.New(db),
		reports: reports,
		events:  events,
	}
}

type reportRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Schedule    *string `json:"schedule"`
}

func (req reportRequest) apply(p *store.ReportParams) map[string]string {
	errs := make(map[string]string)
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if p.Name == "" {
		errs["name"] = "Name is required"
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		p.Type = strings.TrimSpace(*req.Type)
	}
	switch {
	case p.Type == "":
		errs["type"] = "Type is required"
	case !model.IsValidReportType(p.Type):
		errs["type"] = "Invalid report type"
	}
	if req.Schedule != nil {
		p.Schedule = strings.TrimSpace(*req.Schedule)
	}
	if p.Schedule != "" {
		if err := scheduler.ValidateSchedule(p.Schedule); err != nil {
			errs["schedule"] = "Invalid cron expression"
		}
	}
	return errs
}

// List handles GET /api/admin/reports.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.queries.ListReports(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list reports", "error", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"reports": reports, "types": model.ReportTypes})
}

// Get handles GET /api/admin/reports/{id}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	report, ok := requireEntity(w, "Report", id, func(id int64) (store.Report, error) {
		return h.queries.GetReport(r.Context(), id)
	})
	if !ok {
		return
	}
	writeJSONSuccess(w, map[string]any{"report": report})
}

// Create handles POST /api/admin/reports.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var params store.ReportParams
	if errs := req.apply(&params); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	report, err := h.queries.CreateReport(r.Context(), params, middleware.GetUserIDPtr(r), time.Now().UTC())
	if err != nil {
		writeInternalError(w, "failed to create report", "error", err)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryReport, "Report created",
		map[string]any{"report_id": report.ID, "type": report.Type})
	writeJSONCreated(w, map[string]any{"report": report})
}

// Update handles PUT /api/admin/reports/{id}.
func (h *ReportsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	existing, ok := requireEntity(w, "Report", id, func(id int64) (store.Report, error) {
		return h.queries.GetReport(r.Context(), id)
	})
	if !ok {
		return
	}
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.ReportParams{
		Name:        existing.Name,
		Description: existing.Description,
		Type:        existing.Type,
		Schedule:    existing.Schedule,
	}
	if errs := req.apply(&params); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	report, err := h.queries.UpdateReport(r.Context(), id, params, time.Now().UTC())
	if err != nil {
		writeInternalError(w, "failed to update report", "error", err, "report_id", id)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryReport, "Report updated", map[string]any{"report_id": id})
	writeJSONSuccess(w, map[string]any{"report": report})
}

// Delete handles DELETE /api/admin/reports/{id}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.queries.DeleteReport(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to delete report", "error", err, "report_id", id)
		return
	}
	if n == 0 {
		writeJSONError(w, http.StatusNotFound, "Report not found")
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryReport, "Report deleted", map[string]any{"report_id": id})
	writeJSONSuccess(w, nil)
}

// Run handles POST /api/admin/reports/{id}/run.
func (h *ReportsHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	report, err := h.reports.Run(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Report not found")
			return
		}
		writeInternalError(w, "failed to run report", "error", err, "report_id", id)
		return
	}
	writeJSONSuccess(w, map[string]any{"report": report})
}
