// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/markup"
	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/util"
)

// dateLayout is the accepted format of project start and end dates.
const dateLayout = "2006-01-02"

// ProjectsHandler handles project CRUD routes.
type ProjectsHandler struct {
	queries *store.Queries
	events  *service.EventService
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(db *sql.DB, events *service.EventService) *ProjectsHandler {
	return &ProjectsHandler{
		queries: store.New(db),
		events:  events,
	}
}

// projectRequest is the body of create and update calls.
// Omitted fields keep their previous value on update.
type projectRequest struct {
	Title        *string           `json:"title"`
	Description  *string           `json:"description"`
	Status       *string           `json:"status"`
	Priority     *string           `json:"priority"`
	StartDate    *string           `json:"start_date"`
	EndDate      *string           `json:"end_date"`
	Budget       *model.FlexFloat  `json:"budget"`
	Spent        *model.FlexFloat  `json:"spent"`
	Currency     *string           `json:"currency"`
	Objectives   *string           `json:"objectives"`
	Deliverables *string           `json:"deliverables"`
	TeamMembers  *model.StringList `json:"team_members"`
	Tags         *model.StringList `json:"tags"`
}

// apply merges the request over p and returns field errors.
func (req projectRequest) apply(p *store.ProjectParams) map[string]string {
	errs := make(map[string]string)

	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if p.Title == "" {
		errs["title"] = "Title is required"
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil && *req.Status != "" {
		p.Status = *req.Status
	}
	if !model.IsValidProjectStatus(p.Status) {
		errs["status"] = "Invalid status"
	}
	if req.Priority != nil && *req.Priority != "" {
		p.Priority = *req.Priority
	}
	if !model.IsValidPriority(p.Priority) {
		errs["priority"] = "Invalid priority"
	}
	if req.StartDate != nil {
		p.StartDate = util.OptionalString(strings.TrimSpace(*req.StartDate))
	}
	if msg := validateDate(p.StartDate); msg != "" {
		errs["start_date"] = msg
	}
	if req.EndDate != nil {
		p.EndDate = util.OptionalString(strings.TrimSpace(*req.EndDate))
	}
	if msg := validateDate(p.EndDate); msg != "" {
		errs["end_date"] = msg
	}
	if req.Budget != nil {
		p.Budget = req.Budget.Float64()
	}
	if req.Spent != nil {
		p.Spent = req.Spent.Float64()
	}
	if req.Currency != nil && strings.TrimSpace(*req.Currency) != "" {
		p.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if len(p.Currency) != 3 {
		errs["currency"] = "Currency must be a 3-letter code"
	}
	if req.Objectives != nil {
		p.Objectives = *req.Objectives
	}
	if req.Deliverables != nil {
		p.Deliverables = *req.Deliverables
	}
	if req.TeamMembers != nil {
		p.TeamMembers = *req.TeamMembers
	}
	if req.Tags != nil {
		p.Tags = *req.Tags
	}
	return errs
}

func validateDate(s *string) string {
	if s == nil {
		return ""
	}
	if _, err := time.Parse(dateLayout, *s); err != nil {
		return "Date must be in YYYY-MM-DD format"
	}
	return ""
}

// List handles GET /api/admin/projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.queries.ListProjects(r.Context(), store.ProjectFilter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		writeInternalError(w, "failed to list projects", "error", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"projects": projects, "total": len(projects)})
}

// Get handles GET /api/admin/projects/{id}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	project, ok := requireEntity(w, "Project", id, func(id int64) (store.Project, error) {
		return h.queries.GetProject(r.Context(), id)
	})
	if !ok {
		return
	}

	objectives, err := markup.RenderMarkdown(project.Objectives)
	if err != nil {
		slog.Warn("failed to render project objectives", "error", err, "project_id", id)
	}
	deliverables, err := markup.RenderMarkdown(project.Deliverables)
	if err != nil {
		slog.Warn("failed to render project deliverables", "error", err, "project_id", id)
	}

	writeJSONSuccess(w, map[string]any{
		"project":           project,
		"objectives_html":   objectives,
		"deliverables_html": deliverables,
	})
}

// Create handles POST /api/admin/projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.ProjectParams{
		Status:      model.ProjectStatusPlanning,
		Priority:    model.PriorityMedium,
		Currency:    model.DefaultCurrency,
		TeamMembers: model.StringList{},
		Tags:        model.StringList{},
	}
	if errs := req.apply(&params); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	project, err := h.queries.CreateProject(r.Context(), params, middleware.GetUserIDPtr(r), time.Now().UTC())
	if err != nil {
		writeInternalError(w, "failed to create project", "error", err)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryProject, "Project created",
		map[string]any{"project_id": project.ID, "title": project.Title})

	writeJSONCreated(w, map[string]any{"project": project})
}

// Update handles PUT /api/admin/projects/{id}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	existing, ok := requireEntity(w, "Project", id, func(id int64) (store.Project, error) {
		return h.queries.GetProject(r.Context(), id)
	})
	if !ok {
		return
	}

	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.ProjectParams{
		Title:        existing.Title,
		Description:  existing.Description,
		Status:       existing.Status,
		Priority:     existing.Priority,
		StartDate:    existing.StartDate,
		EndDate:      existing.EndDate,
		Budget:       existing.Budget,
		Spent:        existing.Spent,
		Currency:     existing.Currency,
		Objectives:   existing.Objectives,
		Deliverables: existing.Deliverables,
		TeamMembers:  existing.TeamMembers,
		Tags:         existing.Tags,
	}
	if errs := req.apply(&params); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	project, err := h.queries.UpdateProject(r.Context(), id, params, time.Now().UTC())
	if err != nil {
		writeInternalError(w, "failed to update project", "error", err, "project_id", id)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryProject, "Project updated",
		map[string]any{"project_id": id, "title": project.Title})

	writeJSONSuccess(w, map[string]any{"project": project})
}

// Delete handles DELETE /api/admin/projects/{id}.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.queries.DeleteProject(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to delete project", "error", err, "project_id", id)
		return
	}
	if n == 0 {
		writeJSONError(w, http.StatusNotFound, "Project not found")
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryProject, "Project deleted", map[string]any{"project_id": id})
	writeJSONSuccess(w, nil)
}
