// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/greenpower-cms/internal/cache"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/scheduler"
	"github.com/olegiv/greenpower-cms/internal/service"
)

// SystemHandler handles cache and scheduled job administration.
type SystemHandler struct {
	cache    cache.Cache
	registry *scheduler.Registry
	events   *service.EventService
}

// NewSystemHandler creates a new SystemHandler. registry may be nil when the
// scheduler is disabled.
func NewSystemHandler(c cache.Cache, registry *scheduler.Registry, events *service.EventService) *SystemHandler {
	return &SystemHandler{cache: c, registry: registry, events: events}
}

// CacheStats handles GET /api/admin/system/cache.
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"stats": h.cache.Stats(), "healthy": true}
	if err := h.cache.Ping(r.Context()); err != nil {
		data["healthy"] = false
		data["health_error"] = err.Error()
	}
	writeJSONSuccess(w, data)
}

// ClearCache handles DELETE /api/admin/system/cache.
func (h *SystemHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.DeletePrefix(r.Context(), ""); err != nil {
		writeInternalError(w, "failed to clear cache", "error", err)
		return
	}
	_ = h.events.LogInfo(r.Context(), model.EventCategoryCache, "Cache cleared", nil)
	writeJSONSuccess(w, map[string]any{"stats": h.cache.Stats()})
}

// Jobs handles GET /api/admin/system/jobs.
func (h *SystemHandler) Jobs(w http.ResponseWriter, _ *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.registry != nil {
		jobs = h.registry.List()
	}
	writeJSONSuccess(w, map[string]any{"jobs": jobs})
}

type jobScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateJobSchedule handles PUT /api/admin/system/jobs/{name}.
// The new schedule lasts until restart.
func (h *SystemHandler) UpdateJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.registry == nil {
		writeJSONError(w, http.StatusNotFound, "Job not found")
		return
	}
	var req jobScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := scheduler.ValidateSchedule(req.Schedule); err != nil {
		writeValidationError(w, map[string]string{"schedule": "Invalid cron expression"})
		return
	}
	if err := h.registry.UpdateSchedule(name, req.Schedule); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeJSONError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeInternalError(w, "failed to update job schedule", "error", err, "job", name)
		return
	}
	_ = h.events.LogInfo(r.Context(), model.EventCategorySystem, "Job schedule changed",
		map[string]any{"job": name, "schedule": req.Schedule})
	writeJSONSuccess(w, map[string]any{"jobs": h.registry.List()})
}

// TriggerJob handles POST /api/admin/system/jobs/{name}/run.
func (h *SystemHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.registry == nil {
		writeJSONError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err := h.registry.TriggerNow(name); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrJobNotFound):
			writeJSONError(w, http.StatusNotFound, "Job not found")
			return
		case errors.Is(err, scheduler.ErrNotTriggerable):
			writeJSONError(w, http.StatusConflict, "Job cannot be run manually")
			return
		}
		writeInternalError(w, "manual job run failed", "error", err, "job", name)
		return
	}
	_ = h.events.LogInfo(r.Context(), model.EventCategorySystem, "Job triggered manually", map[string]any{"job": name})
	writeJSONSuccess(w, map[string]any{"job": name})
}
