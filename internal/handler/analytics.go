// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/olegiv/greenpower-cms/internal/service"
)

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
)

// AnalyticsHandler serves dashboard figures.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// SystemUsage handles GET /api/admin/analytics/system-usage.
func (h *AnalyticsHandler) SystemUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.analytics.SystemUsage(r.Context())
	if err != nil {
		writeInternalError(w, "failed to compute system usage", "error", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"usage": usage})
}

// Performance handles GET /api/admin/analytics/performance.
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, map[string]any{"performance": h.analytics.Performance(r.Context())})
}

// Realtime handles GET /api/admin/analytics/realtime.
func (h *AnalyticsHandler) Realtime(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"realtime": h.analytics.Realtime()})
}

// Export handles GET /api/admin/analytics/export?format=csv|json.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatJSON {
		writeValidationError(w, map[string]string{"format": "Format must be csv or json"})
		return
	}

	usage, err := h.analytics.SystemUsage(r.Context())
	if err != nil {
		writeInternalError(w, "failed to compute system usage", "error", err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == ExportFormatJSON {
		contentType = "application/json"
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(usage)
	} else {
		err = service.WriteUsageCSV(&buf, usage)
	}
	if err != nil {
		writeInternalError(w, "failed to encode usage export", "error", err, "format", format)
		return
	}

	filename := "system-usage-" + usage.GeneratedAt.Format("20060102-150405") + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Last-Modified", usage.GeneratedAt.UTC().Format(http.TimeFormat))
	_, _ = w.Write(buf.Bytes())
}
