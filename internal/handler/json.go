// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the JSON admin API.
package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

// Pagination defaults. maxPage keeps the row offset far from overflow.
const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxPage        = math.MaxInt32 / maxPerPage
)

// internalErrorBody is sent when a response cannot be encoded.
const internalErrorBody = `{"error":"Internal Server Error","success":false}` + "\n"

// writeJSON writes v with the given status code.
// v is encoded before any header is sent so an encoding failure becomes a 500.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err, "status", statusCode)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, internalErrorBody)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	writeJSONStatus(w, http.StatusOK, data)
}

// writeJSONCreated writes a 201 success response.
func writeJSONCreated(w http.ResponseWriter, data map[string]any) {
	writeJSONStatus(w, http.StatusCreated, data)
}

// writeJSONFailure writes a {success:false} response carrying extra keys.
func writeJSONFailure(w http.ResponseWriter, statusCode int, message string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = false
	data["error"] = message
	writeJSON(w, statusCode, data)
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, statusCode, data)
}

// writeValidationError writes 422 with per-field messages.
func writeValidationError(w http.ResponseWriter, errs map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"error":   "Validation failed",
		"errors":  errs,
	})
}

// writeInternalError logs err and writes a generic 500.
func writeInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
}

// decodeJSON decodes the request body into dst and writes 400 on failure.
// An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
	return false
}

// parseIDParam reads the {id} route parameter and writes 400 when it is not a positive integer.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

// pagination is a parsed page/per_page pair.
type pagination struct {
	Page    int
	PerPage int
}

func parsePagination(r *http.Request) pagination {
	p := pagination{Page: 1, PerPage: defaultPerPage}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Page = min(n, maxPage)
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 {
		p.PerPage = min(n, maxPerPage)
	}
	return p
}

func (p pagination) limit() int64  { return int64(p.PerPage) }
func (p pagination) offset() int64 { return int64(p.Page-1) * int64(p.PerPage) }

// response fills the standard paging keys into data.
func (p pagination) response(data map[string]any, total int64) map[string]any {
	pages := (total + int64(p.PerPage) - 1) / int64(p.PerPage)
	data["total"] = total
	data["page"] = p.Page
	data["per_page"] = p.PerPage
	data["pages"] = pages
	return data
}

// requireEntity fetches an entity by ID using the provided query function.
// On error, it writes a JSON error response. Returns the entity and true if successful,
// or zero value and false if an error occurred (response already written).
//
// Example usage:
//
//	project, ok := requireEntity(w, "Project", id,
//	    func(id int64) (store.Project, error) { return h.queries.GetProject(r.Context(), id) })
func requireEntity[T any](
	w http.ResponseWriter,
	entityName string,
	id int64,
	queryFn func(id int64) (T, error),
) (T, bool) {
	var zero T
	entity, err := queryFn(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, entityName+" not found")
		} else {
			writeInternalError(w, "failed to get "+entityName, "error", err, "id", id)
		}
		return zero, false
	}
	return entity, true
}

// queryInt64 parses an optional integer query parameter; invalid values read as 0.
func queryInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return n
}
