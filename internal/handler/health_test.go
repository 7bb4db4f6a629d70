// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/cache"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

func TestHealthHealthy(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	h := NewHealthHandler(db, nil, t.TempDir())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealthDatabaseDown(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	cleanup()
	h := NewHealthHandler(db, nil, t.TempDir())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestHealthSystemReport(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	c := cache.NewMemoryCache(cache.MemoryOptions{})
	defer func() { _ = c.Close() }()
	uploads := filepath.Join(t.TempDir(), "uploads")
	h := NewHealthHandler(db, c, uploads)

	w := serve(h.System, newRequest(t, http.MethodGet, "/api/admin/system/health", nil, nil, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	health := object(t, resp, "health")
	assert.Equal(t, StatusHealthy, health["status"])
	assert.NotEmpty(t, health["uptime"])
	assert.Contains(t, object(t, health, "version"), "version")
	assert.NotEmpty(t, object(t, health, "system")["go_version"])

	checks := object(t, health, "checks")
	for _, name := range []string{"database", "disk", "uploads", "cache"} {
		check := object(t, checks, name)
		assert.Equal(t, StatusHealthy, check["status"], name)
	}

	entries, err := os.ReadDir(uploads)
	require.NoError(t, err, "uploads probe creates the directory")
	assert.Empty(t, entries, "probe file is removed")
}

func TestHealthCacheDownIsDegraded(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	c := cache.NewMemoryCache(cache.MemoryOptions{})
	require.NoError(t, c.Close())
	h := NewHealthHandler(db, c, t.TempDir())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"degraded"}`, w.Body.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
