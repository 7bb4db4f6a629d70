// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// assertJSONResponse validates common JSON response properties.
func assertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantSuccess bool) map[string]any {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("status code = %d, want %d (body %s)", w.Code, wantStatus, w.Body.String())
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if success, ok := resp["success"].(bool); !ok || success != wantSuccess {
		t.Errorf("success = %v, want %v", resp["success"], wantSuccess)
	}

	return resp
}

// fieldErrors returns the "errors" object of a 422 response.
func fieldErrors(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	errs, ok := resp["errors"].(map[string]any)
	require.True(t, ok, "response has no errors object: %v", resp)
	return errs
}

// newRequest builds a request acting as user. body may be nil, a raw string
// or any value that is JSON encoded. params become chi URL parameters.
func newRequest(t *testing.T, method, target string, body any, user *store.User, params map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if user != nil {
		ctx = context.WithValue(ctx, middleware.ContextKeyUser, *user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func idParam(id int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(id, 10)}
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

// object returns resp[key] as a JSON object.
func object(t *testing.T, resp map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := resp[key].(map[string]any)
	require.True(t, ok, "%q is not an object: %v", key, resp[key])
	return v
}

// list returns resp[key] as a JSON array.
func list(t *testing.T, resp map[string]any, key string) []any {
	t.Helper()
	v, ok := resp[key].([]any)
	require.True(t, ok, "%q is not an array: %v", key, resp[key])
	return v
}

func int64Of(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}
