// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/logging"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/session"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

// withSessionUser serves h inside a session that is logged in as userID (0 = anonymous).
func withSessionUser(sm *scs.SessionManager, userID int64, h http.Handler) http.Handler {
	return sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != 0 {
			sm.Put(r.Context(), session.KeyUserID, userID)
		}
		h.ServeHTTP(w, r)
	}))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRequiresSession(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	sm := session.New(db, true)

	rr := httptest.NewRecorder()
	withSessionUser(sm, 0, Auth(sm)(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Authentication required"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	withSessionUser(sm, 7, Auth(sm)(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoadUser(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	sm := session.New(db, true)
	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)

	var got *store.User
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	withSessionUser(sm, admin.ID, LoadUser(sm, db)(capture)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, admin.Email, got.Email)

	// Deactivated users lose their session.
	_, err := store.New(db).SetUsersStatus(context.Background(), []int64{admin.ID}, model.UserStatusInactive, time.Now().UTC())
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	withSessionUser(sm, admin.ID, LoadUser(sm, db)(capture)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Deleted users too.
	rr = httptest.NewRecorder()
	withSessionUser(sm, 9999, LoadUser(sm, db)(capture)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	sm := session.New(db, true)
	events := service.NewEventService(db)

	users := map[string]store.User{}
	for _, role := range model.Roles {
		users[role] = testutil.CreateUser(t, db, role+"@example.com", role)
	}

	tests := []struct {
		userRole string
		minRole  string
		want     int
	}{
		{model.RoleSuperAdmin, model.RoleAdmin, http.StatusOK},
		{model.RoleAdmin, model.RoleAdmin, http.StatusOK},
		{model.RoleEditor, model.RoleAdmin, http.StatusForbidden},
		{model.RoleEditor, model.RoleAuthor, http.StatusOK},
		{model.RoleAuthor, model.RoleAuthor, http.StatusOK},
		{model.RoleUser, model.RoleAuthor, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.userRole+"_needs_"+tt.minRole, func(t *testing.T) {
			h := LoadUser(sm, db)(RequestInfo(RequireRole(tt.minRole, events)(okHandler())))
			rr := httptest.NewRecorder()
			withSessionUser(sm, users[tt.userRole].ID, h).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/admin/users/1", nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}

	denied, err := store.New(db).CountEvents(context.Background(), store.EventFilter{Category: model.EventCategoryAuth})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, denied, int64(2))
}

func TestRequireRoleWithoutUser(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(model.RoleAuthor, nil)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequestInfo(t *testing.T) {
	var info logging.RequestInfo
	h := RequestInfo(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = logging.RequestInfoFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pages", nil)
	req.RemoteAddr = "198.51.100.4:40000"
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyUser, store.User{ID: 5}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, logging.RequestInfo{UserID: 5, IP: "198.51.100.4", URL: "/api/admin/pages"}, info)
}

func TestLoadUserRecordsActorOnEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	sm := session.New(db, true)
	events := service.NewEventService(db)
	author := testutil.CreateUser(t, db, "author@example.com", model.RoleAuthor)

	// Same order as the server: request info at the root, user loaded per group.
	r := chi.NewRouter()
	r.Use(RequestInfo)
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(Auth(sm), LoadUser(sm, db))
		r.Post("/projects", func(w http.ResponseWriter, r *http.Request) {
			_ = events.LogInfo(r.Context(), model.EventCategoryProject, "Project created", nil)
			w.WriteHeader(http.StatusCreated)
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/projects", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	rr := httptest.NewRecorder()
	withSessionUser(sm, author.ID, r).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	logged, err := store.New(db).ListEvents(context.Background(), store.EventFilter{UserID: author.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "Project created", logged[0].Message)
	require.NotNil(t, logged[0].UserID)
	assert.Equal(t, author.ID, *logged[0].UserID)
	assert.Equal(t, "198.51.100.9", logged[0].IPAddress)
	assert.Equal(t, "/api/admin/projects", logged[0].RequestURL)
}
