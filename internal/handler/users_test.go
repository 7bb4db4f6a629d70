// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/auth"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

func newUsersTest(t *testing.T) (*sql.DB, *UsersHandler, store.User) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	return db, NewUsersHandler(db, service.NewEventService(db)), admin
}

func TestUsersCreate(t *testing.T) {
	db, h, admin := newUsersTest(t)

	w := serve(h.Create, newRequest(t, http.MethodPost, "/api/admin/users", map[string]any{
		"name":             "Field Engineer",
		"email":            "  Engineer@Example.COM ",
		"password":         "turbine-blade-9",
		"confirm_password": "turbine-blade-9",
		"role":             model.RoleEditor,
	}, &admin, nil))

	resp := assertJSONResponse(t, w, http.StatusCreated, true)
	user := object(t, resp, "user")
	assert.Equal(t, "engineer@example.com", user["email"])
	assert.Equal(t, model.UserStatusActive, user["status"])
	assert.NotContains(t, user, "password_hash")

	stored, err := store.New(db).GetUserByID(context.Background(), int64Of(user["id"]))
	require.NoError(t, err)
	ok, err := auth.CheckPassword("turbine-blade-9", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUsersCreateValidation(t *testing.T) {
	_, h, admin := newUsersTest(t)

	valid := func() map[string]any {
		return map[string]any{
			"name":             "Field Engineer",
			"email":            "engineer@example.com",
			"password":         "turbine-blade-9",
			"confirm_password": "turbine-blade-9",
			"role":             model.RoleEditor,
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		field   string
		wantMsg string
	}{
		{"short password", func(b map[string]any) {
			b["password"], b["confirm_password"] = "short", "short"
		}, "password", "Password must be at least 8 characters"},
		{"password mismatch", func(b map[string]any) {
			b["confirm_password"] = "turbine-blade-0"
		}, "confirm_password", "Passwords do not match"},
		{"bad email", func(b map[string]any) { b["email"] = "engineer" }, "email", "Invalid email format"},
		{"taken email", func(b map[string]any) { b["email"] = "ADMIN@example.com" }, "email", "Email already exists"},
		{"short name", func(b map[string]any) { b["name"] = "E" }, "name", "Name must be at least 2 characters"},
		{"unknown role", func(b map[string]any) { b["role"] = "owner" }, "role", "Invalid role"},
		{"role above own", func(b map[string]any) { b["role"] = model.RoleSuperAdmin }, "role", "Cannot assign a role above your own"},
		{"bad status", func(b map[string]any) { b["status"] = "banned" }, "status", "Invalid status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)
			w := serve(h.Create, newRequest(t, http.MethodPost, "/api/admin/users", body, &admin, nil))

			resp := assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
			assert.Equal(t, "Validation failed", resp["error"])
			assert.Equal(t, tt.wantMsg, fieldErrors(t, resp)[tt.field])
		})
	}
}

func TestUsersListFilters(t *testing.T) {
	db, h, admin := newUsersTest(t)
	testutil.CreateUser(t, db, "editor@example.com", model.RoleEditor)
	testutil.CreateUser(t, db, "author@example.com", model.RoleAuthor)

	w := serve(h.List, newRequest(t, http.MethodGet, "/api/admin/users", nil, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Len(t, list(t, resp, "users"), 3)
	assert.Equal(t, float64(3), resp["total"])
	assert.Equal(t, float64(1), resp["pages"])

	w = serve(h.List, newRequest(t, http.MethodGet, "/api/admin/users?role=editor", nil, &admin, nil))
	resp = assertJSONResponse(t, w, http.StatusOK, true)
	users := list(t, resp, "users")
	require.Len(t, users, 1)
	assert.Equal(t, "editor@example.com", users[0].(map[string]any)["email"])

	w = serve(h.List, newRequest(t, http.MethodGet, "/api/admin/users?per_page=2&page=2", nil, &admin, nil))
	resp = assertJSONResponse(t, w, http.StatusOK, true)
	assert.Len(t, list(t, resp, "users"), 1)
	assert.Equal(t, float64(2), resp["pages"])
}

func TestUsersGetNotFound(t *testing.T) {
	_, h, admin := newUsersTest(t)

	w := serve(h.Get, newRequest(t, http.MethodGet, "/api/admin/users/999", nil, &admin, idParam(999)))
	resp := assertJSONResponse(t, w, http.StatusNotFound, false)
	assert.Equal(t, "User not found", resp["error"])
}

func TestUsersUpdate(t *testing.T) {
	db, h, admin := newUsersTest(t)
	author := testutil.CreateUser(t, db, "author@example.com", model.RoleAuthor)

	w := serve(h.Update, newRequest(t, http.MethodPut, "/api/admin/users/x", map[string]any{
		"name":             "Promoted Author",
		"role":             model.RoleEditor,
		"password":         "new-password-1",
		"confirm_password": "new-password-1",
	}, &admin, idParam(author.ID)))

	resp := assertJSONResponse(t, w, http.StatusOK, true)
	user := object(t, resp, "user")
	assert.Equal(t, "Promoted Author", user["name"])
	assert.Equal(t, model.RoleEditor, user["role"])
	assert.Equal(t, "author@example.com", user["email"])

	stored, err := store.New(db).GetUserByID(context.Background(), author.ID)
	require.NoError(t, err)
	ok, _ := auth.CheckPassword("new-password-1", stored.PasswordHash)
	assert.True(t, ok)
}

func TestUsersUpdateSelfProtection(t *testing.T) {
	_, h, admin := newUsersTest(t)

	w := serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"status": model.UserStatusInactive}, &admin, idParam(admin.ID)))
	resp := assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	assert.Equal(t, "You cannot deactivate your own account", fieldErrors(t, resp)["status"])

	w = serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"role": model.RoleEditor}, &admin, idParam(admin.ID)))
	resp = assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	assert.Equal(t, "You cannot lower your own role", fieldErrors(t, resp)["role"])
}

func TestUsersDelete(t *testing.T) {
	db, h, admin := newUsersTest(t)
	editor := testutil.CreateUser(t, db, "editor@example.com", model.RoleEditor)

	w := serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &admin, idParam(editor.ID)))
	assertJSONResponse(t, w, http.StatusOK, true)

	w = serve(h.List, newRequest(t, http.MethodGet, "/api/admin/users", nil, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	for _, u := range list(t, resp, "users") {
		assert.NotEqual(t, "editor@example.com", u.(map[string]any)["email"])
	}

	w = serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &admin, idParam(editor.ID)))
	resp = assertJSONResponse(t, w, http.StatusNotFound, false)
	assert.Equal(t, "User not found", resp["error"])
}

func TestUsersDeleteSelf(t *testing.T) {
	_, h, admin := newUsersTest(t)

	w := serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &admin, idParam(admin.ID)))
	resp := assertJSONResponse(t, w, http.StatusBadRequest, false)
	assert.Equal(t, "You cannot delete your own account", resp["error"])
}

func TestUsersBulkAssignRole(t *testing.T) {
	db, h, admin := newUsersTest(t)
	a := testutil.CreateUser(t, db, "a@example.com", model.RoleUser)
	b := testutil.CreateUser(t, db, "b@example.com", model.RoleUser)

	w := serve(h.Bulk, newRequest(t, http.MethodPost, "/api/admin/users/bulk", map[string]any{
		"action": BulkActionAssignRole,
		"ids":    []int64{a.ID, b.ID},
		"role":   model.RoleEditor,
	}, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, float64(2), resp["affected"])

	q := store.New(db)
	for _, id := range []int64{a.ID, b.ID} {
		u, err := q.GetUserByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.RoleEditor, u.Role)
	}
}

func TestUsersBulkDeleteSkipsSelf(t *testing.T) {
	db, h, admin := newUsersTest(t)
	other := testutil.CreateUser(t, db, "other@example.com", model.RoleUser)

	w := serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{
		"action": BulkActionDelete,
		"ids":    []int64{admin.ID, other.ID},
	}, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, float64(1), resp["affected"])

	_, err := store.New(db).GetUserByID(context.Background(), admin.ID)
	assert.NoError(t, err)
}

func TestUsersBulkValidation(t *testing.T) {
	_, h, admin := newUsersTest(t)

	w := serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{"action": "archive"}, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	errs := fieldErrors(t, resp)
	assert.Equal(t, "At least one user must be selected", errs["ids"])
	assert.Equal(t, "Invalid action", errs["action"])

	w = serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{
		"action": BulkActionSetStatus, "ids": []int64{1}, "status": "gone",
	}, &admin, nil))
	resp = assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	assert.Equal(t, "Invalid status", fieldErrors(t, resp)["status"])
}

func TestRolesList(t *testing.T) {
	db, _, admin := newUsersTest(t)
	h := NewRolesHandler(db)

	w := serve(h.List, newRequest(t, http.MethodGet, "/api/admin/roles", nil, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	roles := list(t, resp, "roles")
	require.Len(t, roles, len(model.Roles))
	for _, r := range roles {
		role := r.(map[string]any)
		name, _ := role["name"].(string)
		assert.Equal(t, float64(model.RoleLevel(name)), role["level"], name)
	}
}

func TestUsersCannotModifyHigherRole(t *testing.T) {
	db, h, admin := newUsersTest(t)
	root := testutil.CreateUser(t, db, "root@example.com", model.RoleSuperAdmin)

	w := serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{
		"password":         "taken-over-1",
		"confirm_password": "taken-over-1",
	}, &admin, idParam(root.ID)))
	resp := assertJSONResponse(t, w, http.StatusForbidden, false)
	assert.Equal(t, msgOutranked, resp["error"])

	w = serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"status": model.UserStatusInactive}, &admin, idParam(root.ID)))
	assertJSONResponse(t, w, http.StatusForbidden, false)

	w = serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &admin, idParam(root.ID)))
	assertJSONResponse(t, w, http.StatusForbidden, false)

	for _, action := range []map[string]any{
		{"action": BulkActionDelete, "ids": []int64{root.ID}},
		{"action": BulkActionSetStatus, "ids": []int64{root.ID}, "status": model.UserStatusInactive},
		{"action": BulkActionAssignRole, "ids": []int64{root.ID}, "role": model.RoleUser},
	} {
		w = serve(h.Bulk, newRequest(t, http.MethodPost, "/", action, &admin, nil))
		assertJSONResponse(t, w, http.StatusForbidden, false)
	}

	stored, err := store.New(db).GetUserByID(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, stored.Role)
	assert.Equal(t, model.UserStatusActive, stored.Status)
	ok, _ := auth.CheckPassword(testutil.TestPassword, stored.PasswordHash)
	assert.True(t, ok, "password is unchanged")
}

func TestUsersAdminCanManagePeers(t *testing.T) {
	db, h, admin := newUsersTest(t)
	peer := testutil.CreateUser(t, db, "peer@example.com", model.RoleAdmin)

	w := serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"status": model.UserStatusInactive}, &admin, idParam(peer.ID)))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, model.UserStatusInactive, object(t, resp, "user")["status"])
}

func TestUsersLastSuperAdmin(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	h := NewUsersHandler(db, service.NewEventService(db))
	root := testutil.CreateUser(t, db, "root@example.com", model.RoleSuperAdmin)
	other := testutil.CreateUser(t, db, "other@example.com", model.RoleSuperAdmin)

	// Two super admins: one may be demoted.
	w := serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"role": model.RoleAdmin}, &root, idParam(other.ID)))
	assertJSONResponse(t, w, http.StatusOK, true)

	// other is now an admin acting on the only remaining super admin.
	other.Role = model.RoleAdmin
	w = serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &other, idParam(root.ID)))
	assertJSONResponse(t, w, http.StatusForbidden, false)

	// A super admin session without an active super admin row behind it
	// still cannot remove the last one.
	ghost := store.User{ID: 424242, Role: model.RoleSuperAdmin}
	w = serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"role": model.RoleAdmin}, &ghost, idParam(root.ID)))
	resp := assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	assert.Equal(t, "Cannot demote the last active super admin", fieldErrors(t, resp)["role"])

	w = serve(h.Update, newRequest(t, http.MethodPut, "/", map[string]any{"status": model.UserStatusInactive}, &ghost, idParam(root.ID)))
	resp = assertJSONResponse(t, w, http.StatusUnprocessableEntity, false)
	assert.Equal(t, "Cannot deactivate the last active super admin", fieldErrors(t, resp)["status"])

	w = serve(h.Delete, newRequest(t, http.MethodDelete, "/", nil, &ghost, idParam(root.ID)))
	resp = assertJSONResponse(t, w, http.StatusBadRequest, false)
	assert.Equal(t, msgLastSuperAdminGone, resp["error"])

	w = serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{
		"action": BulkActionSetStatus, "ids": []int64{root.ID}, "status": model.UserStatusInactive,
	}, &ghost, nil))
	resp = assertJSONResponse(t, w, http.StatusBadRequest, false)
	assert.Equal(t, msgLastSuperAdminGone, resp["error"])

	stored, err := store.New(db).GetUserByID(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, stored.Role)
	assert.Equal(t, model.UserStatusActive, stored.Status)
}

func TestUsersBulkSkipsSelf(t *testing.T) {
	db, h, admin := newUsersTest(t)
	other := testutil.CreateUser(t, db, "other@example.com", model.RoleEditor)

	w := serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{
		"action": BulkActionAssignRole, "ids": []int64{admin.ID, other.ID}, "role": model.RoleUser,
	}, &admin, nil))
	resp := assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, float64(1), resp["affected"])

	w = serve(h.Bulk, newRequest(t, http.MethodPost, "/", map[string]any{
		"action": BulkActionSetStatus, "ids": []int64{admin.ID}, "status": model.UserStatusInactive,
	}, &admin, nil))
	resp = assertJSONResponse(t, w, http.StatusOK, true)
	assert.Equal(t, float64(0), resp["affected"])

	self, err := store.New(db).GetUserByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, self.Role)
	assert.Equal(t, model.UserStatusActive, self.Status)
}
