// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/auth"
	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/util"
)

// Bulk user actions.
const (
	BulkActionDelete     = "delete"
	BulkActionAssignRole = "assign_role"
	BulkActionSetStatus  = "set_status"
)

// UsersHandler handles user management routes.
type UsersHandler struct {
	db      *sql.DB
	queries *store.Queries
	events  *service.EventService
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(db *sql.DB, events *service.EventService) *UsersHandler {
	return &UsersHandler{
		db:      db,
		queries: store.New(db),
		events:  events,
	}
}

// userRequest is the body of create and update calls. Nil fields are
// left unchanged on update.
type userRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	Role            *string `json:"role"`
	Status          *string `json:"status"`
}

// Messages for role hierarchy violations.
const (
	msgOutranked          = "Cannot modify a user with a higher role"
	msgLastSuperAdminGone = "Cannot remove the last active super admin"
)

// errLastSuperAdmin aborts a bulk change that would leave no active super admin.
var errLastSuperAdmin = errors.New("last active super admin")

type bulkUsersRequest struct {
	Action string  `json:"action"`
	IDs    []int64 `json:"ids"`
	Role   string  `json:"role"`
	Status string  `json:"status"`
}

// List handles GET /api/admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.UserFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	p := parsePagination(r)

	total, err := h.queries.CountUsers(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to count users", "error", err)
		return
	}
	users, err := h.queries.ListUsers(r.Context(), filter, p.limit(), p.offset())
	if err != nil {
		writeInternalError(w, "failed to list users", "error", err)
		return
	}

	writeJSONSuccess(w, p.response(map[string]any{"users": users}, total))
}

// Get handles GET /api/admin/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	user, ok := requireEntity(w, "User", id, func(id int64) (store.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}
	writeJSONSuccess(w, map[string]any{"user": user})
}

// Create handles POST /api/admin/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(util.Deref(req.Name))
	email := strings.ToLower(strings.TrimSpace(util.Deref(req.Email)))
	role := strings.TrimSpace(util.Deref(req.Role))
	status := strings.TrimSpace(util.Deref(req.Status))
	if status == "" {
		status = model.UserStatusActive
	}

	errs := make(map[string]string)
	if msg := validateName(name); msg != "" {
		errs["name"] = msg
	}
	h.validateEmail(r, email, 0, errs)
	if msg := validatePassword(req.Password, req.ConfirmPassword, true); msg != "" {
		errs[passwordErrorField(msg)] = msg
	}
	if msg := validateRoleFor(middleware.GetUser(r), role); msg != "" {
		errs["role"] = msg
	}
	if !model.IsValidUserStatus(status) {
		errs["status"] = "Invalid status"
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "failed to hash password", "error", err)
		return
	}

	now := time.Now().UTC()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeValidationError(w, map[string]string{"email": "Email already exists"})
			return
		}
		writeInternalError(w, "failed to create user", "error", err)
		return
	}

	slog.Info("user created", "user_id", user.ID, "email", user.Email, "created_by", middleware.GetUserID(r))
	_ = h.events.LogInfo(r.Context(), model.EventCategoryUser, "User created",
		map[string]any{"user_id": user.ID, "email": user.Email, "role": user.Role})

	writeJSONCreated(w, map[string]any{"user": user})
}

// Update handles PUT /api/admin/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	existing, ok := requireEntity(w, "User", id, func(id int64) (store.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if outranks(middleware.GetUser(r), existing) {
		writeJSONError(w, http.StatusForbidden, msgOutranked)
		return
	}

	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateUserParams{
		ID:     id,
		Name:   existing.Name,
		Email:  existing.Email,
		Role:   existing.Role,
		Status: existing.Status,
	}
	errs := make(map[string]string)

	if req.Name != nil {
		params.Name = strings.TrimSpace(*req.Name)
		if msg := validateName(params.Name); msg != "" {
			errs["name"] = msg
		}
	}
	if req.Email != nil {
		params.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		if params.Email != existing.Email {
			h.validateEmail(r, params.Email, id, errs)
		}
	}
	if req.Role != nil && *req.Role != existing.Role {
		params.Role = strings.TrimSpace(*req.Role)
		if msg := validateRoleFor(middleware.GetUser(r), params.Role); msg != "" {
			errs["role"] = msg
		}
	}
	if req.Status != nil {
		params.Status = strings.TrimSpace(*req.Status)
		if !model.IsValidUserStatus(params.Status) {
			errs["status"] = "Invalid status"
		}
	}
	if req.Password != "" || req.ConfirmPassword != "" {
		if msg := validatePassword(req.Password, req.ConfirmPassword, true); msg != "" {
			errs[passwordErrorField(msg)] = msg
		}
	}
	if id == middleware.GetUserID(r) {
		if params.Status != model.UserStatusActive {
			errs["status"] = "You cannot deactivate your own account"
		}
		if model.RoleLevel(params.Role) < model.RoleLevel(existing.Role) {
			errs["role"] = "You cannot lower your own role"
		}
	}
	if params.Role != model.RoleSuperAdmin || params.Status != model.UserStatusActive {
		last, err := isLastSuperAdmin(r.Context(), h.queries, existing)
		if err != nil {
			writeInternalError(w, "failed to count super admins", "error", err)
			return
		}
		if last && params.Role != model.RoleSuperAdmin {
			errs["role"] = "Cannot demote the last active super admin"
		} else if last {
			errs["status"] = "Cannot deactivate the last active super admin"
		}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	var hash string
	if req.Password != "" {
		var err error
		if hash, err = auth.HashPassword(req.Password); err != nil {
			writeInternalError(w, "failed to hash password", "error", err)
			return
		}
	}

	now := time.Now().UTC()
	params.UpdatedAt = now
	var user store.User
	err := store.RunInTx(r.Context(), h.db, func(q *store.Queries) error {
		var err error
		if user, err = q.UpdateUser(r.Context(), params); err != nil {
			return err
		}
		if hash != "" {
			return q.UpdateUserPassword(r.Context(), id, hash, now)
		}
		return nil
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeValidationError(w, map[string]string{"email": "Email already exists"})
			return
		}
		writeInternalError(w, "failed to update user", "error", err, "user_id", id)
		return
	}

	metadata := map[string]any{"user_id": id, "email": user.Email}
	if hash != "" {
		metadata["password_changed"] = true
	}
	_ = h.events.LogInfo(r.Context(), model.EventCategoryUser, "User updated", metadata)

	writeJSONSuccess(w, map[string]any{"user": user})
}

// Delete handles DELETE /api/admin/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if id == middleware.GetUserID(r) {
		writeJSONError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	target, ok := requireEntity(w, "User", id, func(id int64) (store.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
	if !ok {
		return
	}
	if outranks(middleware.GetUser(r), target) {
		writeJSONError(w, http.StatusForbidden, msgOutranked)
		return
	}
	last, err := isLastSuperAdmin(r.Context(), h.queries, target)
	if err != nil {
		writeInternalError(w, "failed to count super admins", "error", err)
		return
	}
	if last {
		writeJSONError(w, http.StatusBadRequest, msgLastSuperAdminGone)
		return
	}

	n, err := h.queries.DeleteUser(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to delete user", "error", err, "user_id", id)
		return
	}
	if n == 0 {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryUser, "User deleted", map[string]any{"user_id": id})
	writeJSONSuccess(w, nil)
}

// Bulk handles POST /api/admin/users/bulk. All changes share one transaction.
func (h *UsersHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkUsersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	errs := make(map[string]string)
	if len(req.IDs) == 0 {
		errs["ids"] = "At least one user must be selected"
	}
	switch req.Action {
	case BulkActionDelete:
	case BulkActionAssignRole:
		if msg := validateRoleFor(middleware.GetUser(r), req.Role); msg != "" {
			errs["role"] = msg
		}
	case BulkActionSetStatus:
		if !model.IsValidUserStatus(req.Status) {
			errs["status"] = "Invalid status"
		}
	default:
		errs["action"] = "Invalid action"
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	// The caller's own account is never changed in bulk.
	self := middleware.GetUserID(r)
	ids := slices.DeleteFunc(slices.Clone(req.IDs), func(id int64) bool { return id == self })

	targets, err := h.queries.GetUsersByIDs(r.Context(), ids)
	if err != nil {
		writeInternalError(w, "failed to load users for bulk action", "error", err)
		return
	}
	actor := middleware.GetUser(r)
	for _, target := range targets {
		if outranks(actor, target) {
			writeJSONError(w, http.StatusForbidden, msgOutranked)
			return
		}
	}

	now := time.Now().UTC()
	var affected int64
	err = store.RunInTx(r.Context(), h.db, func(q *store.Queries) error {
		before, err := q.CountActiveUsersWithRole(r.Context(), model.RoleSuperAdmin)
		if err != nil {
			return err
		}
		switch req.Action {
		case BulkActionDelete:
			affected, err = q.DeleteUsers(r.Context(), ids)
		case BulkActionAssignRole:
			affected, err = q.SetUsersRole(r.Context(), ids, req.Role, now)
		case BulkActionSetStatus:
			affected, err = q.SetUsersStatus(r.Context(), ids, req.Status, now)
		}
		if err != nil {
			return err
		}
		after, err := q.CountActiveUsersWithRole(r.Context(), model.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if before > 0 && after == 0 {
			return errLastSuperAdmin
		}
		return nil
	})
	if errors.Is(err, errLastSuperAdmin) {
		writeJSONError(w, http.StatusBadRequest, msgLastSuperAdminGone)
		return
	}
	if err != nil {
		writeInternalError(w, "bulk user action failed", "error", err, "action", req.Action)
		return
	}

	_ = h.events.LogInfo(r.Context(), model.EventCategoryUser, "Bulk user action",
		map[string]any{"action": req.Action, "ids": ids, "affected": affected})

	writeJSONSuccess(w, map[string]any{"affected": affected})
}

// validateEmail adds an "email" error for bad format or an address taken by another user.
func (h *UsersHandler) validateEmail(r *http.Request, email string, excludeID int64, errs map[string]string) {
	if msg := validateEmailFormat(email); msg != "" {
		errs["email"] = msg
		return
	}
	taken, err := h.queries.EmailTaken(r.Context(), email, excludeID)
	switch {
	case err != nil:
		slog.Error("database error checking email", "error", err)
		errs["email"] = "Error checking email"
	case taken:
		errs["email"] = "Email already exists"
	}
}

func validatePassword(password, confirm string, required bool) string {
	switch {
	case password == "" && required:
		return "Password is required"
	case len(password) < model.MinPasswordLength:
		return "Password must be at least 8 characters"
	case password != confirm:
		return "Passwords do not match"
	}
	return ""
}

func passwordErrorField(msg string) string {
	if msg == "Passwords do not match" {
		return "confirm_password"
	}
	return "password"
}

// outranks reports whether target holds a role above the acting user's.
func outranks(actor *store.User, target store.User) bool {
	return actor != nil && !model.HasRole(actor.Role, target.Role)
}

// isLastSuperAdmin reports whether u is the only active super admin left.
func isLastSuperAdmin(ctx context.Context, q *store.Queries, u store.User) (bool, error) {
	if u.Role != model.RoleSuperAdmin || u.Status != model.UserStatusActive {
		return false, nil
	}
	n, err := q.CountActiveUsersWithRole(ctx, model.RoleSuperAdmin)
	return n <= 1, err
}

// validateRoleFor checks role is known and not above the acting user's own role.
func validateRoleFor(actor *store.User, role string) string {
	switch {
	case role == "":
		return "Role is required"
	case !model.IsValidRole(role):
		return "Invalid role"
	case actor != nil && !model.HasRole(actor.Role, role):
		return "Cannot assign a role above your own"
	}
	return ""
}
