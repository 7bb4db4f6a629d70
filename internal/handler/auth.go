// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/greenpower-cms/internal/auth"
	"github.com/olegiv/greenpower-cms/internal/middleware"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/session"
	"github.com/olegiv/greenpower-cms/internal/store"
)

const msgInvalidCredentials = "Invalid email or password"

// AuthHandler handles session login and logout.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	events          *service.EventService
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, lp *middleware.LoginProtection, events *service.EventService) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		loginProtection: lp,
		events:          events,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	errs := make(map[string]string)
	if email == "" {
		errs["email"] = "Email is required"
	}
	if req.Password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			_ = h.events.LogWarning(r.Context(), model.EventCategoryAuth, "Login attempt on locked account",
				map[string]any{"email": email})
			writeJSONError(w, http.StatusTooManyRequests,
				"Account temporarily locked. Try again in "+formatDuration(remaining))
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			writeInternalError(w, "database error during login", "error", err)
			return
		}
		auth.BurnCheck(req.Password)
		slog.Debug("login attempt for non-existent user", "email", email)
		_ = h.events.LogWarning(r.Context(), model.EventCategoryAuth, "Login failed: user not found",
			map[string]any{"email": email})
		h.loginFailed(w, r, email)
		return
	}

	valid, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
	}
	if !valid {
		_ = h.events.LogWarning(r.Context(), model.EventCategoryAuth, "Login failed: invalid password",
			map[string]any{"email": email, "user_id": user.ID})
		h.loginFailed(w, r, email)
		return
	}

	if user.Status != model.UserStatusActive {
		_ = h.events.LogWarning(r.Context(), model.EventCategoryAuth, "Login refused: account inactive",
			map[string]any{"user_id": user.ID})
		writeJSONError(w, http.StatusForbidden, "Account is inactive")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	now := time.Now().UTC()
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash, now); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), user.ID, now); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	} else {
		user.LastLoginAt = &now
	}

	if err := session.Login(r.Context(), h.sessionManager, user.ID); err != nil {
		writeInternalError(w, "session renewal error", "error", err, "user_id", user.ID)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.events.LogInfo(r.Context(), model.EventCategoryAuth, "User logged in",
		map[string]any{"user_id": user.ID})
	writeJSONSuccess(w, map[string]any{"user": user})
}

// loginFailed records the failure and answers 401, or 429 once the account locks.
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, email string) {
	if h.loginProtection == nil {
		writeJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
		_ = h.events.LogWarning(r.Context(), model.EventCategoryAuth, "Account locked due to failed attempts",
			map[string]any{"email": email, "duration": lockDuration.String()})
		writeJSONError(w, http.StatusTooManyRequests,
			"Too many failed attempts. Try again in "+formatDuration(lockDuration))
		return
	}
	writeJSONFailure(w, http.StatusUnauthorized, msgInvalidCredentials, map[string]any{
		"remaining_attempts": h.loginProtection.RemainingAttempts(email),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(r.Context(), h.sessionManager)
	if userID > 0 {
		_ = h.events.LogInfo(r.Context(), model.EventCategoryAuth, "User logged out",
			map[string]any{"user_id": userID})
	}
	if err := session.Logout(r.Context(), h.sessionManager); err != nil {
		slog.Error("session destroy error", "error", err)
	}
	slog.Info("user logged out", "user_id", userID)
	writeJSONSuccess(w, nil)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSONSuccess(w, map[string]any{
		"user":       user,
		"role_level": model.RoleLevel(user.Role),
	})
}

// formatDuration formats a lockout duration for messages.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
