// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/greenpower-cms/internal/logging"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/session"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the authenticated store.User.
const ContextKeyUser ContextKey = "user"

// WriteJSONError writes {"success":false,"error":message}.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// Auth rejects requests without a logged-in session with 401.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.UserID(r.Context(), sm) == 0 {
				WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser loads the session user into the request context and records
// the user in the request info used by the activity log.
// Sessions of deleted or deactivated users are destroyed and answered with 401.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := session.UserID(r.Context(), sm)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil || user.Status != model.UserStatusActive {
				if err != nil && !errors.Is(err, sql.ErrNoRows) {
					slog.Error("failed to load session user", "error", err, "user_id", userID)
				}
				_ = sm.Destroy(r.Context())
				WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = logging.WithRequestInfo(ctx, requestInfoFor(r, user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID, or nil.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// RequestInfo stores user, client IP and path in the context for the
// activity log. It may run before LoadUser, which fills in the user later.
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestInfo(r.Context(), requestInfoFor(r, GetUserID(r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestInfoFor(r *http.Request, userID int64) logging.RequestInfo {
	info, ok := logging.RequestInfoFrom(r.Context())
	if !ok {
		info = logging.RequestInfo{IP: getClientIP(r), URL: r.URL.Path}
	}
	if userID > 0 {
		info.UserID = userID
	}
	return info
}

// RequireRole creates middleware that requires a minimum user role.
// Roles are hierarchical: super_admin > admin > editor > author > user.
// If events is non-nil, denials are written to the activity log.
func RequireRole(minRole string, events *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !model.HasRole(user.Role, minRole) {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"required_role", minRole,
				)
				if events != nil {
					_ = events.LogWarning(r.Context(), model.EventCategoryAuth, "Access denied: insufficient permissions",
						map[string]any{"method": r.Method, "user_role": user.Role, "required_role": minRole})
				}
				WriteJSONError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the client address; chi's RealIP has already
// applied X-Real-IP / X-Forwarded-For to RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
