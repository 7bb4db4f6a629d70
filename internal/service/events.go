// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business logic shared by handlers and the
// scheduler: activity logging, media storage, report runs and analytics.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/greenpower-cms/internal/logging"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// EventService writes the activity log.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{queries: store.New(db)}
}

// LogEvent appends an activity entry. User, IP and URL are taken from the
// request info stored in ctx when present.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, metadata map[string]any) error {
	arg := store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  "{}",
		CreatedAt: time.Now().UTC(),
	}
	if info, ok := logging.RequestInfoFrom(ctx); ok {
		if info.UserID > 0 {
			id := info.UserID
			arg.UserID = &id
		}
		arg.IPAddress = info.IP
		arg.RequestURL = info.URL
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			arg.Metadata = string(b)
		}
	}

	if err := s.queries.CreateEvent(ctx, arg); err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, metadata)
}

// LogError logs an error-level event.
func (s *EventService) LogError(ctx context.Context, category, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelError, category, message, metadata)
}

// DeleteOldEvents removes events older than olderThan.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().UTC().Add(-olderThan))
}
