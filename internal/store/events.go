// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// Event is an activity log entry.
type Event struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	UserID     *int64    `json:"user_id"`
	IPAddress  string    `json:"ip_address"`
	RequestURL string    `json:"request_url"`
	Metadata   string    `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateEventParams holds the values for a new event.
type CreateEventParams struct {
	Level      string
	Category   string
	Message    string
	UserID     *int64
	IPAddress  string
	RequestURL string
	Metadata   string
	CreatedAt  time.Time
}

// CreateEvent appends an activity log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, category, message, user_id, ip_address, request_url, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.IPAddress, arg.RequestURL, arg.Metadata, arg.CreatedAt)
	return err
}

// EventFilter narrows ListEvents and CountEvents.
type EventFilter struct {
	Level    string
	Category string
	UserID   int64
	Since    time.Time
}

func (f EventFilter) where() *whereClause {
	w := &whereClause{}
	if f.Level != "" {
		w.add("level = ?", f.Level)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.UserID > 0 {
		w.add("user_id = ?", f.UserID)
	}
	if !f.Since.IsZero() {
		w.add("created_at >= ?", f.Since)
	}
	return w
}

// ListEvents returns matching events, newest first.
func (q *Queries) ListEvents(ctx context.Context, filter EventFilter, limit, offset int64) ([]Event, error) {
	w := filter.where()
	args := append(w.args, limit, offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, user_id, ip_address, request_url, metadata, created_at
		FROM events`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.IPAddress,
			&e.RequestURL, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents counts matching events.
func (q *Queries) CountEvents(ctx context.Context, filter EventFilter) (int64, error) {
	w := filter.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+w.String(), w.args...).Scan(&n)
	return n, err
}

// CountEventsByCategory groups events created since the given time.
func (q *Queries) CountEventsByCategory(ctx context.Context, since time.Time) ([]CountByKey, error) {
	return q.countGrouped(ctx,
		`SELECT category, COUNT(*) FROM events WHERE created_at >= ? GROUP BY category ORDER BY category`, since)
}

// DeleteEventsBefore prunes the activity log.
func (q *Queries) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
