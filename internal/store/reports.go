// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"time"
)

// Report is a saved summary definition and its most recent result.
type Report struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Schedule    string          `json:"schedule"`
	LastRunAt   *time.Time      `json:"last_run_at"`
	LastResult  json.RawMessage `json:"last_result"`
	CreatedBy   *int64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

const reportColumns = `id, name, description, type, schedule, last_run_at, last_result, created_by,
	created_at, updated_at`

func scanReport(r rowScanner) (Report, error) {
	var rep Report
	var result string
	err := r.Scan(&rep.ID, &rep.Name, &rep.Description, &rep.Type, &rep.Schedule, &rep.LastRunAt, &result,
		&rep.CreatedBy, &rep.CreatedAt, &rep.UpdatedAt)
	if result != "" {
		rep.LastResult = json.RawMessage(result)
	} else {
		rep.LastResult = json.RawMessage("null")
	}
	return rep, err
}

// ReportParams holds the writable report fields.
type ReportParams struct {
	Name        string
	Description string
	Type        string
	Schedule    string
}

// CreateReport inserts a report definition.
func (q *Queries) CreateReport(ctx context.Context, arg ReportParams, createdBy *int64, now time.Time) (Report, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO reports (name, description, type, schedule, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Description, arg.Type, arg.Schedule, createdBy, now, now)
	if err != nil {
		return Report{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Report{}, err
	}
	return q.GetReport(ctx, id)
}

// GetReport returns sql.ErrNoRows for unknown ids.
func (q *Queries) GetReport(ctx context.Context, id int64) (Report, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// ListReports returns every report by name.
func (q *Queries) ListReports(ctx context.Context) ([]Report, error) {
	return q.listReports(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY name, id`)
}

// ListScheduledReports returns reports that carry a cron schedule.
func (q *Queries) ListScheduledReports(ctx context.Context) ([]Report, error) {
	return q.listReports(ctx, `SELECT `+reportColumns+` FROM reports WHERE schedule != '' ORDER BY id`)
}

func (q *Queries) listReports(ctx context.Context, query string) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reports := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// UpdateReport overwrites the definition fields.
func (q *Queries) UpdateReport(ctx context.Context, id int64, arg ReportParams, now time.Time) (Report, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE reports SET name = ?, description = ?, type = ?, schedule = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Description, arg.Type, arg.Schedule, now, id)
	if err != nil {
		return Report{}, err
	}
	return q.GetReport(ctx, id)
}

// SaveReportResult stores the output of a run.
func (q *Queries) SaveReportResult(ctx context.Context, id int64, result []byte, ranAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE reports SET last_result = ?, last_run_at = ? WHERE id = ?`, string(result), ranAt, id)
	return err
}

// DeleteReport removes a report and returns the number of deleted rows.
func (q *Queries) DeleteReport(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
