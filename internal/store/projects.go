// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
)

// Project is a renewable-energy project shown on the site.
type Project struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Status       string           `json:"status"`
	Priority     string           `json:"priority"`
	StartDate    *string          `json:"start_date"`
	EndDate      *string          `json:"end_date"`
	Budget       float64          `json:"budget"`
	Spent        float64          `json:"spent"`
	Currency     string           `json:"currency"`
	Objectives   string           `json:"objectives"`
	Deliverables string           `json:"deliverables"`
	TeamMembers  model.StringList `json:"team_members"`
	Tags         model.StringList `json:"tags"`
	CreatedBy    *int64           `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

const projectColumns = `id, title, description, status, priority, start_date, end_date, budget, spent,
	currency, objectives, deliverables, team_members, tags, created_by, created_at, updated_at`

func scanProject(r rowScanner) (Project, error) {
	var p Project
	err := r.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &p.Priority, &p.StartDate, &p.EndDate,
		&p.Budget, &p.Spent, &p.Currency, &p.Objectives, &p.Deliverables, &p.TeamMembers, &p.Tags,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ProjectParams holds the writable project fields.
type ProjectParams struct {
	Title        string
	Description  string
	Status       string
	Priority     string
	StartDate    *string
	EndDate      *string
	Budget       float64
	Spent        float64
	Currency     string
	Objectives   string
	Deliverables string
	TeamMembers  model.StringList
	Tags         model.StringList
}

// CreateProject inserts a project and returns the stored row.
func (q *Queries) CreateProject(ctx context.Context, arg ProjectParams, createdBy *int64, now time.Time) (Project, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO projects (title, description, status, priority, start_date, end_date, budget, spent,
			currency, objectives, deliverables, team_members, tags, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Description, arg.Status, arg.Priority, arg.StartDate, arg.EndDate, arg.Budget, arg.Spent,
		arg.Currency, arg.Objectives, arg.Deliverables, arg.TeamMembers, arg.Tags, createdBy, now, now)
	if err != nil {
		return Project{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Project{}, err
	}
	return q.GetProject(ctx, id)
}

// GetProject returns sql.ErrNoRows when the project does not exist.
func (q *Queries) GetProject(ctx context.Context, id int64) (Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// UpdateProject overwrites every writable field.
func (q *Queries) UpdateProject(ctx context.Context, id int64, arg ProjectParams, now time.Time) (Project, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, description = ?, status = ?, priority = ?, start_date = ?, end_date = ?,
			budget = ?, spent = ?, currency = ?, objectives = ?, deliverables = ?, team_members = ?, tags = ?,
			updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Description, arg.Status, arg.Priority, arg.StartDate, arg.EndDate,
		arg.Budget, arg.Spent, arg.Currency, arg.Objectives, arg.Deliverables, arg.TeamMembers, arg.Tags,
		now, id)
	if err != nil {
		return Project{}, err
	}
	return q.GetProject(ctx, id)
}

// DeleteProject removes a project and returns the number of deleted rows.
func (q *Queries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	Status   string
	Priority string
	Search   string // substring of title or description
}

// ListProjects returns projects matching filter, newest first.
func (q *Queries) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	w := &whereClause{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		w.add("priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add(`(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`, p, p)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects`+w.String()+` ORDER BY created_at DESC, id DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountProjectsByStatus groups projects by status.
func (q *Queries) CountProjectsByStatus(ctx context.Context) ([]CountByKey, error) {
	return q.countGrouped(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status ORDER BY status`)
}

// ProjectBudgetTotals sums budget and spend across all projects.
func (q *Queries) ProjectBudgetTotals(ctx context.Context) (budget, spent float64, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(budget), 0), COALESCE(SUM(spent), 0) FROM projects`).Scan(&budget, &spent)
	return budget, spent, err
}
