// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
)

// Role is a named permission set assigned to users.
type Role struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Permissions model.StringList `json:"permissions"`
	UserCount   int64            `json:"user_count"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ListRoles returns every role with the number of users holding it.
func (q *Queries) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.permissions, r.created_at, COUNT(u.id)
		FROM roles r
		LEFT JOIN users u ON u.role = r.name
		GROUP BY r.id
		ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt, &r.UserCount); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRoleByName returns sql.ErrNoRows for unknown roles.
func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var r Role
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, description, permissions, created_at FROM roles WHERE name = ?`, name).
		Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt)
	return r, err
}
