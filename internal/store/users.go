// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// User is a dashboard account.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const userColumns = `id, name, email, password_hash, role, status, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var u User
	err := r.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams holds the values for a new user.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Email, arg.PasswordHash, arg.Role, arg.Status, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID returns sql.ErrNoRows when no user has the id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail matches the email case-insensitively.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	return scanUser(row)
}

// EmailTaken reports whether another user (not excludeID) already uses email.
func (q *Queries) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? COLLATE NOCASE AND id != ?`, email, excludeID).Scan(&n)
	return n > 0, err
}

// UserFilter narrows ListUsers and CountUsers.
type UserFilter struct {
	Role   string
	Status string
	Search string // substring of name or email
}

func (f UserFilter) where() *whereClause {
	w := &whereClause{}
	if f.Role != "" {
		w.add("role = ?", f.Role)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`, p, p)
	}
	return w
}

// ListUsers returns users matching filter, newest first.
func (q *Queries) ListUsers(ctx context.Context, filter UserFilter, limit, offset int64) ([]User, error) {
	w := filter.where()
	args := append(w.args, limit, offset)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers counts users matching filter.
func (q *Queries) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	w := filter.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&n)
	return n, err
}

// UpdateUserParams holds the editable user fields.
type UpdateUserParams struct {
	ID        int64
	Name      string
	Email     string
	Role      string
	Status    string
	UpdatedAt time.Time
}

// UpdateUser overwrites the editable fields and returns the stored row.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, role = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Email, arg.Role, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, arg.ID)
}

// UpdateUserPassword replaces the stored hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, now, id)
	return err
}

// UpdateUserLastLogin stamps a successful login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	return err
}

// DeleteUser removes a user and returns the number of deleted rows.
func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUsers removes every user in ids.
func (q *Queries) DeleteUsers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM users WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetUsersRole assigns role to every user in ids.
func (q *Queries) SetUsersRole(ctx context.Context, ids []int64, role string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{role, now}, int64Args(ids)...)
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetUsersStatus sets status on every user in ids.
func (q *Queries) SetUsersStatus(ctx context.Context, ids []int64, status string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{status, now}, int64Args(ids)...)
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUsersByRole groups users by role.
func (q *Queries) CountUsersByRole(ctx context.Context) ([]CountByKey, error) {
	return q.countGrouped(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
}

// GetUsersByIDs returns the users in ids that exist.
func (q *Queries) GetUsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	users := []User{}
	if len(ids) == 0 {
		return users, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountActiveUsersWithRole counts active users holding role.
func (q *Queries) CountActiveUsersWithRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND status = 'active'`, role).Scan(&n)
	return n, err
}

// CountUsersByStatus groups users by status.
func (q *Queries) CountUsersByStatus(ctx context.Context) ([]CountByKey, error) {
	return q.countGrouped(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status ORDER BY status`)
}
