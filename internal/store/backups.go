// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
)

// Backup is a backup record. No archive is attached to it.
type Backup struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	Size          int64            `json:"size"`
	Status        string           `json:"status"`
	Tables        model.StringList `json:"tables"`
	RetentionDays int64            `json:"retention_days"`
	CreatedBy     *int64           `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at"`
}

// ExpiresAt is when the record falls out of its retention window.
func (b Backup) ExpiresAt() time.Time {
	return b.CreatedAt.AddDate(0, 0, int(b.RetentionDays))
}

const backupColumns = `id, name, type, size, status, tables, retention_days, created_by, created_at, completed_at`

func scanBackup(r rowScanner) (Backup, error) {
	var b Backup
	err := r.Scan(&b.ID, &b.Name, &b.Type, &b.Size, &b.Status, &b.Tables, &b.RetentionDays, &b.CreatedBy,
		&b.CreatedAt, &b.CompletedAt)
	return b, err
}

// CreateBackupParams holds the values for a new backup record.
type CreateBackupParams struct {
	Name          string
	Type          string
	Tables        model.StringList
	RetentionDays int64
	CreatedBy     *int64
	CreatedAt     time.Time
}

// CreateBackup inserts a pending backup record.
func (q *Queries) CreateBackup(ctx context.Context, arg CreateBackupParams) (Backup, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO backups (name, type, status, tables, retention_days, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Type, model.BackupStatusPending, arg.Tables, arg.RetentionDays, arg.CreatedBy, arg.CreatedAt)
	if err != nil {
		return Backup{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Backup{}, err
	}
	return q.GetBackup(ctx, id)
}

// GetBackup returns sql.ErrNoRows for unknown ids.
func (q *Queries) GetBackup(ctx context.Context, id int64) (Backup, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+backupColumns+` FROM backups WHERE id = ?`, id)
	return scanBackup(row)
}

// ListBackups returns every backup record, newest first.
func (q *Queries) ListBackups(ctx context.Context) ([]Backup, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+backupColumns+` FROM backups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	backups := []Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// UpdateBackupStatus sets status, size and the completion time.
func (q *Queries) UpdateBackupStatus(ctx context.Context, id int64, status string, size int64, completedAt *time.Time) (Backup, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, size = ?, completed_at = ? WHERE id = ?`, status, size, completedAt, id)
	if err != nil {
		return Backup{}, err
	}
	return q.GetBackup(ctx, id)
}

// DeleteBackup removes a backup record and returns the number of deleted rows.
func (q *Queries) DeleteBackup(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredBackups removes records whose retention window ended before now.
func (q *Queries) DeleteExpiredBackups(ctx context.Context, now time.Time) (int64, error) {
	backups, err := q.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	var expired []int64
	for _, b := range backups {
		if b.ExpiresAt().Before(now) {
			expired = append(expired, b.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM backups WHERE id IN (`+placeholders(len(expired))+`)`, int64Args(expired)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
