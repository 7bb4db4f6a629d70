// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// Page is a marketing page whose body is structured JSON content.
type Page struct {
	ID              int64      `json:"id"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	MetaKeywords    string     `json:"meta_keywords"`
	Status          string     `json:"status"`
	PublishedAt     *time.Time `json:"published_at"`
	CreatedBy       *int64     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const pageColumns = `id, slug, title, content, meta_title, meta_description, meta_keywords, status,
	published_at, created_by, created_at, updated_at`

func scanPage(r rowScanner) (Page, error) {
	var p Page
	err := r.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &p.MetaTitle, &p.MetaDescription, &p.MetaKeywords,
		&p.Status, &p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// PageParams holds the writable page fields.
type PageParams struct {
	Slug            string
	Title           string
	Content         string
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	Status          string
	PublishedAt     *time.Time
}

// CreatePage inserts a page. A duplicate slug fails the UNIQUE constraint.
func (q *Queries) CreatePage(ctx context.Context, arg PageParams, createdBy *int64, now time.Time) (Page, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO pages (slug, title, content, meta_title, meta_description, meta_keywords, status,
			published_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Slug, arg.Title, arg.Content, arg.MetaTitle, arg.MetaDescription, arg.MetaKeywords, arg.Status,
		arg.PublishedAt, createdBy, now, now)
	if err != nil {
		return Page{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Page{}, err
	}
	return q.GetPage(ctx, id)
}

// InsertPageIfAbsent inserts a page unless its slug already exists.
// It reports whether a row was written.
func (q *Queries) InsertPageIfAbsent(ctx context.Context, arg PageParams, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pages (slug, title, content, meta_title, meta_description, meta_keywords, status,
			published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Slug, arg.Title, arg.Content, arg.MetaTitle, arg.MetaDescription, arg.MetaKeywords, arg.Status,
		arg.PublishedAt, now, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetPage returns sql.ErrNoRows for unknown ids.
func (q *Queries) GetPage(ctx context.Context, id int64) (Page, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	return scanPage(row)
}

// GetPageBySlug returns sql.ErrNoRows for unknown slugs.
func (q *Queries) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug)
	return scanPage(row)
}

// SlugExists reports whether a page other than excludeID uses slug.
func (q *Queries) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

// UpdatePage overwrites every writable field.
func (q *Queries) UpdatePage(ctx context.Context, id int64, arg PageParams, now time.Time) (Page, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE pages SET slug = ?, title = ?, content = ?, meta_title = ?, meta_description = ?,
			meta_keywords = ?, status = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		arg.Slug, arg.Title, arg.Content, arg.MetaTitle, arg.MetaDescription, arg.MetaKeywords, arg.Status,
		arg.PublishedAt, now, id)
	if err != nil {
		return Page{}, err
	}
	return q.GetPage(ctx, id)
}

// DeletePage removes a page and returns the number of deleted rows.
func (q *Queries) DeletePage(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListPages returns pages ordered by title; an empty status lists all.
func (q *Queries) ListPages(ctx context.Context, status string) ([]Page, error) {
	w := &whereClause{}
	if status != "" {
		w.add("status = ?", status)
	}
	rows, err := q.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages`+w.String()+` ORDER BY title, id`, w.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pages := []Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// CountPagesByStatus groups pages by status.
func (q *Queries) CountPagesByStatus(ctx context.Context) ([]CountByKey, error) {
	return q.countGrouped(ctx, `SELECT status, COUNT(*) FROM pages GROUP BY status ORDER BY status`)
}
