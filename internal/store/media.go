// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
)

// Media is an uploaded file in the media library.
type Media struct {
	ID           int64            `json:"id"`
	UUID         string           `json:"uuid"`
	Filename     string           `json:"filename"`
	OriginalName string           `json:"original_name"`
	StoragePath  string           `json:"-"`
	MimeType     string           `json:"mime_type"`
	Size         int64            `json:"size"`
	Width        *int64           `json:"width"`
	Height       *int64           `json:"height"`
	AltText      string           `json:"alt_text"`
	Caption      string           `json:"caption"`
	Tags         model.StringList `json:"tags"`
	UploadedBy   *int64           `json:"uploaded_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// MediaVariant is a resized rendition of an image.
type MediaVariant struct {
	ID        int64     `json:"id"`
	MediaID   int64     `json:"media_id"`
	Type      string    `json:"type"`
	Width     int64     `json:"width"`
	Height    int64     `json:"height"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

const mediaColumns = `id, uuid, filename, original_name, storage_path, mime_type, size, width, height,
	alt_text, caption, tags, uploaded_by, created_at, updated_at`

func scanMedia(r rowScanner) (Media, error) {
	var m Media
	err := r.Scan(&m.ID, &m.UUID, &m.Filename, &m.OriginalName, &m.StoragePath, &m.MimeType, &m.Size,
		&m.Width, &m.Height, &m.AltText, &m.Caption, &m.Tags, &m.UploadedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// CreateMediaParams holds the values for a new media row.
type CreateMediaParams struct {
	UUID         string
	Filename     string
	OriginalName string
	StoragePath  string
	MimeType     string
	Size         int64
	Width        *int64
	Height       *int64
	AltText      string
	Caption      string
	Tags         model.StringList
	UploadedBy   *int64
	CreatedAt    time.Time
}

// CreateMedia inserts a media row and returns it.
func (q *Queries) CreateMedia(ctx context.Context, arg CreateMediaParams) (Media, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO media (uuid, filename, original_name, storage_path, mime_type, size, width, height,
			alt_text, caption, tags, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.UUID, arg.Filename, arg.OriginalName, arg.StoragePath, arg.MimeType, arg.Size, arg.Width, arg.Height,
		arg.AltText, arg.Caption, arg.Tags, arg.UploadedBy, arg.CreatedAt, arg.CreatedAt)
	if err != nil {
		return Media{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Media{}, err
	}
	return q.GetMedia(ctx, id)
}

// GetMedia returns sql.ErrNoRows for unknown ids.
func (q *Queries) GetMedia(ctx context.Context, id int64) (Media, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	return scanMedia(row)
}

// UpdateMediaMetaParams holds the editable media metadata.
type UpdateMediaMetaParams struct {
	ID        int64
	AltText   string
	Caption   string
	Tags      model.StringList
	UpdatedAt time.Time
}

// UpdateMediaMeta replaces alt text, caption and tags.
func (q *Queries) UpdateMediaMeta(ctx context.Context, arg UpdateMediaMetaParams) (Media, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE media SET alt_text = ?, caption = ?, tags = ?, updated_at = ? WHERE id = ?`,
		arg.AltText, arg.Caption, arg.Tags, arg.UpdatedAt, arg.ID)
	if err != nil {
		return Media{}, err
	}
	return q.GetMedia(ctx, arg.ID)
}

// DeleteMedia removes a media row; variants cascade.
func (q *Queries) DeleteMedia(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	return err
}

// MediaFilter narrows ListMedia and CountMedia.
type MediaFilter struct {
	MimePrefix string // "image", "video/", "application/pdf"
	Search     string
}

func (f MediaFilter) where() *whereClause {
	w := &whereClause{}
	if f.MimePrefix != "" {
		prefix := f.MimePrefix
		if !strings.Contains(prefix, "/") {
			prefix += "/"
		}
		w.add(`mime_type LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(original_name LIKE ? ESCAPE '\' OR alt_text LIKE ? ESCAPE '\' OR caption LIKE ? ESCAPE '\')`, p, p, p)
	}
	return w
}

// ListMedia returns media matching filter, newest first.
func (q *Queries) ListMedia(ctx context.Context, filter MediaFilter, limit, offset int64) ([]Media, error) {
	w := filter.where()
	args := append(w.args, limit, offset)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// CountMedia counts media matching filter.
func (q *Queries) CountMedia(ctx context.Context, filter MediaFilter) (int64, error) {
	w := filter.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`+w.String(), w.args...).Scan(&n)
	return n, err
}

// CreateMediaVariant records a generated variant.
func (q *Queries) CreateMediaVariant(ctx context.Context, v MediaVariant) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO media_variants (media_id, type, width, height, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (media_id, type) DO UPDATE SET width = excluded.width, height = excluded.height,
			size = excluded.size, created_at = excluded.created_at`,
		v.MediaID, v.Type, v.Width, v.Height, v.Size, v.CreatedAt)
	return err
}

// ListMediaVariants returns the variants of one media item.
func (q *Queries) ListMediaVariants(ctx context.Context, mediaID int64) ([]MediaVariant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, media_id, type, width, height, size, created_at
		FROM media_variants WHERE media_id = ? ORDER BY width`, mediaID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	variants := []MediaVariant{}
	for rows.Next() {
		var v MediaVariant
		if err := rows.Scan(&v.ID, &v.MediaID, &v.Type, &v.Width, &v.Height, &v.Size, &v.CreatedAt); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// CountMediaByType groups media by MIME type.
func (q *Queries) CountMediaByType(ctx context.Context) ([]CountByKey, error) {
	return q.countGrouped(ctx, `SELECT mime_type, COUNT(*) FROM media GROUP BY mime_type ORDER BY mime_type`)
}

// MediaTotalSize sums the size of every original upload.
func (q *Queries) MediaTotalSize(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM media`).Scan(&n)
	return n, err
}
