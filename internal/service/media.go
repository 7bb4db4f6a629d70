// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/greenpower-cms/internal/imaging"
	"github.com/olegiv/greenpower-cms/internal/markup"
	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/util"
)

// Upload errors reported per file.
var (
	ErrFileTooLarge    = fmt.Errorf("file exceeds the %d MB limit", model.MaxUploadSize>>20)
	ErrTypeNotAllowed  = errors.New("file type is not allowed")
	ErrContentMismatch = errors.New("file content does not match its type")
	ErrEmptyFile       = errors.New("file is empty")
)

// DefaultUploadDir is used when no uploads directory is configured.
const DefaultUploadDir = "./uploads"

// UploadInput is one file plus the metadata shared by a multi-file upload.
type UploadInput struct {
	Filename    string
	ContentType string // as declared by the client
	Size        int64  // -1 when unknown
	Body        io.Reader
	AltText     string
	Caption     string
	Tags        model.StringList
	UploadedBy  *int64
}

// UploadResult is a stored media item with its variants.
type UploadResult struct {
	Media    store.Media          `json:"media"`
	Variants []store.MediaVariant `json:"variants"`
	URL      string               `json:"url"`
}

// MediaService stores uploads on disk and in the media tables.
type MediaService struct {
	db        *sql.DB
	processor *imaging.Processor
}

// NewMediaService creates a media service writing below uploadDir.
func NewMediaService(db *sql.DB, uploadDir string) *MediaService {
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}
	return &MediaService{db: db, processor: imaging.NewProcessor(uploadDir)}
}

// UploadDir returns the directory uploads are written to.
func (s *MediaService) UploadDir() string {
	return s.processor.Root()
}

// Upload validates, stores and records a single file.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Size > model.MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, model.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > model.MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mimeType, err := resolveMimeType(in.Filename, in.ContentType, data)
	if err != nil {
		return nil, err
	}

	filename, err := util.SanitizeFilename(in.Filename)
	if err != nil {
		return nil, err
	}
	filename = withCanonicalExt(filename, mimeType)

	id := uuid.New().String()
	now := time.Now().UTC()
	arg := store.CreateMediaParams{
		UUID:         id,
		Filename:     filename,
		OriginalName: filepath.Base(strings.ReplaceAll(in.Filename, `\`, "/")),
		MimeType:     mimeType,
		AltText:      markup.PlainText(in.AltText),
		Caption:      markup.PlainText(in.Caption),
		Tags:         in.Tags,
		UploadedBy:   in.UploadedBy,
		CreatedAt:    now,
	}

	var variants []imaging.Variant
	if model.IsRasterImage(mimeType) {
		orig, img, err := s.processor.StoreOriginal(data, id, filename)
		if err != nil {
			_ = s.processor.Remove(id)
			return nil, fmt.Errorf("processing image: %w", err)
		}
		w, h := int64(orig.Width), int64(orig.Height)
		arg.StoragePath, arg.Size, arg.Width, arg.Height = orig.Path, orig.Size, &w, &h

		variants, err = s.processor.CreateVariants(img, id, filename)
		if err != nil {
			slog.Warn("failed to create image variants", "error", err, "uuid", id)
		}
	} else {
		arg.StoragePath, arg.Size, err = s.processor.StoreFile(bytes.NewReader(data), id, filename)
		if err != nil {
			_ = s.processor.Remove(id)
			return nil, err
		}
	}

	result := &UploadResult{}
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		m, err := q.CreateMedia(ctx, arg)
		if err != nil {
			return fmt.Errorf("creating media record: %w", err)
		}
		result.Media = m
		for _, v := range variants {
			mv := store.MediaVariant{
				MediaID:   m.ID,
				Type:      v.Type,
				Width:     int64(v.Width),
				Height:    int64(v.Height),
				Size:      v.Size,
				CreatedAt: now,
			}
			if err := q.CreateMediaVariant(ctx, mv); err != nil {
				return fmt.Errorf("creating variant record: %w", err)
			}
		}
		result.Variants, err = q.ListMediaVariants(ctx, m.ID)
		return err
	})
	if err != nil {
		_ = s.processor.Remove(id)
		return nil, err
	}
	result.URL = URL(result.Media, "")
	return result, nil
}

// Delete removes the media rows (variants cascade) and then the files.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	q := store.New(s.db)
	m, err := q.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := q.DeleteMedia(ctx, id); err != nil {
		return fmt.Errorf("deleting media record: %w", err)
	}
	if err := s.processor.Remove(m.UUID); err != nil {
		slog.Warn("failed to delete media files", "error", err, "media_id", id)
	}
	return nil
}

// URL returns the public path of a media item or one of its variants.
func URL(m store.Media, variant string) string {
	if variant == "" || variant == "original" {
		return "/uploads/" + imaging.OriginalsDir + "/" + m.UUID + "/" + m.Filename
	}
	name := m.Filename
	if m.MimeType == model.MimeTypeWebP {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}
	return "/uploads/" + variant + "/" + m.UUID + "/" + name
}

// resolveMimeType picks the effective type of an upload. Raster images are
// identified by content; other types by the declared type or extension.
func resolveMimeType(filename, declared string, data []byte) (string, error) {
	claimed := ""
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			claimed = strings.ToLower(mt)
		}
	}
	if claimed == "" || claimed == "application/octet-stream" {
		claimed = mimeFromExtension(filename)
	}

	sniffed := imaging.DetectMimeType(data)
	if model.IsRasterImage(sniffed) {
		return sniffed, nil
	}
	if model.IsRasterImage(claimed) {
		return "", ErrContentMismatch
	}
	if _, ok := model.AllowedMimeTypes[claimed]; !ok {
		return "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, claimed)
	}
	return claimed, nil
}

// withCanonicalExt replaces an extension that does not name mimeType, so
// the file server never picks a different Content-Type for the stored file.
func withCanonicalExt(filename, mimeType string) string {
	if mimeFromExtension(filename) == mimeType {
		return filename
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + model.AllowedMimeTypes[mimeType]
}

func mimeFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		return model.MimeTypeJPEG
	}
	for mt, e := range model.AllowedMimeTypes {
		if e == ext {
			return mt
		}
	}
	return ""
}
