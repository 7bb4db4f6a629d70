// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMediaServiceUploadImage(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	dir := t.TempDir()
	svc := NewMediaService(db, dir)

	res, err := svc.Upload(context.Background(), UploadInput{
		Filename:    "Solar Farm (1).PNG",
		ContentType: "image/png",
		Size:        -1,
		Body:        bytes.NewReader(pngBytes(t, 1000, 700)),
		AltText:     "<b>Panels</b>",
		Tags:        model.StringList{"solar", "iraq"},
	})
	require.NoError(t, err)

	m := res.Media
	assert.Equal(t, "solar-farm-1.png", m.Filename)
	assert.Equal(t, "Solar Farm (1).PNG", m.OriginalName)
	assert.Equal(t, model.MimeTypePNG, m.MimeType)
	require.NotNil(t, m.Width)
	assert.Equal(t, int64(1000), *m.Width)
	assert.Equal(t, "Panels", m.AltText)
	assert.Equal(t, model.StringList{"solar", "iraq"}, m.Tags)
	assert.Equal(t, "/uploads/originals/"+m.UUID+"/solar-farm-1.png", res.URL)

	require.Len(t, res.Variants, 2)
	types := []string{res.Variants[0].Type, res.Variants[1].Type}
	assert.ElementsMatch(t, []string{model.VariantThumbnail, model.VariantMedium}, types)

	_, err = os.Stat(filepath.Join(dir, "thumbnail", m.UUID, "solar-farm-1.png"))
	assert.NoError(t, err)
}

func TestMediaServiceUploadDocument(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	svc := NewMediaService(db, t.TempDir())

	res, err := svc.Upload(context.Background(), UploadInput{
		Filename: "output.csv",
		Size:     -1,
		Body:     strings.NewReader("site,mw\nzakho,12\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.MimeTypeCSV, res.Media.MimeType)
	assert.Nil(t, res.Media.Width)
	assert.Empty(t, res.Variants)
}

func TestMediaServiceUploadForcesCanonicalExtension(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	svc := NewMediaService(db, t.TempDir())

	res, err := svc.Upload(context.Background(), UploadInput{
		Filename:    "x.html",
		ContentType: "text/plain",
		Size:        -1,
		Body:        strings.NewReader("<script>alert(1)</script>"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.MimeTypeText, res.Media.MimeType)
	assert.Equal(t, "x.txt", res.Media.Filename)
	assert.Equal(t, ".txt", filepath.Ext(res.Media.StoragePath))
	assert.Equal(t, "x.html", res.Media.OriginalName)
}

func TestWithCanonicalExt(t *testing.T) {
	tests := []struct {
		filename string
		mimeType string
		want     string
	}{
		{"report.pdf", model.MimeTypePDF, "report.pdf"},
		{"photo.jpeg", model.MimeTypeJPEG, "photo.jpeg"},
		{"photo.png", model.MimeTypeJPEG, "photo.jpg"},
		{"page.html", model.MimeTypeText, "page.txt"},
		{"notes", model.MimeTypeText, "notes.txt"},
		{"data.csv", model.MimeTypeCSV, "data.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withCanonicalExt(tt.filename, tt.mimeType), tt.filename)
	}
}

func TestMediaServiceUploadRejects(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	svc := NewMediaService(db, t.TempDir())

	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"too large", UploadInput{Filename: "a.pdf", Size: model.MaxUploadSize + 1, Body: strings.NewReader("x")}, ErrFileTooLarge},
		{"empty", UploadInput{Filename: "a.txt", Size: -1, Body: strings.NewReader("")}, ErrEmptyFile},
		{"fake image", UploadInput{Filename: "a.jpg", ContentType: "image/jpeg", Size: -1, Body: strings.NewReader("not a jpeg")}, ErrContentMismatch},
		{"executable", UploadInput{Filename: "a.exe", ContentType: "application/x-msdownload", Size: -1, Body: strings.NewReader("MZ")}, ErrTypeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := store.New(db).CountMedia(context.Background(), store.MediaFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMediaServiceDelete(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	dir := t.TempDir()
	svc := NewMediaService(db, dir)
	ctx := context.Background()

	res, err := svc.Upload(ctx, UploadInput{Filename: "p.png", Size: -1, Body: bytes.NewReader(pngBytes(t, 200, 200))})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, res.Media.ID))

	_, err = store.New(db).GetMedia(ctx, res.Media.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	variants, err := store.New(db).ListMediaVariants(ctx, res.Media.ID)
	require.NoError(t, err)
	assert.Empty(t, variants)
	_, err = os.Stat(filepath.Join(dir, "originals", res.Media.UUID))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, svc.Delete(ctx, res.Media.ID), sql.ErrNoRows)
}

func TestURLForWebPVariant(t *testing.T) {
	m := store.Media{UUID: "u1", Filename: "panel.webp", MimeType: model.MimeTypeWebP}
	assert.Equal(t, "/uploads/originals/u1/panel.webp", URL(m, ""))
	assert.Equal(t, "/uploads/thumbnail/u1/panel.jpg", URL(m, model.VariantThumbnail))
}
