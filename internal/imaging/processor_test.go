// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olegiv/greenpower-cms/internal/model"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestStoreOriginalAndVariants(t *testing.T) {
	root := t.TempDir()
	p := NewProcessor(root)
	data := encodePNG(t, createTestImage(1000, 700))

	orig, img, err := p.StoreOriginal(data, "u-1", "farm.png")
	if err != nil {
		t.Fatalf("StoreOriginal: %v", err)
	}
	if orig.Width != 1000 || orig.Height != 700 {
		t.Errorf("dimensions = %dx%d", orig.Width, orig.Height)
	}
	if orig.Size != int64(len(data)) {
		t.Errorf("Size = %d, want unchanged %d", orig.Size, len(data))
	}
	if orig.Path != filepath.Join(root, OriginalsDir, "u-1", "farm.png") {
		t.Errorf("Path = %s", orig.Path)
	}

	variants, err := p.CreateVariants(img, "u-1", "farm.png")
	if err != nil {
		t.Fatalf("CreateVariants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(variants))
	}
	for _, v := range variants {
		cfg := model.ImageVariants[v.Type]
		if v.Width > cfg.Width || v.Height > cfg.Height {
			t.Errorf("%s = %dx%d exceeds %dx%d", v.Type, v.Width, v.Height, cfg.Width, cfg.Height)
		}
		if _, err := os.Stat(v.Path); err != nil {
			t.Errorf("%s file missing: %v", v.Type, err)
		}
	}

	if err := p.Remove("u-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(orig.Path); !os.IsNotExist(err) {
		t.Error("original should be removed")
	}
}

func TestCreateVariantsSkipsSmallImages(t *testing.T) {
	p := NewProcessor(t.TempDir())
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(200, 100), nil); err != nil {
		t.Fatal(err)
	}

	_, img, err := p.StoreOriginal(buf.Bytes(), "u-2", "small.jpg")
	if err != nil {
		t.Fatalf("StoreOriginal: %v", err)
	}
	variants, err := p.CreateVariants(img, "u-2", "small.jpg")
	if err != nil {
		t.Fatalf("CreateVariants: %v", err)
	}
	if len(variants) != 1 || variants[0].Type != model.VariantThumbnail {
		t.Errorf("variants = %+v, want only the cropped thumbnail", variants)
	}
}

func TestStoreOriginalRejectsNonImages(t *testing.T) {
	p := NewProcessor(t.TempDir())
	_, _, err := p.StoreOriginal([]byte("%PDF-1.7 not an image"), "u-3", "doc.pdf")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestStoreFileSanitizesName(t *testing.T) {
	root := t.TempDir()
	p := NewProcessor(root)

	path, size, err := p.StoreFile(strings.NewReader("hello"), "u-4", "../../Report Q1.PDF")
	if err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d", size)
	}
	if path != filepath.Join(root, OriginalsDir, "u-4", "report-q1.pdf") {
		t.Errorf("path = %s", path)
	}
}

func TestWriteRejectsTraversalInUUID(t *testing.T) {
	p := NewProcessor(t.TempDir())
	if _, _, err := p.StoreFile(strings.NewReader("x"), "../../escape", "a.txt"); err == nil {
		t.Error("expected traversal error")
	}
}

func TestOrient(t *testing.T) {
	img := createTestImage(40, 20)
	for o, wantW := range map[int]int{1: 40, 3: 40, 6: 20, 8: 20, 5: 20, 7: 20} {
		if got := orient(img, o).Bounds().Dx(); got != wantW {
			t.Errorf("orient(%d) width = %d, want %d", o, got, wantW)
		}
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := DetectMimeType(encodePNG(t, createTestImage(2, 2))); got != model.MimeTypePNG {
		t.Errorf("DetectMimeType(png) = %q", got)
	}
	if got := DetectMimeType([]byte("plain words")); got != model.MimeTypeText {
		t.Errorf("DetectMimeType(text) = %q", got)
	}
}
