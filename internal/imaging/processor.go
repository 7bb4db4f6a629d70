// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging decodes uploaded raster images, fixes their EXIF
// orientation and writes the original plus resized variants to disk.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/util"
)

// OriginalsDir holds uploaded files under <root>/originals/<uuid>/<filename>.
const OriginalsDir = "originals"

// ErrUnsupportedFormat is returned for data that is not JPEG, PNG, GIF or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Original describes a stored original image.
type Original struct {
	Width  int
	Height int
	Size   int64
	Path   string
}

// Variant describes a stored resized rendition.
type Variant struct {
	Type   string
	Width  int
	Height int
	Size   int64
	Path   string
}

// Processor writes images below a root directory.
type Processor struct {
	root string
}

// NewProcessor returns a processor rooted at dir.
func NewProcessor(dir string) *Processor {
	return &Processor{root: dir}
}

// Root returns the directory files are written to.
func (p *Processor) Root() string {
	return p.root
}

// StoreOriginal decodes data, applies EXIF orientation and saves the result.
// Correctly oriented images are written byte for byte.
func (p *Processor) StoreOriginal(data []byte, uuid, filename string) (*Original, image.Image, error) {
	format := sniffFormat(data)
	if format == "" {
		return nil, nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image: %w", err)
	}

	out := data
	if orientation := exifOrientation(bytes.NewReader(data)); orientation > 1 {
		img = orient(img, orientation)
		if out, err = encode(img, format, 95); err != nil {
			return nil, nil, fmt.Errorf("encoding image: %w", err)
		}
	}

	path, err := p.write(OriginalsDir, uuid, filename, out)
	if err != nil {
		return nil, nil, err
	}

	b := img.Bounds()
	return &Original{Width: b.Dx(), Height: b.Dy(), Size: int64(len(out)), Path: path}, img, nil
}

// StoreFile saves non-image data unchanged next to image originals.
func (p *Processor) StoreFile(r io.Reader, uuid, filename string) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("reading upload: %w", err)
	}
	path, err := p.write(OriginalsDir, uuid, filename, data)
	if err != nil {
		return "", 0, err
	}
	return path, int64(len(data)), nil
}

// CreateVariants renders every configured variant of img.
// A variant larger than the source is skipped unless it crops. Individual
// failures are collected; the call fails only when every variant failed.
func (p *Processor) CreateVariants(img image.Image, uuid, filename string) ([]Variant, error) {
	types := make([]string, 0, len(model.ImageVariants))
	for t := range model.ImageVariants {
		types = append(types, t)
	}
	sort.Strings(types)

	var variants []Variant
	var errs []error
	for _, t := range types {
		v, err := p.createVariant(img, uuid, filename, t, model.ImageVariants[t])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		if v != nil {
			variants = append(variants, *v)
		}
	}
	if len(variants) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return variants, nil
}

func (p *Processor) createVariant(img image.Image, uuid, filename, variantType string, cfg model.ImageVariantConfig) (*Variant, error) {
	b := img.Bounds()
	if !cfg.Crop && b.Dx() <= cfg.Width && b.Dy() <= cfg.Height {
		return nil, nil
	}

	var resized image.Image
	if cfg.Crop {
		resized = imaging.Fill(img, cfg.Width, cfg.Height, imaging.Center, imaging.Lanczos)
	} else {
		resized = imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	format := formatFromName(filename)
	name := filename
	if format == "webp" {
		// No pure Go WebP encoder; variants are JPEG.
		format = "jpeg"
		name = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
	}
	data, err := encode(resized, format, cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	path, err := p.write(variantType, uuid, name, data)
	if err != nil {
		return nil, err
	}

	rb := resized.Bounds()
	return &Variant{Type: variantType, Width: rb.Dx(), Height: rb.Dy(), Size: int64(len(data)), Path: path}, nil
}

// Remove deletes the original and every variant directory of uuid.
func (p *Processor) Remove(uuid string) error {
	dirs := []string{OriginalsDir}
	for t := range model.ImageVariants {
		dirs = append(dirs, t)
	}
	var errs []error
	for _, d := range dirs {
		dir, err := util.SafeJoinPath(p.root, d, uuid)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) write(kind, uuid, filename string, data []byte) (string, error) {
	safe, err := util.SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	dir, err := util.SafeJoinPath(p.root, kind, uuid)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	path := filepath.Join(dir, safe)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", kind, err)
	}
	return path, nil
}

// DetectMimeType sniffs the MIME type of data without parameters.
func DetectMimeType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// sniffFormat returns the decoder format name; TIFF is rejected (CVE-2023-36308).
func sniffFormat(data []byte) string {
	switch DetectMimeType(data) {
	case model.MimeTypeJPEG:
		return "jpeg"
	case model.MimeTypePNG:
		return "png"
	case model.MimeTypeGIF:
		return "gif"
	case model.MimeTypeWebP:
		return "webp"
	}
	return ""
}

func formatFromName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	}
	return "jpeg"
}

func exifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// orient applies EXIF orientation values 2..8.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
