// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Supported image variant types
const (
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
)

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypeSVG  = "image/svg+xml"
	MimeTypePDF  = "application/pdf"
	MimeTypeMP4  = "video/mp4"
	MimeTypeWebM = "video/webm"
	MimeTypeText = "text/plain"
	MimeTypeCSV  = "text/csv"
)

// MaxUploadSize is the largest accepted upload (20 MB).
const MaxUploadSize = 20 << 20

// AllowedMimeTypes maps accepted MIME types to their canonical extension.
var AllowedMimeTypes = map[string]string{
	MimeTypeJPEG: ".jpg",
	MimeTypePNG:  ".png",
	MimeTypeGIF:  ".gif",
	MimeTypeWebP: ".webp",
	MimeTypeSVG:  ".svg",
	MimeTypePDF:  ".pdf",
	MimeTypeMP4:  ".mp4",
	MimeTypeWebM: ".webm",
	MimeTypeText: ".txt",
	MimeTypeCSV:  ".csv",
}

// ImageVariantConfig defines settings for generating image variants.
type ImageVariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = crop to exact size, false = fit within bounds
}

// ImageVariants defines the variants generated for every raster image.
var ImageVariants = map[string]ImageVariantConfig{
	VariantThumbnail: {Width: 150, Height: 150, Quality: 80, Crop: true},
	VariantMedium:    {Width: 800, Height: 600, Quality: 85, Crop: false},
}

// IsRasterImage reports whether variants can be generated for mimeType.
func IsRasterImage(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	}
	return false
}

// MatchesMimePrefix reports whether mimeType falls under filter.
// An empty filter matches everything; "image" and "image/" both match "image/png".
func MatchesMimePrefix(mimeType, filter string) bool {
	if filter == "" {
		return true
	}
	if !strings.Contains(filter, "/") {
		filter += "/"
	}
	return strings.HasPrefix(mimeType, filter)
}
