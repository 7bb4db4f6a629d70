// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestMatchesMimePrefix(t *testing.T) {
	tests := []struct {
		mime   string
		filter string
		want   bool
	}{
		{"image/png", "", true},
		{"image/png", "image", true},
		{"image/png", "image/", true},
		{"image/png", "image/png", true},
		{"video/mp4", "image", false},
		{"application/pdf", "application", true},
		{"imagex/foo", "image", false},
	}

	for _, tt := range tests {
		if got := MatchesMimePrefix(tt.mime, tt.filter); got != tt.want {
			t.Errorf("MatchesMimePrefix(%q, %q) = %v, want %v", tt.mime, tt.filter, got, tt.want)
		}
	}
}

func TestIsRasterImage(t *testing.T) {
	if !IsRasterImage(MimeTypeJPEG) {
		t.Error("jpeg should be raster")
	}
	if IsRasterImage(MimeTypeSVG) {
		t.Error("svg should not be raster")
	}
	if IsRasterImage(MimeTypePDF) {
		t.Error("pdf should not be raster")
	}
}
