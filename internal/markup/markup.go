// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package markup renders user-authored Markdown to safe HTML and strips
// markup from plain-text fields.
package markup

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// ugcPolicy allows the formatting tags Markdown produces.
	ugcPolicy = bluemonday.UGCPolicy()

	// strictPolicy removes every tag.
	strictPolicy = bluemonday.StrictPolicy()
)

// RenderMarkdown converts Markdown to sanitized HTML. Empty input renders as "".
func RenderMarkdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// PlainText strips all HTML from s and trims surrounding whitespace.
// Entities produced by the sanitizer are decoded back to text.
func PlainText(s string) string {
	out := strictPolicy.Sanitize(s)
	out = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'").Replace(out)
	return strings.TrimSpace(out)
}
