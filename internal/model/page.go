// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Page statuses
const (
	PageStatusDraft     = "draft"
	PageStatusPublished = "published"
)

// IsValidPageStatus reports whether s is a known page status.
func IsValidPageStatus(s string) bool {
	return s == PageStatusDraft || s == PageStatusPublished
}
