// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/mail"
	"strings"

	"github.com/olegiv/greenpower-cms/internal/util"
)

// minNameLength is the shortest accepted user name.
const minNameLength = 2

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func() (bool, error)

// ValidateSlugWithChecker validates a slug using a custom existence checker.
// Returns an error message string if validation fails, or empty string if valid.
func ValidateSlugWithChecker(slug string, checkExists SlugExistsFunc) string {
	if slug == "" {
		return "Slug is required"
	}
	if !util.IsValidSlug(slug) {
		return "Invalid slug format (use lowercase letters, numbers, and hyphens)"
	}
	exists, err := checkExists()
	if err != nil {
		slog.Error("database error checking slug", "error", err)
		return "Error checking slug"
	}
	if exists {
		return "Slug already exists"
	}
	return ""
}

// ValidateSlugForUpdate skips the check when the slug is unchanged.
func ValidateSlugForUpdate(slug, currentSlug string, checkExists SlugExistsFunc) string {
	if slug == currentSlug {
		return ""
	}
	return ValidateSlugWithChecker(slug, checkExists)
}

// validateEmailFormat accepts a bare address only ("Name <a@b>" is rejected).
func validateEmailFormat(email string) string {
	if email == "" {
		return "Email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "Invalid email format"
	}
	return ""
}

func validateName(name string) string {
	switch {
	case name == "":
		return "Name is required"
	case len([]rune(name)) < minNameLength:
		return "Name must be at least 2 characters"
	}
	return ""
}
