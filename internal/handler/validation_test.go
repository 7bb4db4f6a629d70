// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"testing"
)

func TestValidateSlugWithChecker(t *testing.T) {
	notFound := func() (bool, error) { return false, nil }
	found := func() (bool, error) { return true, nil }
	failing := func() (bool, error) { return false, errors.New("db closed") }

	tests := []struct {
		name    string
		slug    string
		checker SlugExistsFunc
		want    string
	}{
		{"valid", "wind-farm-2025", notFound, ""},
		{"empty", "", notFound, "Slug is required"},
		{"uppercase", "Wind-Farm", notFound, "Invalid slug format (use lowercase letters, numbers, and hyphens)"},
		{"spaces", "wind farm", notFound, "Invalid slug format (use lowercase letters, numbers, and hyphens)"},
		{"taken", "about", found, "Slug already exists"},
		{"db error", "about", failing, "Error checking slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSlugWithChecker(tt.slug, tt.checker); got != tt.want {
				t.Errorf("ValidateSlugWithChecker(%q) = %q, want %q", tt.slug, got, tt.want)
			}
		})
	}
}

func TestValidateSlugForUpdate(t *testing.T) {
	called := false
	checker := func() (bool, error) {
		called = true
		return true, nil
	}

	if got := ValidateSlugForUpdate("about", "about", checker); got != "" {
		t.Errorf("unchanged slug: got %q, want empty", got)
	}
	if called {
		t.Error("checker must not run for an unchanged slug")
	}
	if got := ValidateSlugForUpdate("contact", "about", checker); got != "Slug already exists" {
		t.Errorf("changed slug: got %q", got)
	}
}

func TestValidateEmailFormat(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", ""},
		{"first.last@sub.example.org", ""},
		{"", "Email is required"},
		{"not-an-email", "Invalid email format"},
		{"user@localhost", "Invalid email format"},
		{"Jane <jane@example.com>", "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := validateEmailFormat(tt.email); got != tt.want {
				t.Errorf("validateEmailFormat(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "Name is required"},
		{"A", "Name must be at least 2 characters"},
		{"Al", ""},
		{"Ло", ""},
	}

	for _, tt := range tests {
		if got := validateName(tt.name); got != tt.want {
			t.Errorf("validateName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		required bool
		want     string
		field    string
	}{
		{"missing", "", "", true, "Password is required", "password"},
		{"short", "short", "short", true, "Password must be at least 8 characters", "password"},
		{"mismatch", "long-enough-1", "long-enough-2", true, "Passwords do not match", "confirm_password"},
		{"ok", "long-enough-1", "long-enough-1", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validatePassword(tt.password, tt.confirm, tt.required)
			if got != tt.want {
				t.Fatalf("validatePassword() = %q, want %q", got, tt.want)
			}
			if got != "" && passwordErrorField(got) != tt.field {
				t.Errorf("passwordErrorField(%q) = %q, want %q", got, passwordErrorField(got), tt.field)
			}
		})
	}
}
