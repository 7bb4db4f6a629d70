// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain enums and value types shared by the store,
// services and handlers: roles, statuses, MIME types and list columns.
package model

import "slices"

// User roles, highest privilege first.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleAuthor     = "author"
	RoleUser       = "user"
)

// User statuses
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Roles lists every assignable role.
var Roles = []string{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleAuthor, RoleUser}

var roleLevels = map[string]int{
	RoleSuperAdmin: 4,
	RoleAdmin:      3,
	RoleEditor:     2,
	RoleAuthor:     1,
	RoleUser:       0,
}

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 8

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// IsValidUserStatus reports whether status is a known user status.
func IsValidUserStatus(status string) bool {
	return status == UserStatusActive || status == UserStatusInactive
}

// RoleLevel returns the privilege level of role, or -1 for unknown roles.
func RoleLevel(role string) int {
	if level, ok := roleLevels[role]; ok {
		return level
	}
	return -1
}

// HasRole reports whether role grants at least the privileges of required.
func HasRole(role, required string) bool {
	level := RoleLevel(role)
	return level >= 0 && level >= RoleLevel(required)
}
