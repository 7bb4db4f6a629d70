// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "slices"

// Project statuses
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Project priorities
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// DefaultCurrency is used when a project is created without one.
const DefaultCurrency = "USD"

// ProjectStatuses lists every project status in lifecycle order.
var ProjectStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// Priorities lists every project priority, lowest first.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	return slices.Contains(ProjectStatuses, s)
}

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p string) bool {
	return slices.Contains(Priorities, p)
}
