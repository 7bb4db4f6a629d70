// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "slices"

// Report types, one per summarized entity.
const (
	ReportTypeUsers    = "users"
	ReportTypeProjects = "projects"
	ReportTypeMedia    = "media"
	ReportTypePages    = "pages"
	ReportTypeActivity = "activity"
)

// ReportTypes lists every report type.
var ReportTypes = []string{ReportTypeUsers, ReportTypeProjects, ReportTypeMedia, ReportTypePages, ReportTypeActivity}

// IsValidReportType reports whether t is a known report type.
func IsValidReportType(t string) bool {
	return slices.Contains(ReportTypes, t)
}
