// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "slices"

// Backup types
const (
	BackupTypeFull        = "full"
	BackupTypeIncremental = "incremental"
	BackupTypeTables      = "tables"
)

// Backup statuses
const (
	BackupStatusPending    = "pending"
	BackupStatusProcessing = "processing"
	BackupStatusCompleted  = "completed"
	BackupStatusFailed     = "failed"
)

// DefaultBackupRetentionDays applies when a backup is created without retention.
const DefaultBackupRetentionDays = 30

// MaxBackupRetentionDays caps how long a backup record may be kept.
const MaxBackupRetentionDays = 3650

// BackupTypes lists every backup type.
var BackupTypes = []string{BackupTypeFull, BackupTypeIncremental, BackupTypeTables}

// BackupStatuses lists every backup status.
var BackupStatuses = []string{BackupStatusPending, BackupStatusProcessing, BackupStatusCompleted, BackupStatusFailed}

// IsValidBackupType reports whether t is a known backup type.
func IsValidBackupType(t string) bool {
	return slices.Contains(BackupTypes, t)
}

// IsValidBackupStatus reports whether s is a known backup status.
func IsValidBackupStatus(s string) bool {
	return slices.Contains(BackupStatuses, s)
}

// IsFinalBackupStatus reports whether s ends a backup's lifecycle.
func IsFinalBackupStatus(s string) bool {
	return s == BackupStatusCompleted || s == BackupStatusFailed
}

// CanTransitionBackup reports whether a backup may move from one status to
// another. Statuses only move forward: pending, processing, then a final
// status that is never left.
func CanTransitionBackup(from, to string) bool {
	switch {
	case IsFinalBackupStatus(from):
		return false
	case to == BackupStatusPending:
		return from == BackupStatusPending
	}
	return IsValidBackupStatus(to)
}
