// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// ActivityReportWindow is the period covered by activity reports.
const ActivityReportWindow = 30 * 24 * time.Hour

// ReportResult is the stored output of a report run.
type ReportResult struct {
	Type        string                         `json:"type"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Groups      map[string][]store.CountByKey `json:"groups"`
	Totals      map[string]float64             `json:"totals"`
}

// ReportService computes report summaries.
type ReportService struct {
	queries *store.Queries
	events  *EventService
}

// NewReportService creates a report service. events may be nil.
func NewReportService(db *sql.DB, events *EventService) *ReportService {
	return &ReportService{queries: store.New(db), events: events}
}

// Run computes the summary for report id, stores it and returns the updated report.
func (s *ReportService) Run(ctx context.Context, id int64) (store.Report, error) {
	rep, err := s.queries.GetReport(ctx, id)
	if err != nil {
		return store.Report{}, err
	}

	now := time.Now().UTC()
	result, err := s.Summarize(ctx, rep.Type, now)
	if err != nil {
		return store.Report{}, fmt.Errorf("running report %d: %w", id, err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return store.Report{}, err
	}
	if err := s.queries.SaveReportResult(ctx, id, data, now); err != nil {
		return store.Report{}, fmt.Errorf("saving report result: %w", err)
	}

	if s.events != nil {
		_ = s.events.LogInfo(ctx, model.EventCategoryReport, "Report generated",
			map[string]any{"report_id": id, "type": rep.Type})
	}
	return s.queries.GetReport(ctx, id)
}

// Summarize computes the grouped counts for a report type.
func (s *ReportService) Summarize(ctx context.Context, reportType string, now time.Time) (*ReportResult, error) {
	r := &ReportResult{
		Type:        reportType,
		GeneratedAt: now,
		Groups:      map[string][]store.CountByKey{},
		Totals:      map[string]float64{},
	}

	var err error
	switch reportType {
	case model.ReportTypeUsers:
		if r.Groups["by_role"], err = s.queries.CountUsersByRole(ctx); err != nil {
			return nil, err
		}
		r.Groups["by_status"], err = s.queries.CountUsersByStatus(ctx)
	case model.ReportTypeProjects:
		if r.Groups["by_status"], err = s.queries.CountProjectsByStatus(ctx); err != nil {
			return nil, err
		}
		var budget, spent float64
		budget, spent, err = s.queries.ProjectBudgetTotals(ctx)
		r.Totals["budget"], r.Totals["spent"] = budget, spent
	case model.ReportTypeMedia:
		if r.Groups["by_type"], err = s.queries.CountMediaByType(ctx); err != nil {
			return nil, err
		}
		var size int64
		size, err = s.queries.MediaTotalSize(ctx)
		r.Totals["bytes"] = float64(size)
	case model.ReportTypePages:
		r.Groups["by_status"], err = s.queries.CountPagesByStatus(ctx)
	case model.ReportTypeActivity:
		r.Groups["by_category"], err = s.queries.CountEventsByCategory(ctx, now.Add(-ActivityReportWindow))
	default:
		return nil, fmt.Errorf("unknown report type %q", reportType)
	}
	if err != nil {
		return nil, err
	}

	for name, counts := range r.Groups {
		var total int64
		for _, c := range counts {
			total += c.Count
		}
		r.Totals[name+"_total"] = float64(total)
	}
	return r, nil
}
