// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

func TestReportServiceRunProjects(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()

	for _, p := range []store.ProjectParams{
		{Title: "Zakho Expansion", Status: model.ProjectStatusPlanning, Priority: model.PriorityMedium, Budget: 150000.5, Currency: "USD"},
		{Title: "Erbil Rooftops", Status: model.ProjectStatusActive, Priority: model.PriorityHigh, Budget: 1000, Spent: 250, Currency: "USD"},
	} {
		_, err := q.CreateProject(ctx, p, nil, now)
		require.NoError(t, err)
	}
	rep, err := q.CreateReport(ctx, store.ReportParams{Name: "Projects", Type: model.ReportTypeProjects}, nil, now)
	require.NoError(t, err)
	assert.Nil(t, rep.LastRunAt)

	svc := NewReportService(db, NewEventService(db))
	rep, err = svc.Run(ctx, rep.ID)
	require.NoError(t, err)
	require.NotNil(t, rep.LastRunAt)

	var result ReportResult
	require.NoError(t, json.Unmarshal(rep.LastResult, &result))
	assert.Equal(t, model.ReportTypeProjects, result.Type)
	assert.InDelta(t, 151000.5, result.Totals["budget"], 0.001)
	assert.InDelta(t, 250, result.Totals["spent"], 0.001)
	assert.InDelta(t, 2, result.Totals["by_status_total"], 0.001)
	assert.ElementsMatch(t, []store.CountByKey{
		{Key: model.ProjectStatusActive, Count: 1},
		{Key: model.ProjectStatusPlanning, Count: 1},
	}, result.Groups["by_status"])

	events, err := q.ListEvents(ctx, store.EventFilter{Category: model.EventCategoryReport}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReportServiceSummarizeTypes(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	testutil.CreateUser(t, db, "editor@example.com", model.RoleEditor)

	svc := NewReportService(db, nil)
	for _, typ := range model.ReportTypes {
		t.Run(typ, func(t *testing.T) {
			r, err := svc.Summarize(context.Background(), typ, time.Now().UTC())
			require.NoError(t, err)
			assert.Equal(t, typ, r.Type)
			assert.NotEmpty(t, r.Groups)
		})
	}

	users, err := svc.Summarize(context.Background(), model.ReportTypeUsers, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []store.CountByKey{{Key: model.RoleEditor, Count: 1}}, users.Groups["by_role"])

	_, err = svc.Summarize(context.Background(), "finance", time.Now().UTC())
	assert.Error(t, err)
}

func TestReportServiceRunUnknown(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	_, err := NewReportService(db, nil).Run(context.Background(), 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
