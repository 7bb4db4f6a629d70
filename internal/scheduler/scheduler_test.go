// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/store"
	"github.com/olegiv/greenpower-cms/internal/testutil"
)

type fakeReloader struct{ calls int }

func (f *fakeReloader) Reload() error {
	f.calls++
	return nil
}

func TestScheduler_StartStop(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	geo := &fakeReloader{}
	s := New(db, testutil.TestLogger(), Options{EventRetentionDays: 90, GeoIP: geo})
	require.NoError(t, s.Start())
	defer s.Stop()

	jobs := s.Registry().List()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
		assert.True(t, j.CanTrigger)
		assert.False(t, j.NextRun.IsZero(), "job %s has no next run", j.Name)
	}
	assert.Equal(t, []string{JobBackups, JobEvents, JobGeoIP, JobReports, JobSearch}, names)

	require.NoError(t, s.Registry().TriggerNow(JobGeoIP))
	assert.Equal(t, 1, geo.calls)
	require.NoError(t, s.Registry().TriggerNow(JobSearch))
}

func TestSchedulerWithoutGeoIP(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	s := New(db, testutil.TestLogger(), Options{})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.Registry().List(), 4)
	err := s.Registry().TriggerNow(JobGeoIP)
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestRunDueReports(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	q := store.New(db)
	created := time.Now().UTC()

	hourly, err := q.CreateReport(ctx, store.ReportParams{Name: "Hourly users", Type: model.ReportTypeUsers, Schedule: "0 * * * *"}, nil, created)
	require.NoError(t, err)
	_, err = q.CreateReport(ctx, store.ReportParams{Name: "Manual", Type: model.ReportTypePages}, nil, created)
	require.NoError(t, err)
	_, err = q.CreateReport(ctx, store.ReportParams{Name: "Broken", Type: model.ReportTypeMedia, Schedule: "every day"}, nil, created)
	require.NoError(t, err)

	s := New(db, testutil.TestLogger(), Options{})

	s.now = func() time.Time { return created }
	ran, err := s.RunDueReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ran, "nothing is due before the next hour")

	s.now = func() time.Time { return created.Add(2 * time.Hour) }
	ran, err = s.RunDueReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	rep, err := q.GetReport(ctx, hourly.ID)
	require.NoError(t, err)
	require.NotNil(t, rep.LastRunAt)
	assert.NotEqual(t, "null", string(rep.LastResult))

	s.now = func() time.Time { return time.Now().UTC() }
	ran, err = s.RunDueReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ran, "a report that just ran is not due again")
}

func TestPruneBackups(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()

	old, err := q.CreateBackup(ctx, store.CreateBackupParams{
		Name: "old", Type: model.BackupTypeFull, RetentionDays: 1, CreatedAt: now.AddDate(0, 0, -3),
	})
	require.NoError(t, err)
	_, err = q.CreateBackup(ctx, store.CreateBackupParams{
		Name: "fresh", Type: model.BackupTypeFull, RetentionDays: 30, CreatedAt: now,
	})
	require.NoError(t, err)

	s := New(db, testutil.TestLogger(), Options{})
	n, err := s.PruneBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = q.GetBackup(ctx, old.ID)
	assert.Error(t, err)
}

func TestPruneEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()

	for _, at := range []time.Time{now.AddDate(0, 0, -100), now} {
		require.NoError(t, q.CreateEvent(ctx, store.CreateEventParams{
			Level: model.EventLevelInfo, Category: model.EventCategorySystem, Message: "tick", CreatedAt: at,
		}))
	}

	disabled := New(db, testutil.TestLogger(), Options{})
	n, err := disabled.PruneEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	s := New(db, testutil.TestLogger(), Options{EventRetentionDays: 90})
	n, err = s.PruneEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := q.CountEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}
