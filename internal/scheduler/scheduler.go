// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs and scheduled reports.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/greenpower-cms/internal/model"
	"github.com/olegiv/greenpower-cms/internal/service"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// Job names.
const (
	JobReports = "reports"
	JobBackups = "backup-retention"
	JobEvents  = "event-retention"
	JobGeoIP   = "geoip-reload"
	JobSearch  = "search-reindex"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Reloader reopens an external data file.
type Reloader interface {
	Reload() error
}

// Options configures the optional jobs.
type Options struct {
	// EventRetentionDays prunes older activity events; 0 disables pruning.
	EventRetentionDays int
	// GeoIP is reloaded weekly when set.
	GeoIP Reloader
}

// Scheduler runs scheduled reports and retention jobs.
type Scheduler struct {
	queries  *store.Queries
	cron     *cron.Cron
	logger   *slog.Logger
	registry *Registry
	reports  *service.ReportService
	events   *service.EventService
	search   *service.SearchService
	opts     Options
	now      func() time.Time
}

// New creates a new scheduler instance.
func New(db *sql.DB, logger *slog.Logger, opts Options) *Scheduler {
	events := service.NewEventService(db)
	return &Scheduler{
		queries:  store.New(db),
		cron:     cron.New(),
		logger:   logger,
		registry: NewRegistry(logger),
		reports:  service.NewReportService(db, events),
		events:   events,
		search:   service.NewSearchService(db),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registry returns the job registry.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name, description, schedule string
		run                         func(context.Context) error
	}{
		{JobReports, "Run scheduled reports that are due", "* * * * *", s.runDueReportsJob},
		{JobBackups, "Delete backup records past their retention", "@hourly", s.pruneBackupsJob},
		{JobEvents, "Delete old activity events", "@daily", s.pruneEventsJob},
		{JobSearch, "Rebuild the page search index", "@weekly", s.search.RebuildIndex},
	}
	if s.opts.GeoIP != nil {
		jobs = append(jobs, struct {
			name, description, schedule string
			run                         func(context.Context) error
		}{JobGeoIP, "Reload the GeoIP database", "@weekly", func(context.Context) error { return s.opts.GeoIP.Reload() }})
	}

	for _, job := range jobs {
		trigger := s.wrap(job.name, job.run)
		run := func() {
			if err := trigger(); err != nil {
				s.logger.Error("scheduled job failed", "job", job.name, "error", err)
			}
		}
		if err := s.registry.Add(s.cron, job.name, job.description, job.schedule, run, trigger); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		err := run(ctx)
		s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
		return err
	}
}

func (s *Scheduler) runDueReportsJob(ctx context.Context) error {
	_, err := s.RunDueReports(ctx)
	return err
}

func (s *Scheduler) pruneBackupsJob(ctx context.Context) error {
	_, err := s.PruneBackups(ctx)
	return err
}

func (s *Scheduler) pruneEventsJob(ctx context.Context) error {
	_, err := s.PruneEvents(ctx)
	return err
}

// RunDueReports runs every scheduled report whose next activation after
// its last run (or creation) has passed. Returns the number of reports run.
func (s *Scheduler) RunDueReports(ctx context.Context) (int, error) {
	reports, err := s.queries.ListScheduledReports(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	ran := 0
	for _, rep := range reports {
		base := rep.CreatedAt
		if rep.LastRunAt != nil {
			base = *rep.LastRunAt
		}
		next, err := NextRun(rep.Schedule, base)
		if err != nil {
			s.logger.Warn("skipping report with invalid schedule", "report_id", rep.ID, "schedule", rep.Schedule, "error", err)
			continue
		}
		if next.After(now) {
			continue
		}

		if _, err := s.reports.Run(ctx, rep.ID); err != nil {
			s.logger.Error("failed to run scheduled report", "report_id", rep.ID, "error", err)
			continue
		}
		s.logger.Info("ran scheduled report", "report_id", rep.ID, "name", rep.Name)
		ran++
	}
	return ran, nil
}

// PruneBackups deletes backup records whose retention window has ended.
func (s *Scheduler) PruneBackups(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredBackups(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("deleted expired backup records", "count", n)
		_ = s.events.LogInfo(ctx, model.EventCategoryBackup, "Expired backup records deleted", map[string]any{"count": n})
	}
	return n, nil
}

// PruneEvents deletes activity events older than the retention window.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.opts.EventRetentionDays <= 0 {
		return 0, nil
	}
	n, err := s.events.DeleteOldEvents(ctx, time.Duration(s.opts.EventRetentionDays)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("deleted old activity events", "count", n, "retention_days", s.opts.EventRetentionDays)
	}
	return n, nil
}
