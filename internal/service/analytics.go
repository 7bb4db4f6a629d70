// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/olegiv/greenpower-cms/internal/analytics"
	"github.com/olegiv/greenpower-cms/internal/cache"
	"github.com/olegiv/greenpower-cms/internal/store"
)

// SystemUsage is a snapshot of stored entities.
type SystemUsage struct {
	Users            int64              `json:"users"`
	UsersByRole      []store.CountByKey `json:"users_by_role"`
	UsersByStatus    []store.CountByKey `json:"users_by_status"`
	Projects         int64              `json:"projects"`
	ProjectsByStatus []store.CountByKey `json:"projects_by_status"`
	ProjectBudget    float64            `json:"project_budget"`
	ProjectSpent     float64            `json:"project_spent"`
	Media            int64              `json:"media"`
	MediaBytes       int64              `json:"media_bytes"`
	MediaByType      []store.CountByKey `json:"media_by_type"`
	PagesByStatus    []store.CountByKey `json:"pages_by_status"`
	Reports          int64              `json:"reports"`
	Backups          int64              `json:"backups"`
	EventsLast24h    int64              `json:"events_last_24h"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// Performance describes the running process.
type Performance struct {
	Uptime          string            `json:"uptime"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	GoVersion       string            `json:"go_version"`
	Goroutines      int               `json:"goroutines"`
	MemoryAllocMB   float64           `json:"memory_alloc_mb"`
	MemorySysMB     float64           `json:"memory_sys_mb"`
	GCCycles        uint32            `json:"gc_cycles"`
	DBPingMillis    float64           `json:"db_ping_ms"`
	DBOpenConns     int               `json:"db_open_connections"`
	TotalRequests   int64             `json:"total_requests"`
	ServerErrors    int64             `json:"server_errors"`
	LastFiveMinutes analytics.Latency `json:"last_5m"`
	LastHour        analytics.Latency `json:"last_1h"`
	Cache           *cache.Stats      `json:"cache,omitempty"`
}

// AnalyticsService reads dashboard figures from the database and the request tracker.
type AnalyticsService struct {
	db      *sql.DB
	queries *store.Queries
	tracker *analytics.Tracker
	cache   cache.Cache
}

// NewAnalyticsService creates an analytics service. c may be nil.
func NewAnalyticsService(db *sql.DB, tracker *analytics.Tracker, c cache.Cache) *AnalyticsService {
	return &AnalyticsService{db: db, queries: store.New(db), tracker: tracker, cache: c}
}

// SystemUsage counts stored entities.
func (s *AnalyticsService) SystemUsage(ctx context.Context) (*SystemUsage, error) {
	u := &SystemUsage{GeneratedAt: time.Now().UTC()}
	var err error

	if u.UsersByRole, err = s.queries.CountUsersByRole(ctx); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if u.UsersByStatus, err = s.queries.CountUsersByStatus(ctx); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	u.Users = sum(u.UsersByStatus)

	if u.ProjectsByStatus, err = s.queries.CountProjectsByStatus(ctx); err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}
	u.Projects = sum(u.ProjectsByStatus)
	if u.ProjectBudget, u.ProjectSpent, err = s.queries.ProjectBudgetTotals(ctx); err != nil {
		return nil, fmt.Errorf("summing budgets: %w", err)
	}

	if u.MediaByType, err = s.queries.CountMediaByType(ctx); err != nil {
		return nil, fmt.Errorf("counting media: %w", err)
	}
	u.Media = sum(u.MediaByType)
	if u.MediaBytes, err = s.queries.MediaTotalSize(ctx); err != nil {
		return nil, fmt.Errorf("summing media size: %w", err)
	}

	if u.PagesByStatus, err = s.queries.CountPagesByStatus(ctx); err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	reports, err := s.queries.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting reports: %w", err)
	}
	u.Reports = int64(len(reports))
	backups, err := s.queries.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting backups: %w", err)
	}
	u.Backups = int64(len(backups))

	if u.EventsLast24h, err = s.queries.CountEvents(ctx, store.EventFilter{Since: u.GeneratedAt.Add(-24 * time.Hour)}); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	return u, nil
}

// Performance reports runtime, database and request latency figures.
func (s *AnalyticsService) Performance(ctx context.Context) *Performance {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p := &Performance{
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(mem.Alloc) / (1 << 20),
		MemorySysMB:   float64(mem.Sys) / (1 << 20),
		GCCycles:      mem.NumGC,
		DBOpenConns:   s.db.Stats().OpenConnections,
	}

	start := time.Now()
	if err := s.db.PingContext(ctx); err == nil {
		p.DBPingMillis = float64(time.Since(start).Microseconds()) / 1000
	} else {
		p.DBPingMillis = -1
	}

	if s.tracker != nil {
		uptime := time.Since(s.tracker.Started()).Truncate(time.Second)
		p.Uptime = uptime.String()
		p.UptimeSeconds = int64(uptime.Seconds())
		p.TotalRequests, p.ServerErrors = s.tracker.Totals()
		p.LastFiveMinutes = s.tracker.Latency(5 * time.Minute)
		p.LastHour = s.tracker.Latency(time.Hour)
	}
	if s.cache != nil {
		st := s.cache.Stats()
		p.Cache = &st
	}
	return p
}

// Realtime returns the request tracker snapshot.
func (s *AnalyticsService) Realtime() analytics.Realtime {
	if s.tracker == nil {
		return analytics.Realtime{GeneratedAt: time.Now().UTC()}
	}
	return s.tracker.Realtime()
}

// WriteUsageCSV writes u as section,key,value rows.
func WriteUsageCSV(w io.Writer, u *SystemUsage) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"totals", "users", itoa(u.Users)},
		{"totals", "projects", itoa(u.Projects)},
		{"totals", "media", itoa(u.Media)},
		{"totals", "media_bytes", itoa(u.MediaBytes)},
		{"totals", "reports", itoa(u.Reports)},
		{"totals", "backups", itoa(u.Backups)},
		{"totals", "events_last_24h", itoa(u.EventsLast24h)},
		{"totals", "project_budget", strconv.FormatFloat(u.ProjectBudget, 'f', 2, 64)},
		{"totals", "project_spent", strconv.FormatFloat(u.ProjectSpent, 'f', 2, 64)},
	}
	groups := []struct {
		section string
		counts  []store.CountByKey
	}{
		{"users_by_role", u.UsersByRole},
		{"users_by_status", u.UsersByStatus},
		{"projects_by_status", u.ProjectsByStatus},
		{"media_by_type", u.MediaByType},
		{"pages_by_status", u.PagesByStatus},
	}
	for _, g := range groups {
		for _, c := range g.counts {
			rows = append(rows, []string{g.section, c.Key, itoa(c.Count)})
		}
	}
	rows = append(rows, []string{"meta", "generated_at", u.GeneratedAt.Format(time.RFC3339)})

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func sum(counts []store.CountByKey) int64 {
	var n int64
	for _, c := range counts {
		n += c.Count
	}
	return n
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
