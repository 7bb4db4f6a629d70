// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics keeps a bounded in-memory window of recent HTTP
// requests and derives realtime and performance figures from it.
package analytics

import (
	"cmp"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// DefaultCapacity is the number of requests kept by NewTracker.
const DefaultCapacity = 10000

// CountryResolver maps an IP address to a country code ("" when unknown).
type CountryResolver interface {
	Country(ip string) string
}

// Hit is one recorded request.
type Hit struct {
	Time     time.Time
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	IP       string
	Client   Client
	Country  string
}

// Tracker records hits in a ring buffer. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	hits    []Hit
	next    int
	full    bool
	total   int64
	errors  int64
	started time.Time

	countries CountryResolver
	skip      []string
	now       func() time.Time
}

// NewTracker keeps the last capacity hits. countries may be nil.
func NewTracker(capacity int, countries CountryResolver) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		hits:      make([]Hit, capacity),
		started:   time.Now(),
		countries: countries,
		skip:      []string{"/health", "/uploads/"},
		now:       time.Now,
	}
}

// Started returns when the tracker was created.
func (t *Tracker) Started() time.Time {
	return t.started
}

// Record stores h.
func (t *Tracker) Record(h Hit) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hits[t.next] = h
	t.next = (t.next + 1) % len(t.hits)
	if t.next == 0 {
		t.full = true
	}
	t.total++
	if h.Status >= http.StatusInternalServerError {
		t.errors++
	}
}

// Middleware records every request that is not a health check or static upload.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range t.skip {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := t.now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ip := clientIP(r)
		h := Hit{
			Time:     start,
			Method:   r.Method,
			Path:     r.URL.Path,
			Status:   status,
			Duration: t.now().Sub(start),
			IP:       ip,
			Client:   ParseUserAgent(r.UserAgent()),
		}
		if t.countries != nil {
			h.Country = t.countries.Country(ip)
		}
		t.Record(h)
	})
}

// since copies the hits newer than cutoff, oldest first.
func (t *Tracker) since(cutoff time.Time) []Hit {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ordered []Hit
	if t.full {
		ordered = append(ordered, t.hits[t.next:]...)
	}
	ordered = append(ordered, t.hits[:t.next]...)

	// Hits are recorded on completion, so start times are only roughly ordered.
	return slices.DeleteFunc(ordered, func(h Hit) bool {
		return h.Time.Before(cutoff)
	})
}

// Count is a labelled counter.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Realtime summarizes the last few minutes of traffic.
type Realtime struct {
	RequestsLastMinute int       `json:"requests_last_minute"`
	ActiveVisitors     int       `json:"active_visitors"`
	TopPaths           []Count   `json:"top_paths"`
	Browsers           []Count   `json:"browsers"`
	Devices            []Count   `json:"devices"`
	Countries          []Count   `json:"countries"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// ActiveWindow is how far back a visitor counts as active.
const ActiveWindow = 5 * time.Minute

// Realtime returns traffic figures for the last ActiveWindow.
func (t *Tracker) Realtime() Realtime {
	now := t.now()
	hits := t.since(now.Add(-ActiveWindow))

	visitors := map[string]struct{}{}
	paths := map[string]int{}
	browsers := map[string]int{}
	devices := map[string]int{}
	countries := map[string]int{}
	lastMinute := 0
	for _, h := range hits {
		if h.Time.After(now.Add(-time.Minute)) {
			lastMinute++
		}
		if h.Client.Device == DeviceBot {
			continue
		}
		visitors[h.IP] = struct{}{}
		paths[h.Path]++
		browsers[h.Client.Browser]++
		devices[h.Client.Device]++
		if h.Country != "" {
			countries[h.Country]++
		}
	}

	return Realtime{
		RequestsLastMinute: lastMinute,
		ActiveVisitors:     len(visitors),
		TopPaths:           topCounts(paths, 10),
		Browsers:           topCounts(browsers, 10),
		Devices:            topCounts(devices, 10),
		Countries:          topCounts(countries, 10),
		GeneratedAt:        now.UTC(),
	}
}

// Latency summarizes request durations over a window.
type Latency struct {
	Window    string  `json:"window"`
	Requests  int     `json:"requests"`
	AvgMillis float64 `json:"avg_ms"`
	P95Millis float64 `json:"p95_ms"`
	MaxMillis float64 `json:"max_ms"`
	ErrorRate float64 `json:"error_rate"` // percent of 5xx responses
}

// Latency computes duration statistics for hits within window.
func (t *Tracker) Latency(window time.Duration) Latency {
	hits := t.since(t.now().Add(-window))
	l := Latency{Window: window.String(), Requests: len(hits)}
	if len(hits) == 0 {
		return l
	}

	durations := make([]time.Duration, len(hits))
	var sum time.Duration
	errs := 0
	for i, h := range hits {
		durations[i] = h.Duration
		sum += h.Duration
		if h.Status >= http.StatusInternalServerError {
			errs++
		}
	}
	slices.Sort(durations)

	p95 := durations[(len(durations)*95+99)/100-1]
	l.AvgMillis = millis(sum / time.Duration(len(hits)))
	l.P95Millis = millis(p95)
	l.MaxMillis = millis(durations[len(durations)-1])
	l.ErrorRate = float64(errs) / float64(len(hits)) * 100
	return l
}

// Totals returns the number of requests and 5xx responses since start.
func (t *Tracker) Totals() (requests, serverErrors int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, t.errors
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func topCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// clientIP reads RemoteAddr as rewritten by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
