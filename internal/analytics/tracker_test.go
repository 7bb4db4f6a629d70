// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeCountries map[string]string

func (f fakeCountries) Country(ip string) string { return f[ip] }

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name   string
		header string
		device string
	}{
		{"desktop chrome", chromeUA, DeviceDesktop},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", DeviceMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", DeviceTablet},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", DeviceBot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.device, ParseUserAgent(tt.header).Device)
		})
	}

	empty := ParseUserAgent("")
	assert.Equal(t, unknown, empty.Browser)
	assert.Equal(t, unknown, empty.OS)
}

func TestTrackerRingBuffer(t *testing.T) {
	tr := NewTracker(3, nil)
	now := time.Now()
	for i := range 5 {
		tr.Record(Hit{Time: now.Add(time.Duration(i) * time.Millisecond), Path: "/p", Status: 200})
	}

	hits := tr.since(now.Add(-time.Hour))
	require.Len(t, hits, 3)
	assert.Equal(t, now.Add(2*time.Millisecond), hits[0].Time)

	total, errs := tr.Totals()
	assert.Equal(t, int64(5), total)
	assert.Zero(t, errs)
}

func TestTrackerRealtime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(100, nil)
	tr.now = func() time.Time { return now }

	desktop := Client{Browser: "Chrome", OS: "Windows", Device: DeviceDesktop}
	tr.Record(Hit{Time: now.Add(-10 * time.Minute), Path: "/old", IP: "1.1.1.1", Client: desktop})
	tr.Record(Hit{Time: now.Add(-3 * time.Minute), Path: "/about", IP: "1.1.1.1", Client: desktop, Country: "IQ"})
	tr.Record(Hit{Time: now.Add(-30 * time.Second), Path: "/about", IP: "2.2.2.2", Client: desktop, Country: "IQ"})
	tr.Record(Hit{Time: now.Add(-10 * time.Second), Path: "/", IP: "3.3.3.3", Client: Client{Device: DeviceBot}})

	rt := tr.Realtime()
	assert.Equal(t, 2, rt.RequestsLastMinute)
	assert.Equal(t, 2, rt.ActiveVisitors)
	require.NotEmpty(t, rt.TopPaths)
	assert.Equal(t, Count{Key: "/about", Count: 2}, rt.TopPaths[0])
	assert.Equal(t, []Count{{Key: "IQ", Count: 2}}, rt.Countries)
}

func TestTrackerLatency(t *testing.T) {
	now := time.Now()
	tr := NewTracker(100, nil)
	tr.now = func() time.Time { return now }

	for i := 1; i <= 20; i++ {
		status := http.StatusOK
		if i == 20 {
			status = http.StatusInternalServerError
		}
		tr.Record(Hit{Time: now.Add(-time.Second), Status: status, Duration: time.Duration(i) * time.Millisecond})
	}

	l := tr.Latency(time.Minute)
	assert.Equal(t, 20, l.Requests)
	assert.InDelta(t, 10.5, l.AvgMillis, 0.001)
	assert.InDelta(t, 19, l.P95Millis, 0.001)
	assert.InDelta(t, 20, l.MaxMillis, 0.001)
	assert.InDelta(t, 5, l.ErrorRate, 0.001)

	assert.Zero(t, NewTracker(10, nil).Latency(time.Minute).Requests)
}

func TestTrackerMiddleware(t *testing.T) {
	tr := NewTracker(10, fakeCountries{"203.0.113.7": "DE"})
	h := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/v1/pages", "/missing", "/health/live", "/uploads/a.jpg"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("User-Agent", chromeUA)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	hits := tr.since(time.Time{})
	require.Len(t, hits, 2)
	assert.Equal(t, "/api/v1/pages", hits[0].Path)
	assert.Equal(t, http.StatusOK, hits[0].Status)
	assert.Equal(t, "203.0.113.7", hits[0].IP)
	assert.Equal(t, "DE", hits[0].Country)
	assert.Equal(t, http.StatusNotFound, hits[1].Status)
}
