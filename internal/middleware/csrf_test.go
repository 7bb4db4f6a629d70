// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig(t *testing.T) {
	dev := DefaultCSRFConfig(testCSRFKey, true, "cms.example.com")
	if len(dev.TrustedOrigins) != 3 {
		t.Errorf("dev TrustedOrigins = %v, want 3 entries", dev.TrustedOrigins)
	}
	for _, origin := range dev.TrustedOrigins {
		if strings.HasPrefix(origin, "http") {
			t.Errorf("TrustedOrigin %q should be host[:port], not a URL", origin)
		}
	}

	prod := DefaultCSRFConfig(testCSRFKey, false)
	if len(prod.TrustedOrigins) != 0 {
		t.Errorf("production TrustedOrigins = %v, want none", prod.TrustedOrigins)
	}
}

func TestCSRFBlocksCrossSitePost(t *testing.T) {
	handler := CSRF(DefaultCSRFConfig(testCSRFKey, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name      string
		method    string
		fetchSite string
		want      int
	}{
		{"same origin post", http.MethodPost, "same-origin", http.StatusOK},
		{"cross site get", http.MethodGet, "cross-site", http.StatusOK},
		{"cross site post", http.MethodPost, "cross-site", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "https://cms.example.com/api/admin/pages", nil)
			req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && !strings.Contains(rr.Body.String(), "CSRF") {
				t.Errorf("body = %q, want CSRF error", rr.Body.String())
			}
		})
	}
}
