// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip maps visitor IP addresses to ISO country codes using a
// MaxMind GeoLite2-Country database.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/greenpower-cms/internal/util"
)

// Unknown is returned when a country cannot be determined.
const Unknown = ""

// Lookup resolves countries. The zero value and a nil *Lookup resolve nothing.
type Lookup struct {
	mu      sync.RWMutex
	db      *maxminddb.Reader
	path    string
	modTime time.Time
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path.
func Open(path string) (*Lookup, error) {
	l := &Lookup{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload reopens the database if the file changed since it was loaded.
func (l *Lookup) Reload() error {
	if l == nil {
		return nil
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("geoip database: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil && info.ModTime().Equal(l.modTime) {
		return nil
	}
	db, err := maxminddb.Open(l.path)
	if err != nil {
		return fmt.Errorf("opening geoip database: %w", err)
	}
	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.modTime = info.ModTime()
	return nil
}

// Country returns the ISO 3166-1 alpha-2 code for ip, or Unknown.
// Non-public addresses are never looked up.
func (l *Lookup) Country(ip string) string {
	if l == nil || !util.IsPublicIP(ip) {
		return Unknown
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return Unknown
	}

	var rec countryRecord
	if err := l.db.Lookup(net.ParseIP(ip), &rec); err != nil {
		return Unknown
	}
	return rec.Country.ISOCode
}

// Close releases the database.
func (l *Lookup) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
