// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import "github.com/mileusna/useragent"

// Device classes
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

const unknown = "Unknown"

// Client is the parsed form of a User-Agent header.
type Client struct {
	Browser string
	OS      string
	Device  string
}

// ParseUserAgent classifies a User-Agent header.
func ParseUserAgent(header string) Client {
	ua := useragent.Parse(header)

	c := Client{Browser: ua.Name, OS: ua.OS, Device: DeviceDesktop}
	if c.Browser == "" {
		c.Browser = unknown
	}
	if c.OS == "" {
		c.OS = unknown
	}
	switch {
	case ua.Bot:
		c.Device = DeviceBot
	case ua.Tablet:
		c.Device = DeviceTablet
	case ua.Mobile:
		c.Device = DeviceMobile
	}
	return c
}
