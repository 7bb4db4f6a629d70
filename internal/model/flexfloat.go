// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat is a monetary amount decoded leniently from JSON.
//
// Numbers are taken as is, numeric strings are parsed and anything else
// (blank strings, null, garbage) becomes 0.
type FlexFloat float64

// ParseFlexFloat parses s as a float and falls back to 0.
// NaN and infinities are not amounts and also become 0.
func ParseFlexFloat(s string) FlexFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return FlexFloat(f)
}

// UnmarshalJSON never fails for well-formed JSON.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = FlexFloat(v)
	case string:
		*f = ParseFlexFloat(v)
	default:
		*f = 0
	}
	return nil
}

// Float64 returns the amount as a float64.
func (f FlexFloat) Float64() float64 {
	return float64(f)
}
