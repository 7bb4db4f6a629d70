// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StringList
	}{
		{"empty", "", StringList{}},
		{"comma list", "solar,iraq", StringList{"solar", "iraq"}},
		{"comma list with spaces", " solar , , iraq ", StringList{"solar", "iraq"}},
		{"json array", `["solar","iraq"]`, StringList{"solar", "iraq"}},
		{"json array keeps commas", `["Erbil, KRG","wind"]`, StringList{"Erbil, KRG", "wind"}},
		{"broken json falls back to split", `[solar`, StringList{"[solar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStringList(tt.in))
		})
	}
}

func TestStringListJSON(t *testing.T) {
	var payload struct {
		Tags StringList `json:"tags"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"tags":["solar","iraq"]}`), &payload))
	assert.Equal(t, StringList{"solar", "iraq"}, payload.Tags)
	assert.Equal(t, "solar,iraq", payload.Tags.Joined())

	require.NoError(t, json.Unmarshal([]byte(`{"tags":"solar, wind"}`), &payload))
	assert.Equal(t, StringList{"solar", "wind"}, payload.Tags)

	require.NoError(t, json.Unmarshal([]byte(`{"tags":null}`), &payload))
	assert.Empty(t, payload.Tags)

	assert.Error(t, json.Unmarshal([]byte(`{"tags":42}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"tags":[1,2]}`), &payload))

	out, err := json.Marshal(StringList(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}

func TestStringListValueScan(t *testing.T) {
	in := StringList{"Erbil, KRG", "solar"}
	v, err := in.Value()
	require.NoError(t, err)

	var out StringList
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan([]byte("a,b")))
	assert.Equal(t, StringList{"a", "b"}, out)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)

	assert.Error(t, out.Scan(12))
}
