// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  INFO ", slog.LevelInfo},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Config{Level: "shout"})
	assert.Error(t, err)
}

func TestFileSinkReceivesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "noetic.log")

	logger, closer, err := New(Config{Level: "debug", File: path, ForceJSON: true})
	require.NoError(t, err)

	logger.Info("test entry", slog.String("component", "logging"))
	require.NoError(t, closer())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "test entry", rec["msg"])
	assert.Equal(t, "logging", rec["component"])
}

func TestLevelFiltersRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noetic.log")

	logger, closer, err := New(Config{Level: "warn", File: path, ForceJSON: true})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, closer())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")
}

func TestDefaultAndDiscardNeverNil(t *testing.T) {
	assert.NotNil(t, Default())
	assert.NotNil(t, Discard())
}

func TestCloserSafeWithoutFile(t *testing.T) {
	_, closer, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, closer())
}
