// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledConfigYieldsNilRecorder(t *testing.T) {
	assert.Nil(t, NewRecorder(Config{}, nil))
	assert.Nil(t, NewRecorder(Config{URL: "http://localhost:8086"}, nil))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder

	r.Record(context.Background(), "learn", "accepted", time.Millisecond)

	entries, err := r.Recent(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, entries)

	r.Close()
}

func TestConfigEnabled(t *testing.T) {
	full := Config{URL: "http://localhost:8086", Token: "t", Org: "o", Bucket: "b"}
	assert.True(t, full.Enabled())

	partial := full
	partial.Bucket = ""
	assert.False(t, partial.Enabled())
}
