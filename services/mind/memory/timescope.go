// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"time"

	"github.com/AleutianAI/noetic/services/mind/model"
)

// TimeScope restricts which notes are visible to scans. When enabled, a
// note is in scope only if it was modified within the horizon of "now";
// outlines themselves are never filtered, only their notes.
type TimeScope struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Horizon time.Duration `json:"horizon" yaml:"horizon"`
}

// Includes reports whether the note falls inside the scope at the given
// reference time. A disabled scope includes everything.
func (s TimeScope) Includes(n *model.Note, now time.Time) bool {
	if !s.Enabled {
		return true
	}
	return now.Sub(n.Modified) <= s.Horizon
}
