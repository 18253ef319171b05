// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"sync"

	"github.com/AleutianAI/noetic/services/mind/model"
)

// AllNotes is the lazily built, epoch-stamped flattened note list across all
// outlines.
//
// Thread Safety: safe for concurrent use.
type AllNotes struct {
	mu    sync.RWMutex
	epoch uint64
	notes []*model.Note
	built bool
}

// Get returns the flattened note list for the given epoch, rebuilding it
// through build when the cached copy is missing or stamped with a different
// epoch. The returned slice is shared: callers must not mutate it.
func (c *AllNotes) Get(current uint64, build func() []*model.Note) []*model.Note {
	c.mu.RLock()
	if c.built && c.epoch == current {
		notes := c.notes
		c.mu.RUnlock()
		cacheHits.WithLabelValues("all_notes").Inc()
		return notes
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another reader may have rebuilt while we waited for the write lock.
	if c.built && c.epoch == current {
		cacheHits.WithLabelValues("all_notes").Inc()
		return c.notes
	}
	c.notes = build()
	c.epoch = current
	c.built = true
	cacheRebuilds.WithLabelValues("all_notes").Inc()
	return c.notes
}

// Stale reports whether a Get at the given epoch would rebuild.
func (c *AllNotes) Stale(current uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.built || c.epoch != current
}

// Invalidate drops the cached list outright. The epoch protocol makes this
// unnecessary after ordinary mutations; sleep and amnesia call it so even a
// same-epoch read cannot resurrect the old view.
func (c *AllNotes) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = nil
	c.built = false
}
