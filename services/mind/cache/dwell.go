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
	"time"
)

// DefaultDwellCapacity bounds the dwell ring when no capacity is configured.
const DefaultDwellCapacity = 64

// DwellEntry records one note visit.
type DwellEntry struct {
	NoteID string
	Epoch  uint64
	At     time.Time
}

// Dwell is the bounded ring of recently visited notes.
//
// Description:
//
//	Visits append in insertion order and evict the oldest entry once the
//	ring is full. Entries are stamped with the epoch current at visit time;
//	reads drop entries from older epochs, so a structural mutation empties
//	the dwell view without an explicit clear-call.
//
// Thread Safety: safe for concurrent use.
type Dwell struct {
	mu   sync.Mutex
	buf  []DwellEntry
	head int
	size int
}

// NewDwell returns an empty dwell ring with the given capacity. A
// non-positive capacity falls back to DefaultDwellCapacity.
func NewDwell(capacity int) *Dwell {
	if capacity <= 0 {
		capacity = DefaultDwellCapacity
	}
	return &Dwell{buf: make([]DwellEntry, capacity)}
}

// Visit records a note access at the given epoch, evicting the oldest entry
// when the ring is full.
func (d *Dwell) Visit(noteID string, epoch uint64) {
	entry := DwellEntry{NoteID: noteID, Epoch: epoch, At: time.Now()}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.size < len(d.buf) {
		d.buf[(d.head+d.size)%len(d.buf)] = entry
		d.size++
		return
	}
	d.buf[d.head] = entry
	d.head = (d.head + 1) % len(d.buf)
}

// Recent returns the visits recorded at the current epoch, newest first.
// Entries from older epochs are dropped from the ring as a side effect.
func (d *Dwell) Recent(current uint64) []DwellEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.compact(current)

	out := make([]DwellEntry, 0, d.size)
	for i := d.size - 1; i >= 0; i-- {
		out = append(out, d.buf[(d.head+i)%len(d.buf)])
	}
	return out
}

// compact drops entries whose epoch does not match current. Caller holds the
// lock.
func (d *Dwell) compact(current uint64) {
	kept := make([]DwellEntry, 0, d.size)
	for i := 0; i < d.size; i++ {
		e := d.buf[(d.head+i)%len(d.buf)]
		if e.Epoch == current {
			kept = append(kept, e)
		}
	}
	d.head = 0
	d.size = len(kept)
	copy(d.buf, kept)
}

// Clear drops every entry.
func (d *Dwell) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.head = 0
	d.size = 0
}

// Len returns the number of entries currently held, including entries a
// Recent call would drop as stale.
func (d *Dwell) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Cap returns the ring capacity.
func (d *Dwell) Cap() int {
	return len(d.buf)
}
