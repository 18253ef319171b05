// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the knowledge-base entities: outlines, notes, tags,
// and the tree view over an outline's note sequence.
//
// # Description
//
// An outline owns an ordered sequence of notes; nesting is encoded by each
// note's depth combined with its position (a note's descendants are the
// contiguous run of subsequent notes with strictly greater depth). The
// package provides the sequence surgery primitives structural editing is
// built from, keeps the depth-consistency invariant checkable, and exposes
// an explicit parent/children index (Tree) so boundary arithmetic over raw
// depths stays in one place.
//
// # Thread Safety
//
// Entities are plain data. The orchestration layer serializes all mutation;
// concurrent readers of an outline under mutation are a protocol violation,
// not a model concern.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OutlineType categorizes an outline. The set is open; these are the
// built-ins.
type OutlineType string

const (
	OutlineTypeOutline  OutlineType = "outline"
	OutlineTypeNotebook OutlineType = "notebook"
	OutlineTypeJournal  OutlineType = "journal"
)

// Bounded metadata scales.
const (
	MaxImportance = 5
	MaxUrgency    = 5
	MaxProgress   = 100
)

// Outline is a document: an ordered, depth-nested sequence of notes plus
// document-level metadata.
type Outline struct {
	// Key uniquely identifies the outline across all of memory.
	Key string `json:"key"`

	// Name is the display title.
	Name string `json:"name"`

	// Type categorizes the outline.
	Type OutlineType `json:"type"`

	// Preamble is the ordered sequence of text blocks preceding the notes.
	Preamble []string `json:"preamble,omitempty"`

	// Importance and Urgency are bounded 0-5 scales; Progress is 0-100.
	Importance int `json:"importance"`
	Urgency    int `json:"urgency"`
	Progress   int `json:"progress"`

	// Tags are label names, many-to-many via the tag registry.
	Tags []string `json:"tags,omitempty"`

	// Notes is the ordered note sequence; order is the display/traversal
	// order and must stay contiguous after every edit.
	Notes []*Note `json:"notes"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// NewOutline builds an empty outline under the given key with current
// timestamps. Metadata scales are clamped to their bounds.
func NewOutline(key, name string, typ OutlineType, importance, urgency, progress int) *Outline {
	if typ == "" {
		typ = OutlineTypeOutline
	}
	now := time.Now()
	return &Outline{
		Key:        key,
		Name:       name,
		Type:       typ,
		Importance: clamp(importance, 0, MaxImportance),
		Urgency:    clamp(urgency, 0, MaxUrgency),
		Progress:   clamp(progress, 0, MaxProgress),
		Created:    now,
		Modified:   now,
	}
}

// Touch updates the modification timestamp.
func (o *Outline) Touch() {
	o.Modified = time.Now()
}

// NoteCount returns the number of notes in the sequence.
func (o *Outline) NoteCount() int {
	return len(o.Notes)
}

// IndexOf returns the sequence position of the note with the given ID, or
// -1 when absent.
func (o *Outline) IndexOf(noteID string) int {
	for i, n := range o.Notes {
		if n.ID == noteID {
			return i
		}
	}
	return -1
}

// NoteByID returns the note with the given ID, or nil when absent.
func (o *Outline) NoteByID(noteID string) *Note {
	if i := o.IndexOf(noteID); i >= 0 {
		return o.Notes[i]
	}
	return nil
}

// SubtreeSpan returns the length of the subtree rooted at position pos:
// the note itself plus the contiguous run of subsequent notes with strictly
// greater depth. Returns 0 for an out-of-range position.
func (o *Outline) SubtreeSpan(pos int) int {
	if pos < 0 || pos >= len(o.Notes) {
		return 0
	}
	depth := o.Notes[pos].Depth
	span := 1
	for i := pos + 1; i < len(o.Notes) && o.Notes[i].Depth > depth; i++ {
		span++
	}
	return span
}

// InsertAt splices the notes into the sequence at position pos. A pos at or
// beyond the end appends; a negative pos prepends.
func (o *Outline) InsertAt(pos int, notes ...*Note) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(o.Notes) {
		pos = len(o.Notes)
	}
	o.Notes = append(o.Notes[:pos], append(notes, o.Notes[pos:]...)...)
}

// RemoveSubtreeAt removes the subtree rooted at position pos and returns the
// removed notes in their original order. Returns nil for an out-of-range
// position. The remaining sequence closes the gap, keeping order contiguous.
func (o *Outline) RemoveSubtreeAt(pos int) []*Note {
	span := o.SubtreeSpan(pos)
	if span == 0 {
		return nil
	}
	removed := make([]*Note, span)
	copy(removed, o.Notes[pos:pos+span])
	o.Notes = append(o.Notes[:pos], o.Notes[pos+span:]...)
	return removed
}

// Clone deep-copies the outline under a fresh key. Every cloned note gets a
// fresh ID so the owned-by index never aliases the source; timestamps are
// reset and the clone is marked modified.
func (o *Outline) Clone(newKey string) *Outline {
	now := time.Now()
	c := &Outline{
		Key:        newKey,
		Name:       o.Name,
		Type:       o.Type,
		Preamble:   append([]string(nil), o.Preamble...),
		Importance: o.Importance,
		Urgency:    o.Urgency,
		Progress:   o.Progress,
		Tags:       append([]string(nil), o.Tags...),
		Notes:      make([]*Note, 0, len(o.Notes)),
		Created:    now,
		Modified:   now,
	}
	for _, n := range o.Notes {
		cn := n.Clone()
		cn.ID = uuid.NewString()
		c.Notes = append(c.Notes, cn)
	}
	return c
}

// DescriptorNote synthesizes the note standing in for the outline itself in
// search results. The descriptor borrows the outline's key as its ID so
// repeated searches report a stable identity; it is never stored.
func (o *Outline) DescriptorNote() *Note {
	return &Note{
		ID:          o.Key,
		Name:        o.Name,
		Type:        NoteTypeDescriptor,
		Depth:       0,
		Description: append([]string(nil), o.Preamble...),
		Tags:        append([]string(nil), o.Tags...),
		Created:     o.Created,
		Modified:    o.Modified,
	}
}

// HasTag reports whether the outline carries the exact tag.
func (o *Outline) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ShiftDepth adjusts the depth of every note by delta, flooring at zero.
// Used when a subtree is spliced under a new parent.
func ShiftDepth(notes []*Note, delta int) {
	for _, n := range notes {
		n.Depth += delta
		if n.Depth < 0 {
			n.Depth = 0
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
