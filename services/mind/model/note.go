// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"time"

	"github.com/google/uuid"
)

// NoteType categorizes a note. The set is open; these are the built-ins.
type NoteType string

const (
	NoteTypeNote       NoteType = "note"
	NoteTypeAction     NoteType = "action"
	NoteTypeQuestion   NoteType = "question"
	NoteTypeConclusion NoteType = "conclusion"

	// NoteTypeDescriptor marks the synthetic note standing in for an outline
	// itself in search results. Descriptor notes are never stored.
	NoteTypeDescriptor NoteType = "outline-descriptor"
)

// Note is an item within exactly one outline.
//
// A note carries no owner pointer: ownership is tracked externally by the
// memory's owned-by index so cross-outline moves can never leave a dangling
// back-reference. Nesting is encoded by Depth plus sequence position in the
// owning outline; the explicit parent/children view is built by Tree.
type Note struct {
	// ID is the stable unique identifier, assigned once at creation.
	ID string `json:"id"`

	// Name is the display title.
	Name string `json:"name"`

	// Type categorizes the note.
	Type NoteType `json:"type"`

	// Depth is the nesting level within the owning outline, >= 0.
	Depth int `json:"depth"`

	// Description is the ordered sequence of text blocks. Blocks may be
	// empty strings.
	Description []string `json:"description,omitempty"`

	// Tags are label names, many-to-many via the tag registry.
	Tags []string `json:"tags,omitempty"`

	// Progress is a bounded 0-100 completion scale.
	Progress int `json:"progress"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// NewNote builds a note with a fresh ID and current timestamps.
func NewNote(name string, typ NoteType, depth int) *Note {
	if typ == "" {
		typ = NoteTypeNote
	}
	if depth < 0 {
		depth = 0
	}
	now := time.Now()
	return &Note{
		ID:       uuid.NewString(),
		Name:     name,
		Type:     typ,
		Depth:    depth,
		Created:  now,
		Modified: now,
	}
}

// NewDefaultNote builds the note synthesized into an otherwise empty
// outline.
func NewDefaultNote() *Note {
	return NewNote("Note", NoteTypeNote, 0)
}

// Clone returns a deep copy retaining the ID. Callers creating a genuinely
// new note (outline clones, stencil instantiation) must assign a fresh ID
// afterwards or the owned-by index would alias two notes.
func (n *Note) Clone() *Note {
	c := *n
	c.Description = append([]string(nil), n.Description...)
	c.Tags = append([]string(nil), n.Tags...)
	return &c
}

// Touch updates the modification timestamp.
func (n *Note) Touch() {
	n.Modified = time.Now()
}

// HasTag reports whether the note carries the exact tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
