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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOutline builds the shared fixture:
//
//	alpha   (depth 0)
//	  beta  (depth 1)
//	    gamma (depth 2)
//	  delta (depth 1)
//	omega   (depth 0)
func testOutline(t *testing.T) *Outline {
	t.Helper()
	o := NewOutline("study-go-1a2b", "Go Study", OutlineTypeNotebook, 3, 2, 10)
	for _, spec := range []struct {
		name  string
		depth int
	}{
		{"alpha", 0},
		{"beta", 1},
		{"gamma", 2},
		{"delta", 1},
		{"omega", 0},
	} {
		o.Notes = append(o.Notes, NewNote(spec.name, NoteTypeNote, spec.depth))
	}
	return o
}

func names(notes []*Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Name
	}
	return out
}

func TestNewOutlineClampsMetadata(t *testing.T) {
	o := NewOutline("k", "n", OutlineTypeOutline, 99, -1, 150)
	assert.Equal(t, MaxImportance, o.Importance)
	assert.Equal(t, 0, o.Urgency)
	assert.Equal(t, MaxProgress, o.Progress)
	assert.False(t, o.Created.IsZero())
	assert.False(t, o.Modified.IsZero())
}

func TestNewOutlineDefaultsType(t *testing.T) {
	o := NewOutline("k", "n", "", 0, 0, 0)
	assert.Equal(t, OutlineTypeOutline, o.Type)
}

func TestSubtreeSpan(t *testing.T) {
	o := testOutline(t)

	tests := []struct {
		pos  int
		want int
	}{
		{0, 4}, // alpha + beta + gamma + delta
		{1, 2}, // beta + gamma
		{2, 1}, // gamma
		{3, 1}, // delta
		{4, 1}, // omega
		{-1, 0},
		{5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, o.SubtreeSpan(tt.pos), "pos %d", tt.pos)
	}
}

func TestRemoveSubtreeAt(t *testing.T) {
	o := testOutline(t)

	removed := o.RemoveSubtreeAt(1)
	require.Len(t, removed, 2)
	assert.Equal(t, []string{"beta", "gamma"}, names(removed))
	assert.Equal(t, []string{"alpha", "delta", "omega"}, names(o.Notes))
	require.NoError(t, ValidateDepths(o))
}

func TestRemoveSubtreeAtRoot(t *testing.T) {
	o := testOutline(t)

	removed := o.RemoveSubtreeAt(0)
	require.Len(t, removed, 4)
	assert.Equal(t, []string{"omega"}, names(o.Notes))
}

func TestRemoveSubtreeAtOutOfRange(t *testing.T) {
	o := testOutline(t)
	assert.Nil(t, o.RemoveSubtreeAt(99))
	assert.Nil(t, o.RemoveSubtreeAt(-1))
	assert.Len(t, o.Notes, 5)
}

func TestInsertAt(t *testing.T) {
	o := &Outline{Key: "k"}
	b := NewNote("b", NoteTypeNote, 0)
	o.InsertAt(0, b)

	a := NewNote("a", NoteTypeNote, 0)
	o.InsertAt(0, a) // prepend

	c := NewNote("c", NoteTypeNote, 0)
	o.InsertAt(99, c) // clamp to append

	d := NewNote("d", NoteTypeNote, 0)
	o.InsertAt(-5, d) // clamp to prepend

	assert.Equal(t, []string{"d", "a", "b", "c"}, names(o.Notes))
}

func TestInsertAtSplicesMultiple(t *testing.T) {
	o := testOutline(t)
	x := NewNote("x", NoteTypeNote, 0)
	y := NewNote("y", NoteTypeNote, 1)

	o.InsertAt(4, x, y) // before omega

	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "x", "y", "omega"}, names(o.Notes))
	require.NoError(t, ValidateDepths(o))
}

func TestIndexOfAndNoteByID(t *testing.T) {
	o := testOutline(t)
	beta := o.Notes[1]

	assert.Equal(t, 1, o.IndexOf(beta.ID))
	assert.Same(t, beta, o.NoteByID(beta.ID))

	assert.Equal(t, -1, o.IndexOf("missing"))
	assert.Nil(t, o.NoteByID("missing"))
}

func TestCloneIsDeepAndReIDs(t *testing.T) {
	o := testOutline(t)
	o.Preamble = []string{"intro"}
	o.Tags = []string{"go", "study"}

	c := o.Clone("study-go-copy")

	assert.Equal(t, "study-go-copy", c.Key)
	assert.Equal(t, o.Name, c.Name)
	assert.Equal(t, names(o.Notes), names(c.Notes))
	require.Len(t, c.Notes, len(o.Notes))

	for i := range o.Notes {
		assert.NotEqual(t, o.Notes[i].ID, c.Notes[i].ID, "clone must re-ID notes")
		assert.Equal(t, o.Notes[i].Depth, c.Notes[i].Depth)
	}

	// Mutating the clone must not leak into the source.
	c.Notes[0].Name = "changed"
	c.Preamble[0] = "changed"
	c.Tags[0] = "changed"
	assert.Equal(t, "alpha", o.Notes[0].Name)
	assert.Equal(t, "intro", o.Preamble[0])
	assert.Equal(t, "go", o.Tags[0])
}

func TestDescriptorNote(t *testing.T) {
	o := testOutline(t)
	o.Preamble = []string{"a preamble block"}

	d := o.DescriptorNote()

	assert.Equal(t, o.Key, d.ID)
	assert.Equal(t, o.Name, d.Name)
	assert.Equal(t, NoteTypeDescriptor, d.Type)
	assert.Equal(t, 0, d.Depth)
	assert.Equal(t, o.Preamble, d.Description)

	// Stable identity across calls.
	assert.Equal(t, d.ID, o.DescriptorNote().ID)

	// The descriptor owns its slices.
	d.Description[0] = "changed"
	assert.Equal(t, "a preamble block", o.Preamble[0])
}

func TestShiftDepthFloorsAtZero(t *testing.T) {
	notes := []*Note{
		NewNote("a", NoteTypeNote, 0),
		NewNote("b", NoteTypeNote, 2),
	}
	ShiftDepth(notes, -1)
	assert.Equal(t, 0, notes[0].Depth)
	assert.Equal(t, 1, notes[1].Depth)
}

func TestNoteCloneRetainsID(t *testing.T) {
	n := NewNote("n", NoteTypeAction, 1)
	n.Description = []string{"block"}
	n.Tags = []string{"t"}

	c := n.Clone()
	assert.Equal(t, n.ID, c.ID)

	c.Description[0] = "changed"
	c.Tags[0] = "changed"
	assert.Equal(t, "block", n.Description[0])
	assert.Equal(t, "t", n.Tags[0])
}

func TestNewNoteDefaults(t *testing.T) {
	n := NewNote("n", "", -3)
	assert.Equal(t, NoteTypeNote, n.Type)
	assert.Equal(t, 0, n.Depth)
	assert.NotEmpty(t, n.ID)

	d := NewDefaultNote()
	assert.Equal(t, "Note", d.Name)
	assert.Equal(t, NoteTypeNote, d.Type)
}

func TestHasTag(t *testing.T) {
	o := testOutline(t)
	o.Tags = []string{"go"}
	assert.True(t, o.HasTag("go"))
	assert.False(t, o.HasTag("rust"))

	n := o.Notes[0]
	n.Tags = []string{"deep"}
	assert.True(t, n.HasTag("deep"))
	assert.False(t, n.HasTag("Deep"))
}

func TestNoteStencilInstantiate(t *testing.T) {
	s := NoteStencil{
		Name:        "Daily review",
		Type:        NoteTypeAction,
		Depth:       1,
		Description: []string{"checklist"},
		Tags:        []string{"routine"},
		Progress:    250,
	}

	n := s.Instantiate()
	assert.Equal(t, "Daily review", n.Name)
	assert.Equal(t, NoteTypeAction, n.Type)
	assert.Equal(t, 1, n.Depth)
	assert.Equal(t, []string{"checklist"}, n.Description)
	assert.Equal(t, MaxProgress, n.Progress)
	assert.NotEmpty(t, n.ID)

	// Each instantiation is a fresh note.
	assert.NotEqual(t, n.ID, s.Instantiate().ID)
}

func TestOutlineStencilApplyTo(t *testing.T) {
	o := NewOutline("k", "Journal", OutlineTypeJournal, 0, 0, 0)
	o.Tags = []string{"daily"}

	s := OutlineStencil{
		Preamble: []string{"template preamble"},
		Tags:     []string{"daily", "template"},
		Notes: []NoteStencil{
			{Name: "Morning", Depth: 0},
			{Name: "Focus", Depth: 1},
		},
	}
	s.ApplyTo(o)

	assert.Equal(t, []string{"template preamble"}, o.Preamble)
	assert.Equal(t, []string{"daily", "template"}, o.Tags, "tags deduplicate")
	assert.Equal(t, []string{"Morning", "Focus"}, names(o.Notes))
	require.NoError(t, ValidateDepths(o))
}
