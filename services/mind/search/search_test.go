// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// fixtureMemory holds two outlines:
//
//	a-research "Go Research" (preamble mentions "generics")
//	  "a note about x" (description: "substring engines")
//	  "unrelated"      (tag: deep)
//	b-journal "Journal"
//	  "Note on generics"
func fixtureMemory(t *testing.T) *memory.Memory {
	t.Helper()
	mem := memory.New(nil, nil)

	a := model.NewOutline("a-research", "Go Research", model.OutlineTypeOutline, 0, 0, 0)
	a.Preamble = []string{"notes on generics and iterators"}
	n1 := model.NewNote("a note about x", model.NoteTypeNote, 0)
	n1.Description = []string{"substring engines"}
	n2 := model.NewNote("unrelated", model.NoteTypeNote, 0)
	n2.Tags = []string{"deep"}
	a.Notes = append(a.Notes, n1, n2)

	b := model.NewOutline("b-journal", "Journal", model.OutlineTypeJournal, 0, 0, 0)
	b.Notes = append(b.Notes, model.NewNote("Note on generics", model.NoteTypeNote, 0))

	require.NoError(t, mem.Remember(context.Background(), a))
	require.NoError(t, mem.Remember(context.Background(), b))
	return mem
}

func resultNames(notes []*model.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Name
	}
	return out
}

func TestFullTextCaseModes(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	// Case-insensitive "Note" matches the lowercase note name.
	got, err := s.FullText(context.Background(), "Note", Options{})
	require.NoError(t, err)
	assert.Contains(t, resultNames(got), "a note about x")
	assert.Contains(t, resultNames(got), "Note on generics")

	// Case-sensitive "Note" does not.
	got, err = s.FullText(context.Background(), "Note", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.NotContains(t, resultNames(got), "a note about x")
	assert.Contains(t, resultNames(got), "Note on generics")
}

func TestFullTextDescriptorForOutlineMatch(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	// "generics" hits outline a's preamble, outline b's note, and outline
	// b's name not at all; descriptor precedes the outline's notes.
	got, err := s.FullText(context.Background(), "generics", Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.NoteTypeDescriptor, got[0].Type)
	assert.Equal(t, "Go Research", got[0].Name)
	assert.Equal(t, "Note on generics", got[1].Name)
}

func TestFullTextOneMatchPerUnit(t *testing.T) {
	mem := memory.New(nil, nil)
	o := model.NewOutline("dup-1", "dup", model.OutlineTypeOutline, 0, 0, 0)
	n := model.NewNote("dup dup", model.NoteTypeNote, 0)
	n.Description = []string{"dup again", "dup once more"}
	o.Notes = append(o.Notes, n)
	require.NoError(t, mem.Remember(context.Background(), o))

	got, err := NewSearcher(mem).FullText(context.Background(), "dup", Options{})
	require.NoError(t, err)
	// One descriptor for the outline, one entry for the note, no matter
	// how many fields matched.
	require.Len(t, got, 2)
}

func TestFullTextScopeRestriction(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	got, err := s.FullText(context.Background(), "generics", Options{Scope: "b-journal"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Note on generics"}, resultNames(got))

	// Unknown scope: empty result, not an error.
	got, err = s.FullText(context.Background(), "generics", Options{Scope: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFullTextIdempotent(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	first, err := s.FullText(context.Background(), "note", Options{})
	require.NoError(t, err)
	second, err := s.FullText(context.Background(), "note", Options{})
	require.NoError(t, err)
	assert.Equal(t, resultNames(first), resultNames(second))
}

func TestFullTextNeverNil(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))
	got, err := s.FullText(context.Background(), "no such needle anywhere", Options{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFullTextTimeScopeSkipsNotesNotOutlines(t *testing.T) {
	mem := fixtureMemory(t)

	// Age every note in a-research past the horizon; the outline's own
	// preamble match must survive.
	a, ok := mem.Outline("a-research")
	require.True(t, ok)
	for _, n := range a.Notes {
		n.Modified = time.Now().Add(-48 * time.Hour)
	}
	mem.SetTimeScope(memory.TimeScope{Enabled: true, Horizon: 24 * time.Hour})

	s := NewSearcher(mem)
	got, err := s.FullText(context.Background(), "note", Options{})
	require.NoError(t, err)

	names := resultNames(got)
	assert.NotContains(t, names, "a a note about x")
	assert.NotContains(t, names, "a note about x")
	assert.Contains(t, names, "Note on generics")

	got, err = s.FullText(context.Background(), "generics", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, model.NoteTypeDescriptor, got[0].Type, "outline descriptor still scanned")
}

func TestOutlinesByExactName(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	got := s.OutlinesByExactName("Journal")
	require.Len(t, got, 1)
	assert.Equal(t, "b-journal", got[0].Key)

	// Substring is not enough.
	assert.Empty(t, s.OutlinesByExactName("Journ"))

	// Empty input yields an empty result without scanning.
	assert.Empty(t, s.OutlinesByExactName(""))
}

func TestNotesByTag(t *testing.T) {
	s := NewSearcher(fixtureMemory(t))

	got := s.NotesByTag("deep")
	require.Len(t, got, 1)
	assert.Equal(t, "unrelated", got[0].Name)

	assert.Empty(t, s.NotesByTag("absent"))
	assert.Empty(t, s.NotesByTag(""))
}
