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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/noetic/services/mind/model"
)

func TestEpochBump(t *testing.T) {
	var e Epoch
	assert.Equal(t, uint64(0), e.Current())
	assert.Equal(t, uint64(1), e.Bump())
	assert.Equal(t, uint64(2), e.Bump())
	assert.Equal(t, uint64(2), e.Current())
}

func TestAllNotesBuildsLazily(t *testing.T) {
	var c AllNotes
	var e Epoch

	builds := 0
	build := func() []*model.Note {
		builds++
		return []*model.Note{model.NewNote(fmt.Sprintf("n%d", builds), model.NoteTypeNote, 0)}
	}

	assert.True(t, c.Stale(e.Current()))

	first := c.Get(e.Current(), build)
	assert.Equal(t, 1, builds)
	assert.False(t, c.Stale(e.Current()))

	// Same epoch: served from cache, same backing slice.
	second := c.Get(e.Current(), build)
	assert.Equal(t, 1, builds)
	assert.Equal(t, first, second)
}

func TestAllNotesRebuildsAfterEpochBump(t *testing.T) {
	var c AllNotes
	var e Epoch

	builds := 0
	build := func() []*model.Note {
		builds++
		return nil
	}

	c.Get(e.Current(), build)
	require.Equal(t, 1, builds)

	e.Bump()
	assert.True(t, c.Stale(e.Current()), "mutation must stale the cache")

	c.Get(e.Current(), build)
	assert.Equal(t, 2, builds)

	// Two consecutive mutation-then-read cycles never reuse the first build.
	e.Bump()
	c.Get(e.Current(), build)
	assert.Equal(t, 3, builds)
}

func TestAllNotesInvalidate(t *testing.T) {
	var c AllNotes
	var e Epoch

	builds := 0
	c.Get(e.Current(), func() []*model.Note { builds++; return nil })
	require.Equal(t, 1, builds)

	c.Invalidate()
	assert.True(t, c.Stale(e.Current()))

	c.Get(e.Current(), func() []*model.Note { builds++; return nil })
	assert.Equal(t, 2, builds)
}

func TestDwellVisitOrder(t *testing.T) {
	d := NewDwell(8)
	d.Visit("a", 1)
	d.Visit("b", 1)
	d.Visit("c", 1)

	got := d.Recent(1)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].NoteID, "newest first")
	assert.Equal(t, "b", got[1].NoteID)
	assert.Equal(t, "a", got[2].NoteID)
}

func TestDwellBounded(t *testing.T) {
	d := NewDwell(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		d.Visit(id, 7)
	}

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 3, d.Cap())

	got := d.Recent(7)
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].NoteID)
	assert.Equal(t, "d", got[1].NoteID)
	assert.Equal(t, "c", got[2].NoteID, "oldest entries evicted")
}

func TestDwellDropsStaleEpochs(t *testing.T) {
	d := NewDwell(8)
	d.Visit("old1", 1)
	d.Visit("old2", 1)
	d.Visit("fresh", 2)

	got := d.Recent(2)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].NoteID)

	// Stale entries were physically dropped.
	assert.Equal(t, 1, d.Len())
}

func TestDwellClear(t *testing.T) {
	d := NewDwell(4)
	d.Visit("a", 1)
	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Recent(1))
}

func TestDwellDefaultCapacity(t *testing.T) {
	d := NewDwell(0)
	assert.Equal(t, DefaultDwellCapacity, d.Cap())
}

func TestTriplesEpochDiscipline(t *testing.T) {
	var c Triples

	facts := []Triple{
		{SubjectID: "n1", Predicate: PredicateRelatedTo, ObjectID: "n2", Score: 0.8},
	}
	c.Set(facts, 5)

	got := c.Get(5)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].SubjectID)

	// Stale epoch: empty, never nil.
	got = c.Get(6)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTriplesNeverPopulated(t *testing.T) {
	var c Triples
	got := c.Get(0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTriplesGetReturnsCopy(t *testing.T) {
	var c Triples
	c.Set([]Triple{{SubjectID: "n1"}}, 1)

	got := c.Get(1)
	got[0].SubjectID = "mutated"

	assert.Equal(t, "n1", c.Get(1)[0].SubjectID)
}

func TestTriplesInvalidate(t *testing.T) {
	var c Triples
	c.Set([]Triple{{SubjectID: "n1"}}, 1)
	c.Invalidate()
	assert.Empty(t, c.Get(1))
}
