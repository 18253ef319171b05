// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package edit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/outcome"
)

func newTestEditor(t *testing.T) (*Editor, *memory.Memory) {
	t.Helper()
	mem := memory.New(nil, nil)
	return NewEditor(mem, nil), mem
}

// seedOutline remembers an outline with the given note name/depth pairs.
func seedOutline(t *testing.T, mem *memory.Memory, name string, notes ...struct {
	Name  string
	Depth int
}) *model.Outline {
	t.Helper()
	o := model.NewOutline(memory.CreateOutlineKey(name), name, model.OutlineTypeOutline, 0, 0, 0)
	for _, spec := range notes {
		o.Notes = append(o.Notes, model.NewNote(spec.Name, model.NoteTypeNote, spec.Depth))
	}
	require.NoError(t, mem.Remember(context.Background(), o))
	return o
}

type noteSpec = struct {
	Name  string
	Depth int
}

// treeFixture is the shared shape:
//
//	alpha   (0)
//	  beta  (1)
//	    gamma (2)
//	  delta (1)
//	omega   (0)
func treeFixture(t *testing.T, mem *memory.Memory) *model.Outline {
	t.Helper()
	return seedOutline(t, mem, "Fixture",
		noteSpec{"alpha", 0},
		noteSpec{"beta", 1},
		noteSpec{"gamma", 2},
		noteSpec{"delta", 1},
		noteSpec{"omega", 0},
	)
}

func layout(o *model.Outline) []noteSpec {
	out := make([]noteSpec, len(o.Notes))
	for i, n := range o.Notes {
		out[i] = noteSpec{n.Name, n.Depth}
	}
	return out
}

func byName(t *testing.T, o *model.Outline, name string) *model.Note {
	t.Helper()
	for _, n := range o.Notes {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("note %q not in outline %s", name, o.Key)
	return nil
}

func requireFault(t *testing.T, out outcome.Outcome, kind outcome.FaultKind) {
	t.Helper()
	f, ok := out.Fault()
	require.True(t, ok, "expected fault, got %s", out)
	assert.Equal(t, kind, f.Kind)
}

func TestCreateOutlineSynthesizesDefaultNote(t *testing.T) {
	e, _ := newTestEditor(t)

	o, out, err := e.CreateOutline(context.Background(), CreateOutlineParams{
		Name: "Empty Start",
		Type: model.OutlineTypeNotebook,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted())
	require.Len(t, o.Notes, 1)
	assert.Equal(t, model.NoteTypeNote, o.Notes[0].Type)
	assert.Equal(t, 0, o.Notes[0].Depth)
}

func TestCreateOutlineFromStencil(t *testing.T) {
	e, mem := newTestEditor(t)

	stencil := &model.OutlineStencil{
		Preamble: []string{"weekly review template"},
		Tags:     []string{"template"},
		Notes: []model.NoteStencil{
			{Name: "wins", Type: model.NoteTypeNote},
			{Name: "blockers", Type: model.NoteTypeQuestion},
		},
	}
	o, out, err := e.CreateOutline(context.Background(), CreateOutlineParams{
		Name:    "Week 12",
		Stencil: stencil,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, []string{"weekly review template"}, o.Preamble)
	require.Len(t, o.Notes, 2)
	assert.Equal(t, "wins", o.Notes[0].Name)

	// No synthesized note when the stencil provided content.
	got, ok := mem.Outline(o.Key)
	require.True(t, ok)
	assert.Len(t, got.Notes, 2)
}

func TestCreateOutlineEmptyNameFaults(t *testing.T) {
	e, _ := newTestEditor(t)
	_, out, err := e.CreateOutline(context.Background(), CreateOutlineParams{})
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultInvalidArgument)
}

func TestCloneOutlineFreshKeysAndIDs(t *testing.T) {
	e, mem := newTestEditor(t)
	src := treeFixture(t, mem)

	clone, out, err := e.CloneOutline(context.Background(), src.Key)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.NotEqual(t, src.Key, clone.Key)
	assert.Equal(t, layout(src), layout(clone))
	for i := range src.Notes {
		assert.NotEqual(t, src.Notes[i].ID, clone.Notes[i].ID)
	}

	_, out, err = e.CloneOutline(context.Background(), "absent")
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultOutlineNotFound)
}

func TestForgetOutlineSoftDeletes(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)

	limboKey, out, err := e.ForgetOutline(context.Background(), o.Key)
	require.NoError(t, err)
	require.True(t, out.Accepted())

	_, ok := mem.Outline(o.Key)
	assert.False(t, ok)
	back, ok := mem.LimboOutline(limboKey)
	require.True(t, ok)
	assert.Equal(t, "Fixture", back.Name)
}

func TestCreateNoteClampsDepth(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)

	// Prepending forces depth zero regardless of the request.
	n, out, err := e.CreateNote(context.Background(), o.Key, 0, CreateNoteParams{
		Name: "prepended", Depth: 3,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, 0, n.Depth)
	assert.Equal(t, "prepended", o.Notes[0].Name)

	// Inserting after gamma (depth 2) clamps a wild depth to 3.
	n, out, err = e.CreateNote(context.Background(), o.Key, 4, CreateNoteParams{
		Name: "child", Depth: 9,
	})
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, 3, n.Depth)
	require.NoError(t, model.ValidateDepths(o))
}

func TestCreateNoteUnknownOutlineFaults(t *testing.T) {
	e, _ := newTestEditor(t)
	_, out, err := e.CreateNote(context.Background(), "missing", 0, CreateNoteParams{Name: "x"})
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultOutlineNotFound)
}

func TestRefactorNoteConservesNoteCount(t *testing.T) {
	e, mem := newTestEditor(t)
	src := treeFixture(t, mem)
	dst := seedOutline(t, mem, "Target", noteSpec{"existing", 0})

	before := src.NoteCount() + dst.NoteCount()
	alpha := byName(t, src, "alpha")

	out, err := e.RefactorNote(context.Background(), alpha.ID, dst.Key, "")
	require.NoError(t, err)
	require.True(t, out.Accepted())

	assert.Equal(t, before, src.NoteCount()+dst.NoteCount())

	// alpha's whole subtree moved to the top of the target at depth 0.
	assert.Equal(t, []noteSpec{
		{"alpha", 0}, {"beta", 1}, {"gamma", 2}, {"delta", 1}, {"existing", 0},
	}, layout(dst))
	assert.Equal(t, []noteSpec{{"omega", 0}}, layout(src))

	// Ownership transferred atomically.
	owner, ok := mem.Owner(alpha.ID)
	require.True(t, ok)
	assert.Equal(t, dst.Key, owner)
	require.NoError(t, model.ValidateDepths(src))
	require.NoError(t, model.ValidateDepths(dst))
}

func TestRefactorNoteUnderTargetParent(t *testing.T) {
	e, mem := newTestEditor(t)
	src := treeFixture(t, mem)
	dst := seedOutline(t, mem, "Target", noteSpec{"parent", 0}, noteSpec{"tail", 0})

	beta := byName(t, src, "beta")
	parent := byName(t, dst, "parent")

	out, err := e.RefactorNote(context.Background(), beta.ID, dst.Key, parent.ID)
	require.NoError(t, err)
	require.True(t, out.Accepted())

	// beta (was depth 1, child gamma at 2) became parent's first child,
	// relative depth preserved.
	assert.Equal(t, []noteSpec{
		{"parent", 0}, {"beta", 1}, {"gamma", 2}, {"tail", 0},
	}, layout(dst))
	assert.Equal(t, []noteSpec{{"alpha", 0}, {"delta", 1}, {"omega", 0}}, layout(src))
}

func TestRefactorNoteFaults(t *testing.T) {
	e, mem := newTestEditor(t)
	src := treeFixture(t, mem)
	alpha := byName(t, src, "alpha")
	beta := byName(t, src, "beta")

	out, err := e.RefactorNote(context.Background(), "unknown", src.Key, "")
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultNoteNotFound)

	out, err = e.RefactorNote(context.Background(), alpha.ID, "missing", "")
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultOutlineNotFound)

	// A subtree cannot be re-parented under its own descendant.
	out, err = e.RefactorNote(context.Background(), alpha.ID, src.Key, beta.ID)
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultInvalidArgument)
	_ = mem
}

func TestForgetNoteRemovesSubtree(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	alpha := byName(t, o, "alpha")

	patch, out, err := e.ForgetNote(context.Background(), alpha.ID)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchDelete, Start: 0, Count: 4}, patch)
	assert.Equal(t, []noteSpec{{"omega", 0}}, layout(o))

	_, out, err = e.ForgetNote(context.Background(), "unknown")
	require.NoError(t, err)
	requireFault(t, out, outcome.FaultNoteNotFound)
}

func TestMoveUpDownSwapSiblingSubtrees(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	omega := byName(t, o, "omega")

	patch, out, err := e.MoveNote(context.Background(), omega.ID, MoveUp)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchMove, Start: 0, Count: 5}, patch)
	assert.Equal(t, []noteSpec{
		{"omega", 0}, {"alpha", 0}, {"beta", 1}, {"gamma", 2}, {"delta", 1},
	}, layout(o))

	// And back down.
	patch, out, err = e.MoveNote(context.Background(), omega.ID, MoveDown)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchMove, Start: 0, Count: 5}, patch)
	assert.Equal(t, []noteSpec{
		{"alpha", 0}, {"beta", 1}, {"gamma", 2}, {"delta", 1}, {"omega", 0},
	}, layout(o))
}

func TestMoveAtBoundaryIsNoOp(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	alpha := byName(t, o, "alpha")
	epochBefore := mem.Epoch()

	patch, out, err := e.MoveNote(context.Background(), alpha.ID, MoveUp)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.True(t, patch.IsZero())

	patch, out, err = e.MoveNote(context.Background(), alpha.ID, MoveFirst)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.True(t, patch.IsZero())

	// No-ops never count as mutations.
	assert.Equal(t, epochBefore, mem.Epoch())
}

func TestMoveFirstLastWithinSiblingGroup(t *testing.T) {
	e, mem := newTestEditor(t)
	o := seedOutline(t, mem, "Groups",
		noteSpec{"parent", 0},
		noteSpec{"a", 1},
		noteSpec{"b", 1},
		noteSpec{"b1", 2},
		noteSpec{"c", 1},
	)
	c := byName(t, o, "c")

	patch, out, err := e.MoveNote(context.Background(), c.ID, MoveFirst)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchMove, Start: 1, Count: 4}, patch)
	assert.Equal(t, []noteSpec{
		{"parent", 0}, {"c", 1}, {"a", 1}, {"b", 1}, {"b1", 2},
	}, layout(o))

	patch, out, err = e.MoveNote(context.Background(), c.ID, MoveLast)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchMove, Start: 1, Count: 4}, patch)
	assert.Equal(t, []noteSpec{
		{"parent", 0}, {"a", 1}, {"b", 1}, {"b1", 2}, {"c", 1},
	}, layout(o))
}

func TestPromoteLiftsSubtree(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	beta := byName(t, o, "beta")

	patch, out, err := e.MoveNote(context.Background(), beta.ID, MovePromote)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchChange, Start: 1, Count: 2}, patch)
	assert.Equal(t, []noteSpec{
		{"alpha", 0}, {"beta", 0}, {"gamma", 1}, {"delta", 1}, {"omega", 0},
	}, layout(o))
	require.NoError(t, model.ValidateDepths(o))
}

func TestPromoteAtRootDepthIsNoOp(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	alpha := byName(t, o, "alpha")

	patch, out, err := e.MoveNote(context.Background(), alpha.ID, MovePromote)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.True(t, patch.IsZero())
	assert.Equal(t, 0, alpha.Depth, "depth must never go negative")
}

func TestDemoteUnderPrecedingSibling(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	omega := byName(t, o, "omega")

	patch, out, err := e.MoveNote(context.Background(), omega.ID, MoveDemote)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, Patch{Op: PatchChange, Start: 4, Count: 1}, patch)
	assert.Equal(t, 1, omega.Depth)
	require.NoError(t, model.ValidateDepths(o))
}

func TestDemoteWithoutAdoptiveSiblingRejected(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)

	// alpha is the first root; beta is a first child. Neither has a
	// preceding sibling.
	for _, name := range []string{"alpha", "beta"} {
		n := byName(t, o, name)
		_, out, err := e.MoveNote(context.Background(), n.ID, MoveDemote)
		require.NoError(t, err)
		requireFault(t, out, outcome.FaultInvalidArgument)
	}
	require.NoError(t, model.ValidateDepths(o))
}

func TestMoveUnknownNoteIsSafeNoOp(t *testing.T) {
	e, _ := newTestEditor(t)
	for _, mv := range []Move{MoveUp, MoveDown, MoveFirst, MoveLast, MovePromote, MoveDemote} {
		patch, out, err := e.MoveNote(context.Background(), "", mv)
		require.NoError(t, err)
		assert.True(t, out.Accepted())
		assert.True(t, patch.IsZero())

		patch, out, err = e.MoveNote(context.Background(), "ghost", mv)
		require.NoError(t, err)
		assert.True(t, out.Accepted())
		assert.True(t, patch.IsZero())
	}
}

func TestEveryMutationBumpsEpoch(t *testing.T) {
	e, mem := newTestEditor(t)
	o := treeFixture(t, mem)
	omega := byName(t, o, "omega")

	before := mem.Epoch()
	_, out, err := e.MoveNote(context.Background(), omega.ID, MoveUp)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Greater(t, mem.Epoch(), before)

	before = mem.Epoch()
	_, out, err = e.CreateNote(context.Background(), o.Key, 0, CreateNoteParams{Name: "n"})
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Greater(t, mem.Epoch(), before)
}
