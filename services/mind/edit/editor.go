// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package edit is the structural editor: create/clone/forget for outlines
// and notes, cross-outline refactoring, and the sibling-order and depth
// moves, each producing a Patch for incremental re-rendering.
//
// # Description
//
// Every operation resolves its targets through memory's owned-by index,
// validates before mutating, performs the sequence surgery through the
// model primitives, re-checks the depth-consistency invariant, and
// remembers the affected outlines (which bumps the cache epoch). Guard
// concerns (dreaming, active-operation counting) live in the orchestrator;
// the editor assumes it is called inside a foreground operation.
//
// # Error model
//
// Caller errors (unknown keys, structurally impossible edits) surface as
// Fault outcomes; infrastructure errors (storage) come back as wrapped
// errors. Unknown note references on the move operations are safe no-ops
// by contract, not faults.
package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/outcome"
)

var editOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "noetic_edit_operations_total",
	Help: "Structural edit operations, by operation and outcome.",
}, []string{"operation", "outcome"})

// Editor performs structural edits against memory.
type Editor struct {
	mem    *memory.Memory
	logger *slog.Logger
}

// NewEditor builds an editor over the given memory.
func NewEditor(mem *memory.Memory, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		mem:    mem,
		logger: logger.With(slog.String("component", "editor")),
	}
}

// CreateOutlineParams carries the inputs for CreateOutline.
type CreateOutlineParams struct {
	Name       string
	Type       model.OutlineType
	Importance int
	Urgency    int
	Progress   int
	Tags       []string
	Preamble   []string

	// Stencil optionally pre-populates the outline's content.
	Stencil *model.OutlineStencil
}

// CreateOutline allocates a fresh outline under a name-derived key.
//
// If a stencil is given its content is cloned in and the outline marked
// modified. An outline that would end up with zero notes receives one
// synthesized default note. The outline is remembered in memory, which
// invalidates caches.
func (e *Editor) CreateOutline(ctx context.Context, p CreateOutlineParams) (*model.Outline, outcome.Outcome, error) {
	if p.Name == "" {
		return nil, e.done("create_outline",
			outcome.Faulted(outcome.FaultInvalidArgument, "outline name must not be empty")), nil
	}

	o := model.NewOutline(memory.CreateOutlineKey(p.Name), p.Name, p.Type,
		p.Importance, p.Urgency, p.Progress)
	o.Tags = append(o.Tags, p.Tags...)
	o.Preamble = append(o.Preamble, p.Preamble...)
	if p.Stencil != nil {
		p.Stencil.ApplyTo(o)
	}
	if len(o.Notes) == 0 {
		o.Notes = append(o.Notes, model.NewDefaultNote())
	}

	if out := checkDepths(o); !out.Accepted() {
		return nil, e.done("create_outline", out), nil
	}
	if err := e.mem.Remember(ctx, o); err != nil {
		return nil, e.done("create_outline", outcome.OK()), err
	}
	e.logger.Info("outline created", slog.String("key", o.Key), slog.String("name", o.Name))
	return o, e.done("create_outline", outcome.OK()), nil
}

// CloneOutline deep-copies an existing outline under a freshly derived
// key. Cloned notes receive fresh IDs.
func (e *Editor) CloneOutline(ctx context.Context, key string) (*model.Outline, outcome.Outcome, error) {
	src, ok := e.mem.Outline(key)
	if !ok {
		return nil, e.done("clone_outline", notFound(key)), nil
	}

	clone := src.Clone(memory.CreateOutlineKey(src.Name))
	if err := e.mem.Remember(ctx, clone); err != nil {
		return nil, e.done("clone_outline", outcome.OK()), err
	}
	e.logger.Info("outline cloned",
		slog.String("source", key), slog.String("clone", clone.Key))
	return clone, e.done("clone_outline", outcome.OK()), nil
}

// ForgetOutline soft-deletes an outline, returning its limbo key.
func (e *Editor) ForgetOutline(ctx context.Context, key string) (string, outcome.Outcome, error) {
	limboKey, err := e.mem.Forget(ctx, key)
	if errors.Is(err, memory.ErrOutlineNotFound) {
		return "", e.done("forget_outline", notFound(key)), nil
	}
	if err != nil {
		return "", e.done("forget_outline", outcome.OK()), err
	}
	return limboKey, e.done("forget_outline", outcome.OK()), nil
}

// CreateNoteParams carries the inputs for CreateNote.
type CreateNoteParams struct {
	Name     string
	Type     model.NoteType
	Depth    int
	Tags     []string
	Progress int

	// Stencil optionally supplies the note's content; the explicit Name
	// and Depth still win when set.
	Stencil *model.NoteStencil
}

// CreateNote builds a note and inserts it into the target outline at
// offset (0 meaning prepend). The requested depth is clamped so the
// sequence stays depth-consistent: position zero forces depth zero, any
// other position allows at most one level below its predecessor.
func (e *Editor) CreateNote(ctx context.Context, outlineKey string, offset int, p CreateNoteParams) (*model.Note, outcome.Outcome, error) {
	o, ok := e.mem.Outline(outlineKey)
	if !ok {
		return nil, e.done("create_note", notFound(outlineKey)), nil
	}

	var n *model.Note
	if p.Stencil != nil {
		n = p.Stencil.Instantiate()
		if p.Name != "" {
			n.Name = p.Name
		}
	} else {
		n = model.NewNote(p.Name, p.Type, 0)
		n.Tags = append(n.Tags, p.Tags...)
		n.Progress = p.Progress
	}

	pos := offset
	if pos < 0 {
		pos = 0
	}
	if pos > len(o.Notes) {
		pos = len(o.Notes)
	}
	n.Depth = clampDepth(o, pos, p.Depth)

	o.InsertAt(pos, n)
	o.Touch()
	if out := checkDepths(o); !out.Accepted() {
		return nil, e.done("create_note", out), nil
	}
	if err := e.mem.Remember(ctx, o); err != nil {
		return nil, e.done("create_note", outcome.OK()), err
	}
	return n, e.done("create_note", outcome.OK()), nil
}

// RefactorNote moves a note and its full descendant subtree from its
// source outline into the target outline, preserving relative order and
// depth structure.
//
// With an empty targetParent the subtree lands at the top of the target
// at depth zero; otherwise it becomes the first child of the parent note.
// Both outlines are remembered. The note count across source and target
// is conserved.
func (e *Editor) RefactorNote(ctx context.Context, noteID, targetKey, targetParentID string) (outcome.Outcome, error) {
	if noteID == "" {
		return e.done("refactor_note",
			outcome.Faulted(outcome.FaultInvalidArgument, "note reference must not be empty")), nil
	}
	_, src, err := e.mem.Note(noteID)
	if err != nil {
		return e.done("refactor_note",
			outcome.Faulted(outcome.FaultNoteNotFound, noteID)), nil
	}
	dst, ok := e.mem.Outline(targetKey)
	if !ok {
		return e.done("refactor_note", notFound(targetKey)), nil
	}

	pos := src.IndexOf(noteID)
	span := src.SubtreeSpan(pos)

	insertPos, baseDepth := 0, 0
	if targetParentID != "" {
		parentPos := dst.IndexOf(targetParentID)
		if parentPos < 0 {
			return e.done("refactor_note",
				outcome.Faulted(outcome.FaultNoteNotFound,
					fmt.Sprintf("target parent %s not in outline %s", targetParentID, targetKey))), nil
		}
		// A subtree cannot adopt itself.
		if src == dst && parentPos >= pos && parentPos < pos+span {
			return e.done("refactor_note",
				outcome.Faulted(outcome.FaultInvalidArgument,
					"target parent lies inside the moved subtree")), nil
		}
		insertPos = parentPos + 1
		baseDepth = dst.Notes[parentPos].Depth + 1
	}

	subtree := src.RemoveSubtreeAt(pos)
	src.Touch()
	if src == dst && insertPos > pos {
		// Removal shifted positions left of the insertion point.
		insertPos -= len(subtree)
	}
	model.ShiftDepth(subtree, baseDepth-subtree[0].Depth)
	dst.InsertAt(insertPos, subtree...)
	dst.Touch()

	if out := checkDepths(src); !out.Accepted() {
		return e.done("refactor_note", out), nil
	}
	if out := checkDepths(dst); !out.Accepted() {
		return e.done("refactor_note", out), nil
	}

	// Target first: the moved notes' owned-by entries flip to the target,
	// then the source reindex releases nothing it should not.
	if err := e.mem.Remember(ctx, dst); err != nil {
		return e.done("refactor_note", outcome.OK()), err
	}
	if src != dst {
		if err := e.mem.Remember(ctx, src); err != nil {
			return e.done("refactor_note", outcome.OK()), err
		}
	}
	e.logger.Info("note refactored",
		slog.String("note", noteID),
		slog.String("from", src.Key), slog.String("to", dst.Key))
	return e.done("refactor_note", outcome.OK()), nil
}

// ForgetNote removes a note and its subtree from its owning outline.
func (e *Editor) ForgetNote(ctx context.Context, noteID string) (Patch, outcome.Outcome, error) {
	_, o, err := e.mem.Note(noteID)
	if err != nil {
		return Patch{}, e.done("forget_note",
			outcome.Faulted(outcome.FaultNoteNotFound, noteID)), nil
	}

	pos := o.IndexOf(noteID)
	span := o.SubtreeSpan(pos)
	o.RemoveSubtreeAt(pos)
	o.Touch()

	if out := checkDepths(o); !out.Accepted() {
		return Patch{}, e.done("forget_note", out), nil
	}
	if err := e.mem.Remember(ctx, o); err != nil {
		return Patch{}, e.done("forget_note", outcome.OK()), err
	}
	return Patch{Op: PatchDelete, Start: pos, Count: span},
		e.done("forget_note", outcome.OK()), nil
}

// Move direction for MoveNote.
type Move int

const (
	MoveUp Move = iota
	MoveDown
	MoveFirst
	MoveLast
	MovePromote
	MoveDemote
)

// String returns the string representation of the move.
func (mv Move) String() string {
	switch mv {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveFirst:
		return "first"
	case MoveLast:
		return "last"
	case MovePromote:
		return "promote"
	case MoveDemote:
		return "demote"
	default:
		return "unknown"
	}
}

// ParseMove converts a move name back to a Move.
func ParseMove(s string) (Move, error) {
	switch s {
	case "up":
		return MoveUp, nil
	case "down":
		return MoveDown, nil
	case "first":
		return MoveFirst, nil
	case "last":
		return MoveLast, nil
	case "promote":
		return MovePromote, nil
	case "demote":
		return MoveDemote, nil
	default:
		return MoveUp, fmt.Errorf("unknown move: %q", s)
	}
}

// MoveNote reorders a note (with its subtree) among its siblings or
// shifts its depth by one level, returning a patch for the affected
// range.
//
// Edge semantics: an empty or unknown note reference is a safe no-op;
// a move with nowhere to go (up at the first sibling, promote at depth
// zero) is a no-op; demote without a preceding sibling to adopt the note
// is rejected as a fault — depth never goes negative and a child never
// loses its parent.
func (e *Editor) MoveNote(ctx context.Context, noteID string, mv Move) (Patch, outcome.Outcome, error) {
	op := "move_" + mv.String()
	if noteID == "" {
		return Patch{}, e.done(op, outcome.OK()), nil
	}
	_, o, err := e.mem.Note(noteID)
	if err != nil {
		return Patch{}, e.done(op, outcome.OK()), nil
	}

	pos := o.IndexOf(noteID)
	var patch Patch
	var out outcome.Outcome
	switch mv {
	case MoveUp:
		patch, out = moveUp(o, pos)
	case MoveDown:
		patch, out = moveDown(o, pos)
	case MoveFirst:
		patch, out = moveFirst(o, pos)
	case MoveLast:
		patch, out = moveLast(o, pos)
	case MovePromote:
		patch, out = promote(o, pos)
	case MoveDemote:
		patch, out = demote(o, pos)
	default:
		out = outcome.Faulted(outcome.FaultInvalidArgument, fmt.Sprintf("unknown move %d", mv))
	}
	if !out.Accepted() || patch.IsZero() {
		return patch, e.done(op, out), nil
	}

	o.Touch()
	if chk := checkDepths(o); !chk.Accepted() {
		return Patch{}, e.done(op, chk), nil
	}
	if err := e.mem.Remember(ctx, o); err != nil {
		return Patch{}, e.done(op, outcome.OK()), err
	}
	return patch, e.done(op, out), nil
}

// moveUp swaps the note's subtree with its preceding sibling's subtree.
func moveUp(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	sib := precedingSibling(o, pos)
	if sib < 0 {
		return Patch{}, outcome.OK()
	}
	span := o.SubtreeSpan(pos)
	sibSpan := pos - sib // sibling subtree runs right up to pos
	rotated := make([]*model.Note, 0, sibSpan+span)
	rotated = append(rotated, o.Notes[pos:pos+span]...)
	rotated = append(rotated, o.Notes[sib:pos]...)
	copy(o.Notes[sib:], rotated)
	return Patch{Op: PatchMove, Start: sib, Count: sibSpan + span}, outcome.OK()
}

// moveDown swaps the note's subtree with its following sibling's subtree.
func moveDown(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	span := o.SubtreeSpan(pos)
	next := pos + span
	if next >= len(o.Notes) || o.Notes[next].Depth != o.Notes[pos].Depth {
		return Patch{}, outcome.OK()
	}
	nextSpan := o.SubtreeSpan(next)
	rotated := make([]*model.Note, 0, span+nextSpan)
	rotated = append(rotated, o.Notes[next:next+nextSpan]...)
	rotated = append(rotated, o.Notes[pos:next]...)
	copy(o.Notes[pos:], rotated)
	return Patch{Op: PatchMove, Start: pos, Count: span + nextSpan}, outcome.OK()
}

// moveFirst moves the note's subtree to the front of its sibling group.
func moveFirst(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	start := groupStart(o, pos)
	if start == pos {
		return Patch{}, outcome.OK()
	}
	span := o.SubtreeSpan(pos)
	subtree := o.RemoveSubtreeAt(pos)
	o.InsertAt(start, subtree...)
	return Patch{Op: PatchMove, Start: start, Count: pos + span - start}, outcome.OK()
}

// moveLast moves the note's subtree to the end of its sibling group.
func moveLast(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	span := o.SubtreeSpan(pos)
	end := groupEnd(o, pos)
	if end == pos+span {
		return Patch{}, outcome.OK()
	}
	subtree := o.RemoveSubtreeAt(pos)
	o.InsertAt(end-span, subtree...)
	return Patch{Op: PatchMove, Start: pos, Count: end - pos}, outcome.OK()
}

// promote lifts the note (and subtree) one level toward the root. A note
// already at depth zero no-ops; depth never goes negative. Former
// following siblings of the note become its children, which is the
// natural reading of the depth encoding.
func promote(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	if o.Notes[pos].Depth == 0 {
		return Patch{}, outcome.OK()
	}
	span := o.SubtreeSpan(pos)
	model.ShiftDepth(o.Notes[pos:pos+span], -1)
	return Patch{Op: PatchChange, Start: pos, Count: span}, outcome.OK()
}

// demote pushes the note (and subtree) one level deeper, under its
// preceding sibling. Without a preceding sibling to adopt the note the
// edit is structurally impossible and is rejected.
func demote(o *model.Outline, pos int) (Patch, outcome.Outcome) {
	if precedingSibling(o, pos) < 0 {
		return Patch{}, outcome.Faulted(outcome.FaultInvalidArgument,
			"demote requires a preceding sibling to adopt the note")
	}
	span := o.SubtreeSpan(pos)
	model.ShiftDepth(o.Notes[pos:pos+span], 1)
	return Patch{Op: PatchChange, Start: pos, Count: span}, outcome.OK()
}

// precedingSibling returns the position of the nearest preceding note at
// the same depth within the same parent, or -1.
func precedingSibling(o *model.Outline, pos int) int {
	d := o.Notes[pos].Depth
	for i := pos - 1; i >= 0; i-- {
		switch {
		case o.Notes[i].Depth < d:
			return -1
		case o.Notes[i].Depth == d:
			return i
		}
	}
	return -1
}

// groupStart returns the position of the first sibling in the note's
// group.
func groupStart(o *model.Outline, pos int) int {
	d := o.Notes[pos].Depth
	start := pos
	for i := pos - 1; i >= 0; i-- {
		if o.Notes[i].Depth < d {
			break
		}
		if o.Notes[i].Depth == d {
			start = i
		}
	}
	return start
}

// groupEnd returns the position one past the last sibling subtree in the
// note's group.
func groupEnd(o *model.Outline, pos int) int {
	d := o.Notes[pos].Depth
	end := pos + o.SubtreeSpan(pos)
	for end < len(o.Notes) && o.Notes[end].Depth == d {
		end += o.SubtreeSpan(end)
	}
	return end
}

// clampDepth bounds a requested insertion depth so the sequence stays
// consistent: position zero forces depth zero, later positions allow at
// most one level below the predecessor.
func clampDepth(o *model.Outline, pos, depth int) int {
	if depth < 0 {
		depth = 0
	}
	if pos == 0 {
		return 0
	}
	if max := o.Notes[pos-1].Depth + 1; depth > max {
		return max
	}
	return depth
}

// checkDepths converts a depth-consistency violation into a corrupt
// structure fault.
func checkDepths(o *model.Outline) outcome.Outcome {
	if err := model.ValidateDepths(o); err != nil {
		return outcome.Faulted(outcome.FaultCorruptStructure, err.Error())
	}
	return outcome.OK()
}

// notFound builds the outline-not-found fault.
func notFound(key string) outcome.Outcome {
	return outcome.Faulted(outcome.FaultOutlineNotFound,
		fmt.Sprintf("outline for given key not found: %s", key))
}

// done records the operation metric and passes the outcome through.
func (e *Editor) done(op string, out outcome.Outcome) outcome.Outcome {
	editOps.WithLabelValues(op, out.Label()).Inc()
	return out
}
