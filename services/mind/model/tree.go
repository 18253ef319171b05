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
	"errors"
	"fmt"
)

// ErrDepthInconsistent reports a note sequence violating the
// depth-consistency invariant.
var ErrDepthInconsistent = errors.New("depth-inconsistent note sequence")

// ValidateDepths checks the depth-consistency invariant over the outline's
// note sequence:
//
//   - every depth is >= 0
//   - the first note sits at depth 0
//   - a note's depth exceeds its predecessor's by at most one (no orphan
//     jumps)
//
// Under these rules every non-root note has a well-defined parent: the
// nearest preceding note one level shallower.
func ValidateDepths(o *Outline) error {
	prev := -1
	for i, n := range o.Notes {
		switch {
		case n.Depth < 0:
			return fmt.Errorf("%w: outline %s note %q at position %d has negative depth %d",
				ErrDepthInconsistent, o.Key, n.Name, i, n.Depth)
		case i == 0 && n.Depth != 0:
			return fmt.Errorf("%w: outline %s first note %q sits at depth %d",
				ErrDepthInconsistent, o.Key, n.Name, n.Depth)
		case n.Depth > prev+1:
			return fmt.Errorf("%w: outline %s note %q at position %d jumps from depth %d to %d",
				ErrDepthInconsistent, o.Key, n.Name, i, prev, n.Depth)
		}
		prev = n.Depth
	}
	return nil
}

// Tree is the explicit parent/children index over an outline's note
// sequence.
//
// # Description
//
// Built from the depth encoding after validation, the tree gives structural
// editing and consistency checks a direct parent/children view instead of
// re-deriving boundaries from raw depth scans at every call site. A tree is
// a snapshot: rebuild it after any structural edit.
//
// # Thread Safety
//
// Read-only after construction; safe for concurrent readers.
type Tree struct {
	parent   map[string]string
	children map[string][]string
	roots    []string
}

// BuildTree validates the outline's depth encoding and constructs its tree
// index. Returns ErrDepthInconsistent (wrapped) when the invariant fails.
func BuildTree(o *Outline) (*Tree, error) {
	if err := ValidateDepths(o); err != nil {
		return nil, err
	}

	t := &Tree{
		parent:   make(map[string]string, len(o.Notes)),
		children: make(map[string][]string),
	}

	// stack[d] is the most recent note seen at depth d.
	stack := make([]*Note, 0, 8)
	for _, n := range o.Notes {
		stack = stack[:n.Depth]
		if n.Depth == 0 {
			t.roots = append(t.roots, n.ID)
			t.parent[n.ID] = ""
		} else {
			p := stack[n.Depth-1]
			t.parent[n.ID] = p.ID
			t.children[p.ID] = append(t.children[p.ID], n.ID)
		}
		stack = append(stack, n)
	}
	return t, nil
}

// Contains reports whether the note ID is part of the tree.
func (t *Tree) Contains(noteID string) bool {
	_, ok := t.parent[noteID]
	return ok
}

// Parent returns the parent note ID. Roots return an empty string. The
// second return is false for unknown IDs.
func (t *Tree) Parent(noteID string) (string, bool) {
	p, ok := t.parent[noteID]
	return p, ok
}

// Children returns the ordered child IDs of the note.
func (t *Tree) Children(noteID string) []string {
	return append([]string(nil), t.children[noteID]...)
}

// Roots returns the ordered IDs of the depth-0 notes.
func (t *Tree) Roots() []string {
	return append([]string(nil), t.roots...)
}

// Siblings returns the ordered IDs sharing the note's parent, including the
// note itself. Roots return the root list. Unknown IDs return nil.
func (t *Tree) Siblings(noteID string) []string {
	p, ok := t.parent[noteID]
	if !ok {
		return nil
	}
	if p == "" {
		return t.Roots()
	}
	return t.Children(p)
}
