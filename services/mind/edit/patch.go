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

// PatchOp classifies what a structural edit did to an outline's note
// sequence.
type PatchOp int

const (
	// PatchNone means the operation changed nothing (safe no-op).
	PatchNone PatchOp = iota

	// PatchChange means notes inside the range changed in place (depth
	// shifts).
	PatchChange

	// PatchMove means notes inside the range were reordered.
	PatchMove

	// PatchDelete means the range was removed from the sequence.
	PatchDelete
)

// String returns the string representation of the op.
func (op PatchOp) String() string {
	switch op {
	case PatchNone:
		return "none"
	case PatchChange:
		return "change"
	case PatchMove:
		return "move"
	case PatchDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Patch describes the contiguous range of an outline's note sequence a
// structural edit affected, so a caller can re-render just that range
// instead of reloading the whole outline.
//
// Start/Count are positions in the sequence as it stands after the edit,
// except for PatchDelete, where they name the removed range in the
// pre-edit sequence. The zero value is the no-op patch.
type Patch struct {
	Op    PatchOp `json:"op"`
	Start int     `json:"start"`
	Count int     `json:"count"`
}

// IsZero reports whether the patch describes no change.
func (p Patch) IsZero() bool {
	return p.Op == PatchNone
}
