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

import "sort"

// TagRegistry maintains per-tag cardinalities across every outline and note
// in memory.
//
// Tags associate, they never own: the registry is the only tag-side view of
// the many-to-many relation, and it is rebuilt wholesale after mutations
// rather than patched incrementally. Rebuilding is linear in the total tag
// count, which is cheap at knowledge-base scale and cannot drift.
//
// Not safe for concurrent use; the owning memory serializes access.
type TagRegistry struct {
	outlineCards map[string]int
	noteCards    map[string]int
}

// NewTagRegistry returns an empty registry.
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{
		outlineCards: make(map[string]int),
		noteCards:    make(map[string]int),
	}
}

// Rebuild recomputes all cardinalities from the given outlines.
func (r *TagRegistry) Rebuild(outlines []*Outline) {
	r.outlineCards = make(map[string]int)
	r.noteCards = make(map[string]int)
	for _, o := range outlines {
		for _, tag := range o.Tags {
			r.outlineCards[tag]++
		}
		for _, n := range o.Notes {
			for _, tag := range n.Tags {
				r.noteCards[tag]++
			}
		}
	}
}

// Reset drops all cardinalities.
func (r *TagRegistry) Reset() {
	r.outlineCards = make(map[string]int)
	r.noteCards = make(map[string]int)
}

// OutlineCardinality returns how many outlines carry the tag.
func (r *TagRegistry) OutlineCardinality(tag string) int {
	return r.outlineCards[tag]
}

// NoteCardinality returns how many notes carry the tag.
func (r *TagRegistry) NoteCardinality(tag string) int {
	return r.noteCards[tag]
}

// Cardinality returns the total number of entities carrying the tag.
func (r *TagRegistry) Cardinality(tag string) int {
	return r.outlineCards[tag] + r.noteCards[tag]
}

// Tags returns the sorted union of all known tag names.
func (r *TagRegistry) Tags() []string {
	seen := make(map[string]struct{}, len(r.outlineCards)+len(r.noteCards))
	for tag := range r.outlineCards {
		seen[tag] = struct{}{}
	}
	for tag := range r.noteCards {
		seen[tag] = struct{}{}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
