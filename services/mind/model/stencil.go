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

// NoteStencil is a template for pre-populating a new note.
type NoteStencil struct {
	Name        string   `json:"name" yaml:"name"`
	Type        NoteType `json:"type" yaml:"type"`
	Depth       int      `json:"depth" yaml:"depth"`
	Description []string `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Progress    int      `json:"progress" yaml:"progress"`
}

// Instantiate builds a fresh note from the stencil.
func (s NoteStencil) Instantiate() *Note {
	n := NewNote(s.Name, s.Type, s.Depth)
	n.Description = append([]string(nil), s.Description...)
	n.Tags = append([]string(nil), s.Tags...)
	n.Progress = clamp(s.Progress, 0, MaxProgress)
	return n
}

// OutlineStencil is a template for pre-populating a new outline.
type OutlineStencil struct {
	Name     string        `json:"name" yaml:"name"`
	Type     OutlineType   `json:"type" yaml:"type"`
	Preamble []string      `json:"preamble,omitempty" yaml:"preamble,omitempty"`
	Tags     []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Notes    []NoteStencil `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ApplyTo copies the stencil's content into a freshly created outline:
// preamble blocks and tags are appended, stencil notes instantiated in
// order. Caller-supplied metadata on the outline wins; the stencil only
// contributes content. The outline is marked modified.
func (s OutlineStencil) ApplyTo(o *Outline) {
	o.Preamble = append(o.Preamble, s.Preamble...)
	for _, tag := range s.Tags {
		if !o.HasTag(tag) {
			o.Tags = append(o.Tags, tag)
		}
	}
	for _, ns := range s.Notes {
		o.Notes = append(o.Notes, ns.Instantiate())
	}
	o.Touch()
}
