// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search is the full-text scanner over the graph model.
//
// # Description
//
// Matching is substring containment, byte-exact or lowercased depending
// on the case mode. An outline matches through its name or a preamble
// block and contributes a synthetic descriptor note; each note matches
// through its name or a description block. One match per unit: scanning a
// unit stops at its first matching field. The unscoped scan fans out
// across outlines with an errgroup and merges per-outline results back in
// key order, so parallelism never changes result order.
//
// Search is read-only; the orchestration protocol guarantees no
// structural mutation is in flight while a scan runs.
package search

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
)

var searches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "noetic_search_total",
	Help: "Search scans, by kind.",
}, []string{"kind"})

// Options controls a full-text scan.
type Options struct {
	// CaseSensitive switches to byte-exact substring comparison. The
	// default lowercases pattern and fields first.
	CaseSensitive bool

	// Scope restricts the scan to one outline key. Empty scans all of
	// memory.
	Scope string
}

// Searcher scans memory.
type Searcher struct {
	mem *memory.Memory
}

// NewSearcher builds a searcher over the given memory.
func NewSearcher(mem *memory.Memory) *Searcher {
	return &Searcher{mem: mem}
}

// FullText scans for notes and outline descriptors containing the
// pattern. The result is newly allocated and never nil; order is
// deterministic (outlines in key order, descriptor before the outline's
// notes, notes in sequence order).
func (s *Searcher) FullText(ctx context.Context, pattern string, opts Options) ([]*model.Note, error) {
	searches.WithLabelValues("full_text").Inc()

	if !opts.CaseSensitive {
		pattern = strings.ToLower(pattern)
	}
	scope := s.mem.TimeScope()
	now := time.Now()

	if opts.Scope != "" {
		o, ok := s.mem.Outline(opts.Scope)
		if !ok {
			return []*model.Note{}, nil
		}
		return scanOutline(o, pattern, opts.CaseSensitive, scope, now), nil
	}

	outlines := s.mem.Outlines()
	results := make([][]*model.Note, len(outlines))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, o := range outlines {
		g.Go(func() error {
			results[i] = scanOutline(o, pattern, opts.CaseSensitive, scope, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*model.Note, 0)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// OutlinesByExactName returns all outlines whose name exactly equals
// text. Empty input yields an empty result without scanning.
func (s *Searcher) OutlinesByExactName(text string) []*model.Outline {
	searches.WithLabelValues("exact_name").Inc()

	out := make([]*model.Outline, 0)
	if text == "" {
		return out
	}
	for _, o := range s.mem.Outlines() {
		if o.Name == text {
			out = append(out, o)
		}
	}
	return out
}

// NotesByTag returns every note carrying the exact tag, outlines in key
// order. Time scope applies as in FullText.
func (s *Searcher) NotesByTag(tag string) []*model.Note {
	searches.WithLabelValues("by_tag").Inc()

	out := make([]*model.Note, 0)
	if tag == "" {
		return out
	}
	scope := s.mem.TimeScope()
	now := time.Now()
	for _, o := range s.mem.Outlines() {
		for _, n := range o.Notes {
			if !scope.Includes(n, now) {
				continue
			}
			if n.HasTag(tag) {
				out = append(out, n)
			}
		}
	}
	return out
}

// scanOutline matches one outline and its notes. The outline contributes
// at most one descriptor note; each note contributes at most once, first
// matching field wins. Time-scoped-out notes are skipped entirely; the
// outline itself is still scanned for its own match.
func scanOutline(o *model.Outline, pattern string, caseSensitive bool, scope memory.TimeScope, now time.Time) []*model.Note {
	matches := make([]*model.Note, 0)

	if fieldContains(o.Name, pattern, caseSensitive) || anyContains(o.Preamble, pattern, caseSensitive) {
		matches = append(matches, o.DescriptorNote())
	}
	for _, n := range o.Notes {
		if !scope.Includes(n, now) {
			continue
		}
		if fieldContains(n.Name, pattern, caseSensitive) || anyContains(n.Description, pattern, caseSensitive) {
			matches = append(matches, n)
		}
	}
	return matches
}

func anyContains(blocks []string, pattern string, caseSensitive bool) bool {
	for _, b := range blocks {
		if fieldContains(b, pattern, caseSensitive) {
			return true
		}
	}
	return false
}

func fieldContains(field, pattern string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(field, pattern)
	}
	return strings.Contains(strings.ToLower(field), pattern)
}
