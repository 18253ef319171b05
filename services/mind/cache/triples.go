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

import "sync"

// Predicates emitted by the inference pass.
const (
	// PredicateRelatedTo links two notes whose content similarity cleared
	// the inference floor.
	PredicateRelatedTo = "related-to"
)

// Triple is one inferred relationship fact.
type Triple struct {
	SubjectID string  `json:"subject_id"`
	Predicate string  `json:"predicate"`
	ObjectID  string  `json:"object_id"`
	Score     float64 `json:"score"`
}

// Triples is the epoch-stamped cache of facts produced by the last completed
// inference pass.
//
// Thread Safety: safe for concurrent use.
type Triples struct {
	mu    sync.RWMutex
	epoch uint64
	facts []Triple
	set   bool
}

// Set stores the facts inferred at the given epoch, replacing any previous
// set.
func (c *Triples) Set(facts []Triple, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts = facts
	c.epoch = epoch
	c.set = true
}

// Get returns the facts when they were inferred at the current epoch; a
// stale or never-populated cache returns an empty slice, never nil.
func (c *Triples) Get(current uint64) []Triple {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || c.epoch != current {
		return []Triple{}
	}
	cacheHits.WithLabelValues("triples").Inc()
	out := make([]Triple, len(c.facts))
	copy(out, c.facts)
	return out
}

// Invalidate drops the facts outright.
func (c *Triples) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts = nil
	c.set = false
}
