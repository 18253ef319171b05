// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache holds the mind's derived views: the flattened all-notes
// list, the recency dwell ring, and the inferred-triples cache.
//
// Description:
//
//	Staleness is tracked by a single epoch counter. Every graph mutation
//	bumps the epoch; each cache stamps itself with the epoch it was built
//	from and treats any mismatch as stale. Derived views rebuild lazily
//	through a supplied builder; the dwell ring drops stale entries on read.
//	No mutator ever touches a cache directly, so a missed clear-call cannot
//	leak superseded data.
package cache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	epochBumps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noetic_cache_epoch_bumps_total",
		Help: "Graph mutations observed by the cache epoch counter.",
	})

	cacheRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noetic_cache_rebuilds_total",
		Help: "Lazy cache rebuilds, by cache.",
	}, []string{"cache"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noetic_cache_hits_total",
		Help: "Cache reads served without a rebuild, by cache.",
	}, []string{"cache"})
)

// Epoch is the monotonic mutation counter shared by all caches.
//
// Thread Safety: safe for concurrent use.
type Epoch struct {
	n atomic.Uint64
}

// Current returns the current epoch value.
func (e *Epoch) Current() uint64 {
	return e.n.Load()
}

// Bump advances the epoch after a graph mutation and returns the new value.
func (e *Epoch) Bump() uint64 {
	epochBumps.Inc()
	return e.n.Add(1)
}
