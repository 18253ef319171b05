// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package infer holds the inference collaborator: the asynchronous
// association engine the mind delegates to while dreaming.
//
// # Description
//
// The default Local engine is self-contained: it tokenizes note text into
// word shingles, builds MinHash signatures, and indexes them with banded
// LSH so the dream pass finds related-note pairs without comparing every
// pair. Optional backends rank by embedding similarity instead: OpenAI
// (API embeddings) and Weaviate (vector store nearVector queries).
//
// All engines honor the same contract: Dream runs long and resolves a
// future, Sleep refuses while leaderboard handles are outstanding, and
// Triples exposes the facts of the last completed dream.
package infer

import (
	"context"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// Scored is one leaderboard entry: a note and its association score in
// [0,1], higher is more related.
type Scored struct {
	Note  *model.Note `json:"note"`
	Score float64     `json:"score"`
}

// Source supplies the engine's view of the graph. Memory satisfies it.
type Source interface {
	// AllNotes returns every note across all active outlines.
	AllNotes() []*model.Note

	// Outlines returns every active outline in key order.
	Outlines() []*model.Outline
}

// Engine is the inference collaborator contract.
type Engine interface {
	// Dream runs the asynchronous inference pass: rebuild the association
	// index over the current graph, emit triples, and verify structural
	// consistency. Resolves true on success. The mind owns the state
	// transition out of DREAMING when the future resolves.
	Dream(ctx context.Context) *future.Result[bool]

	// Sleep asks the engine to release its derived data. Returns false
	// while it still holds live handles (outstanding leaderboard
	// queries), which blocks the orchestration sleep transition.
	Sleep() bool

	// AssociationsLeaderboard ranks the notes most related to the given
	// note, asynchronously. Resolves to an empty slice (not a failure)
	// when the engine has no signatures yet.
	AssociationsLeaderboard(ctx context.Context, note *model.Note) *future.Result[[]Scored]

	// Triples returns the facts inferred by the last completed dream.
	Triples() []cache.Triple
}
