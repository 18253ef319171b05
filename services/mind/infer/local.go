// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package infer

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// LocalConfig tunes the local engine.
type LocalConfig struct {
	// NumBands and RowsPerBand shape the LSH index; the signature length
	// is their product. Defaults (16x4) target a similarity floor around
	// 0.5.
	NumBands    int
	RowsPerBand int

	// ShingleSize is the word-shingle width. Default 3.
	ShingleSize int

	// SimilarityFloor is the minimum estimated Jaccard similarity for a
	// pair to produce a triple. Default 0.5.
	SimilarityFloor float64

	// TopK bounds leaderboard results. Default 10.
	TopK int
}

// DefaultLocalConfig returns the defaults described above.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		NumBands:        16,
		RowsPerBand:     4,
		ShingleSize:     3,
		SimilarityFloor: 0.5,
		TopK:            10,
	}
}

// Local is the self-contained association engine.
//
// # Description
//
// Dream snapshots the all-notes view, builds a MinHash signature per note
// from word shingles over name plus description, buckets the signatures
// with banded LSH, emits a "related-to" triple for every candidate pair
// whose estimated Jaccard similarity clears the floor, and runs a
// depth-consistency check over every outline. The leaderboard looks up
// LSH candidates for the query note and ranks them by exact signature
// similarity.
//
// # Thread Safety
//
// Safe for concurrent use. Dream replaces the whole index under one
// write lock; leaderboard queries read a consistent snapshot.
type Local struct {
	source Source
	cfg    LocalConfig
	seeds  []uint64
	logger *slog.Logger

	mu      sync.RWMutex
	sigs    map[string][]uint64
	notes   map[string]*model.Note
	buckets []map[uint64][]string
	triples []cache.Triple

	liveHandles atomic.Int64
}

// NewLocal builds the local engine over the given source.
func NewLocal(source Source, cfg LocalConfig, logger *slog.Logger) *Local {
	def := DefaultLocalConfig()
	if cfg.NumBands <= 0 {
		cfg.NumBands = def.NumBands
	}
	if cfg.RowsPerBand <= 0 {
		cfg.RowsPerBand = def.RowsPerBand
	}
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = def.ShingleSize
	}
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = def.SimilarityFloor
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if logger == nil {
		logger = slog.Default()
	}

	sigLen := cfg.NumBands * cfg.RowsPerBand
	seeds := make([]uint64, sigLen)
	for i := range seeds {
		seeds[i] = uint64(i*31 + 17)
	}

	return &Local{
		source: source,
		cfg:    cfg,
		seeds:  seeds,
		logger: logger.With(slog.String("component", "infer-local")),
		sigs:   make(map[string][]uint64),
		notes:  make(map[string]*model.Note),
	}
}

// Dream rebuilds the association index and emits triples. Resolves true
// unless an outline fails the depth-consistency check.
func (l *Local) Dream(ctx context.Context) *future.Result[bool] {
	r := future.New[bool]()
	go func() {
		r.Resolve(l.dream(ctx))
	}()
	return r
}

func (l *Local) dream(ctx context.Context) bool {
	// Consistency pass: a dream over a corrupt graph fails rather than
	// inferring relations from it.
	for _, o := range l.source.Outlines() {
		if _, err := model.BuildTree(o); err != nil {
			l.logger.Error("dream aborted, outline inconsistent",
				slog.String("outline", o.Key), slog.String("error", err.Error()))
			return false
		}
	}

	notes := l.source.AllNotes()
	sigs := make(map[string][]uint64, len(notes))
	byID := make(map[string]*model.Note, len(notes))
	buckets := make([]map[uint64][]string, l.cfg.NumBands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}

	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("dream cancelled", slog.String("error", err.Error()))
			return false
		}
		sig := l.signature(n)
		if sig == nil {
			continue
		}
		sigs[n.ID] = sig
		byID[n.ID] = n
		for band := 0; band < l.cfg.NumBands; band++ {
			h := bandHash(sig, band, l.cfg.RowsPerBand)
			buckets[band][h] = append(buckets[band][h], n.ID)
		}
	}

	triples := l.emitTriples(sigs, buckets)

	l.mu.Lock()
	l.sigs = sigs
	l.notes = byID
	l.buckets = buckets
	l.triples = triples
	l.mu.Unlock()

	l.logger.Info("dream completed",
		slog.Int("notes", len(sigs)), slog.Int("triples", len(triples)))
	return true
}

// emitTriples walks every LSH bucket and records one related-to triple
// per unordered pair clearing the similarity floor.
func (l *Local) emitTriples(sigs map[string][]uint64, buckets []map[uint64][]string) []cache.Triple {
	seen := make(map[[2]string]struct{})
	triples := make([]cache.Triple, 0)

	for _, band := range buckets {
		for _, ids := range band {
			for i := 0; i < len(ids); i++ {
				for j := i + 1; j < len(ids); j++ {
					a, b := ids[i], ids[j]
					if a > b {
						a, b = b, a
					}
					pair := [2]string{a, b}
					if _, dup := seen[pair]; dup {
						continue
					}
					seen[pair] = struct{}{}
					score := similarity(sigs[a], sigs[b])
					if score < l.cfg.SimilarityFloor {
						continue
					}
					triples = append(triples, cache.Triple{
						SubjectID: a,
						Predicate: cache.PredicateRelatedTo,
						ObjectID:  b,
						Score:     score,
					})
				}
			}
		}
	}

	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Score != triples[j].Score {
			return triples[i].Score > triples[j].Score
		}
		if triples[i].SubjectID != triples[j].SubjectID {
			return triples[i].SubjectID < triples[j].SubjectID
		}
		return triples[i].ObjectID < triples[j].ObjectID
	})
	return triples
}

// Sleep drops the index. Refuses while leaderboard handles are live.
func (l *Local) Sleep() bool {
	if l.liveHandles.Load() > 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sigs = make(map[string][]uint64)
	l.notes = make(map[string]*model.Note)
	l.buckets = nil
	l.triples = nil
	return true
}

// AssociationsLeaderboard ranks the notes most related to the given
// note. Resolves empty when the index has nothing to offer.
func (l *Local) AssociationsLeaderboard(ctx context.Context, note *model.Note) *future.Result[[]Scored] {
	r := future.New[[]Scored]()
	if note == nil {
		r.Resolve([]Scored{})
		return r
	}

	l.liveHandles.Add(1)
	go func() {
		defer l.liveHandles.Add(-1)
		r.Resolve(l.leaderboard(note))
	}()
	return r
}

func (l *Local) leaderboard(note *model.Note) []Scored {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.buckets) == 0 {
		return []Scored{}
	}

	// The query note's own signature may predate the index (a note
	// created after the last dream); compute it fresh.
	sig, ok := l.sigs[note.ID]
	if !ok {
		sig = l.signature(note)
		if sig == nil {
			return []Scored{}
		}
	}

	candidates := make(map[string]struct{})
	for band := 0; band < l.cfg.NumBands; band++ {
		h := bandHash(sig, band, l.cfg.RowsPerBand)
		for _, id := range l.buckets[band][h] {
			if id != note.ID {
				candidates[id] = struct{}{}
			}
		}
	}

	ranked := make([]Scored, 0, len(candidates))
	for id := range candidates {
		ranked = append(ranked, Scored{Note: l.notes[id], Score: similarity(sig, l.sigs[id])})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Note.ID < ranked[j].Note.ID
	})
	if len(ranked) > l.cfg.TopK {
		ranked = ranked[:l.cfg.TopK]
	}
	return ranked
}

// Triples returns the facts of the last completed dream.
func (l *Local) Triples() []cache.Triple {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]cache.Triple, len(l.triples))
	copy(out, l.triples)
	return out
}

// signature computes the MinHash signature over the note's word
// shingles. Nil when the note has too little text to shingle.
func (l *Local) signature(n *model.Note) []uint64 {
	words := tokenize(n.Name)
	for _, block := range n.Description {
		words = append(words, tokenize(block)...)
	}
	if len(words) == 0 {
		return nil
	}

	k := l.cfg.ShingleSize
	if k > len(words) {
		k = len(words)
	}
	hashes := make([]uint64, 0, len(words)-k+1)
	for i := 0; i+k <= len(words); i++ {
		hashes = append(hashes, hashShingle(words[i:i+k]))
	}

	sig := make([]uint64, len(l.seeds))
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	for _, h := range hashes {
		for i, seed := range l.seeds {
			combined := h ^ (seed * 0x9e3779b97f4a7c15)
			if combined < sig[i] {
				sig[i] = combined
			}
		}
	}
	return sig
}

// tokenize lowercases and splits on every non-alphanumeric run.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hashShingle(words []string) uint64 {
	h := fnv.New64a()
	for i, w := range words {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(w))
	}
	return h.Sum64()
}

func bandHash(sig []uint64, band, rows int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range sig[band*rows : (band+1)*rows] {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

// similarity estimates Jaccard similarity as the matching fraction of
// two signatures.
func similarity(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
