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
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/awnumar/memguard"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// OpenAIConfig tunes the OpenAI embedding backend.
type OpenAIConfig struct {
	// Model is the embedding model. Default: text-embedding-3-small.
	Model openai.EmbeddingModel

	// BaseURL overrides the API endpoint (OpenAI-compatible local
	// servers). Empty uses the official endpoint.
	BaseURL string

	// ChunkSize and ChunkOverlap shape the text splitter. Defaults 512/64.
	ChunkSize    int
	ChunkOverlap int

	// SimilarityFloor is the minimum cosine similarity for a triple.
	// Default 0.8 (embedding cosines run much higher than Jaccard).
	SimilarityFloor float64

	// TopK bounds leaderboard results. Default 10.
	TopK int
}

// DefaultOpenAIConfig returns the defaults described above.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:           openai.SmallEmbedding3,
		ChunkSize:       512,
		ChunkOverlap:    64,
		SimilarityFloor: 0.8,
		TopK:            10,
	}
}

// OpenAI ranks associations by embedding cosine similarity.
//
// # Description
//
// Note text is chunked with the recursive-character splitter, embedded
// through the OpenAI embeddings API, and averaged into one vector per
// note. The API key lives in a memguard enclave and is opened only for
// the duration of a call, never held decrypted between calls.
type OpenAI struct {
	source   Source
	key      *memguard.Enclave
	cfg      OpenAIConfig
	splitter textsplitter.RecursiveCharacter
	logger   *slog.Logger

	mu      sync.RWMutex
	vectors map[string][]float32
	notes   map[string]*model.Note
	triples []cache.Triple

	liveHandles atomic.Int64
}

// NewOpenAI builds the OpenAI backend. The key enclave is required.
func NewOpenAI(source Source, key *memguard.Enclave, cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if key == nil {
		return nil, fmt.Errorf("openai backend requires an API key enclave")
	}
	def := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = def.ChunkOverlap
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

	return &OpenAI{
		source: source,
		key:    key,
		cfg:    cfg,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger:  logger.With(slog.String("component", "infer-openai")),
		vectors: make(map[string][]float32),
		notes:   make(map[string]*model.Note),
	}, nil
}

// client opens the enclave just long enough to construct a client.
func (e *OpenAI) client() (*openai.Client, error) {
	buf, err := e.key.Open()
	if err != nil {
		return nil, fmt.Errorf("open API key enclave: %w", err)
	}
	defer buf.Destroy()

	cfg := openai.DefaultConfig(buf.String())
	if e.cfg.BaseURL != "" {
		cfg.BaseURL = e.cfg.BaseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

// Dream embeds every note and emits triples for pairs over the floor.
func (e *OpenAI) Dream(ctx context.Context) *future.Result[bool] {
	r := future.New[bool]()
	go func() {
		r.Resolve(e.dream(ctx))
	}()
	return r
}

func (e *OpenAI) dream(ctx context.Context) bool {
	for _, o := range e.source.Outlines() {
		if _, err := model.BuildTree(o); err != nil {
			e.logger.Error("dream aborted, outline inconsistent",
				slog.String("outline", o.Key), slog.String("error", err.Error()))
			return false
		}
	}

	client, err := e.client()
	if err != nil {
		e.logger.Error("dream aborted", slog.String("error", err.Error()))
		return false
	}

	notes := e.source.AllNotes()
	vectors := make(map[string][]float32, len(notes))
	byID := make(map[string]*model.Note, len(notes))
	for _, n := range notes {
		vec, err := e.embed(ctx, client, noteText(n))
		if err != nil {
			e.logger.Error("embedding failed",
				slog.String("note", n.ID), slog.String("error", err.Error()))
			return false
		}
		if vec == nil {
			continue
		}
		vectors[n.ID] = vec
		byID[n.ID] = n
	}

	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	triples := make([]cache.Triple, 0)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			score := cosine(vectors[ids[i]], vectors[ids[j]])
			if score < e.cfg.SimilarityFloor {
				continue
			}
			triples = append(triples, cache.Triple{
				SubjectID: ids[i],
				Predicate: cache.PredicateRelatedTo,
				ObjectID:  ids[j],
				Score:     score,
			})
		}
	}
	sort.Slice(triples, func(i, j int) bool { return triples[i].Score > triples[j].Score })

	e.mu.Lock()
	e.vectors = vectors
	e.notes = byID
	e.triples = triples
	e.mu.Unlock()

	e.logger.Info("dream completed",
		slog.Int("notes", len(vectors)), slog.Int("triples", len(triples)))
	return true
}

// embed chunks the text and averages the chunk embeddings. Nil for empty
// text.
func (e *OpenAI) embed(ctx context.Context, client *openai.Client, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	chunks, err := e.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: chunks,
		Model: e.cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings response carried no data")
	}

	dim := len(resp.Data[0].Embedding)
	avg := make([]float32, dim)
	for _, d := range resp.Data {
		for i, v := range d.Embedding {
			avg[i] += v
		}
	}
	for i := range avg {
		avg[i] /= float32(len(resp.Data))
	}
	return avg, nil
}

// Embed satisfies Embedder so the Weaviate backend can reuse this
// backend's vectors.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := e.client()
	if err != nil {
		return nil, err
	}
	return e.embed(ctx, client, text)
}

// Sleep drops the vectors. Refuses while leaderboard handles are live.
func (e *OpenAI) Sleep() bool {
	if e.liveHandles.Load() > 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors = make(map[string][]float32)
	e.notes = make(map[string]*model.Note)
	e.triples = nil
	return true
}

// AssociationsLeaderboard ranks by cosine similarity against the dreamt
// vectors.
func (e *OpenAI) AssociationsLeaderboard(ctx context.Context, note *model.Note) *future.Result[[]Scored] {
	r := future.New[[]Scored]()
	if note == nil {
		r.Resolve([]Scored{})
		return r
	}

	e.liveHandles.Add(1)
	go func() {
		defer e.liveHandles.Add(-1)
		r.Resolve(e.leaderboard(ctx, note))
	}()
	return r
}

func (e *OpenAI) leaderboard(ctx context.Context, note *model.Note) []Scored {
	e.mu.RLock()
	query, ok := e.vectors[note.ID]
	e.mu.RUnlock()

	if !ok {
		client, err := e.client()
		if err != nil {
			e.logger.Error("leaderboard failed", slog.String("error", err.Error()))
			return []Scored{}
		}
		query, err = e.embed(ctx, client, noteText(note))
		if err != nil || query == nil {
			return []Scored{}
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ranked := make([]Scored, 0, len(e.vectors))
	for id, vec := range e.vectors {
		if id == note.ID {
			continue
		}
		ranked = append(ranked, Scored{Note: e.notes[id], Score: cosine(query, vec)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Note.ID < ranked[j].Note.ID
	})
	if len(ranked) > e.cfg.TopK {
		ranked = ranked[:e.cfg.TopK]
	}
	return ranked
}

// Triples returns the facts of the last completed dream.
func (e *OpenAI) Triples() []cache.Triple {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]cache.Triple, len(e.triples))
	copy(out, e.triples)
	return out
}

// noteText joins the searchable text of a note.
func noteText(n *model.Note) string {
	parts := append([]string{n.Name}, n.Description...)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// cosine computes cosine similarity, zero for mismatched or zero
// vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
