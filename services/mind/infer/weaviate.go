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
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// NoteClassName is the Weaviate class holding dreamt note vectors.
const NoteClassName = "NoeticNote"

// Embedder turns text into a vector. The OpenAI backend satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WeaviateConfig tunes the Weaviate backend.
type WeaviateConfig struct {
	// SimilarityFloor is the minimum cosine similarity for a triple.
	// Default 0.8.
	SimilarityFloor float64

	// TopK bounds leaderboard results. Default 10.
	TopK int
}

// DefaultWeaviateConfig returns the defaults described above.
func DefaultWeaviateConfig() WeaviateConfig {
	return WeaviateConfig{SimilarityFloor: 0.8, TopK: 10}
}

// Weaviate keeps dreamt vectors server-side and answers leaderboard
// queries with nearVector searches.
//
// # Description
//
// Dreaming embeds every note through the configured Embedder, recreates
// the NoeticNote class, and writes one object per note with its vector
// attached. Triples are derived from the freshly computed vectors before
// they are discarded; leaderboard queries go to Weaviate.
//
// # Thread Safety
//
// Safe for concurrent use.
type Weaviate struct {
	client   *weaviate.Client
	embedder Embedder
	source   Source
	cfg      WeaviateConfig
	logger   *slog.Logger

	mu      sync.RWMutex
	notes   map[string]*model.Note
	triples []cache.Triple

	liveHandles atomic.Int64
}

// NewWeaviate builds the Weaviate backend. Client and embedder are
// required.
func NewWeaviate(source Source, client *weaviate.Client, embedder Embedder, cfg WeaviateConfig, logger *slog.Logger) (*Weaviate, error) {
	if client == nil {
		return nil, fmt.Errorf("weaviate backend requires a client")
	}
	if embedder == nil {
		return nil, fmt.Errorf("weaviate backend requires an embedder")
	}
	def := DefaultWeaviateConfig()
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = def.SimilarityFloor
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Weaviate{
		client:   client,
		embedder: embedder,
		source:   source,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "infer-weaviate")),
		notes:    make(map[string]*model.Note),
	}, nil
}

// noteClassSchema returns the NoeticNote class. Vectors are supplied by
// the embedder, so the vectorizer is disabled.
func noteClassSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       NoteClassName,
		Description: "Dreamt note vectors for association queries",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "noteId",
				DataType:        []string{"text"},
				Description:     "Note identifier",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "noteName",
				DataType:     []string{"text"},
				Description:  "Display name of the note",
				Tokenization: "word",
			},
			{
				Name:        "dreamedAt",
				DataType:    []string{"date"},
				Description: "When this vector was written",
			},
		},
	}
}

// recreateClass drops any existing NoeticNote class and creates a fresh
// one. Each dream replaces the index wholesale.
func (e *Weaviate) recreateClass(ctx context.Context) error {
	exists, err := e.client.Schema().ClassExistenceChecker().
		WithClassName(NoteClassName).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("checking class existence: %w", err)
	}
	if exists {
		if err := e.client.Schema().ClassDeleter().
			WithClassName(NoteClassName).
			Do(ctx); err != nil {
			return fmt.Errorf("deleting class: %w", err)
		}
	}
	if err := e.client.Schema().ClassCreator().
		WithClass(noteClassSchema()).
		Do(ctx); err != nil {
		return fmt.Errorf("creating class: %w", err)
	}
	return nil
}

// Dream embeds every note, rebuilds the server-side index, and derives
// triples from the vectors.
func (e *Weaviate) Dream(ctx context.Context) *future.Result[bool] {
	r := future.New[bool]()
	go func() {
		r.Resolve(e.dream(ctx))
	}()
	return r
}

func (e *Weaviate) dream(ctx context.Context) bool {
	for _, o := range e.source.Outlines() {
		if _, err := model.BuildTree(o); err != nil {
			e.logger.Error("dream aborted, outline inconsistent",
				slog.String("outline", o.Key), slog.String("error", err.Error()))
			return false
		}
	}

	if err := e.recreateClass(ctx); err != nil {
		e.logger.Error("dream aborted", slog.String("error", err.Error()))
		return false
	}

	notes := e.source.AllNotes()
	vectors := make(map[string][]float32, len(notes))
	byID := make(map[string]*model.Note, len(notes))
	dreamedAt := strfmt.DateTime(time.Now().UTC()).String()

	for _, n := range notes {
		vec, err := e.embedder.Embed(ctx, noteText(n))
		if err != nil {
			e.logger.Error("embedding failed",
				slog.String("note", n.ID), slog.String("error", err.Error()))
			return false
		}
		if vec == nil {
			continue
		}

		_, err = e.client.Data().Creator().
			WithClassName(NoteClassName).
			WithID(string(strfmt.UUID(uuid.NewString()))).
			WithProperties(map[string]interface{}{
				"noteId":    n.ID,
				"noteName":  n.Name,
				"dreamedAt": dreamedAt,
			}).
			WithVector(vec).
			Do(ctx)
		if err != nil {
			e.logger.Error("writing note vector failed",
				slog.String("note", n.ID), slog.String("error", err.Error()))
			return false
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
	e.notes = byID
	e.triples = triples
	e.mu.Unlock()

	e.logger.Info("dream completed",
		slog.Int("notes", len(byID)), slog.Int("triples", len(triples)))
	return true
}

// Sleep deletes the server-side class. Refuses while leaderboard handles
// are live.
func (e *Weaviate) Sleep() bool {
	if e.liveHandles.Load() > 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.client.Schema().ClassDeleter().
		WithClassName(NoteClassName).
		Do(ctx); err != nil {
		e.logger.Warn("dropping class failed", slog.String("error", err.Error()))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes = make(map[string]*model.Note)
	e.triples = nil
	return true
}

// AssociationsLeaderboard runs a nearVector search for the note's text.
func (e *Weaviate) AssociationsLeaderboard(ctx context.Context, note *model.Note) *future.Result[[]Scored] {
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

func (e *Weaviate) leaderboard(ctx context.Context, note *model.Note) []Scored {
	query, err := e.embedder.Embed(ctx, noteText(note))
	if err != nil || query == nil {
		if err != nil {
			e.logger.Error("leaderboard embedding failed", slog.String("error", err.Error()))
		}
		return []Scored{}
	}

	nearVector := e.client.GraphQL().NearVectorArgBuilder().
		WithVector(query)

	// Request one extra row in case the query note itself is indexed.
	// Certainty is (1+cosine)/2, always in [0,1].
	fields := []graphql.Field{
		{Name: "noteId"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := e.client.GraphQL().Get().
		WithClassName(NoteClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(e.cfg.TopK + 1).
		Do(ctx)
	if err != nil {
		e.logger.Error("leaderboard query failed", slog.String("error", err.Error()))
		return []Scored{}
	}
	if len(result.Errors) > 0 {
		e.logger.Error("leaderboard query failed",
			slog.String("error", result.Errors[0].Message))
		return []Scored{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ranked := make([]Scored, 0, e.cfg.TopK)
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return ranked
	}
	objects, ok := data[NoteClassName].([]interface{})
	if !ok {
		return ranked
	}
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["noteId"].(string)
		if id == "" || id == note.ID {
			continue
		}
		candidate, ok := e.notes[id]
		if !ok {
			continue
		}
		certainty := 0.0
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if c, ok := additional["certainty"].(float64); ok {
				certainty = c
			}
		}
		ranked = append(ranked, Scored{Note: candidate, Score: 2*certainty - 1})
		if len(ranked) == e.cfg.TopK {
			break
		}
	}
	return ranked
}

// Triples returns the facts of the last completed dream.
func (e *Weaviate) Triples() []cache.Triple {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]cache.Triple, len(e.triples))
	copy(out, e.triples)
	return out
}
