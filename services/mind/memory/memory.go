// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory is the persistent collection of all outlines: the single
// source of truth for the graph model.
//
// # Description
//
// Memory keeps the active and limbo outline maps in memory, mirrors every
// change into the BadgerDB store, and maintains the two indexes the
// redesigned relations require: the owned-by index (note ID to owning
// outline key, updated transactionally on every remember/forget) and the
// tag registry (per-tag cardinalities, rebuilt after mutations). Every
// mutation bumps the shared cache epoch, which is the whole
// cache-invalidation contract: no mutator touches a cache directly.
//
// # Thread Safety
//
// All methods are safe for concurrent use via an internal RWMutex. The
// orchestration protocol remains the real serialization story for
// structural mutation; the mutex only keeps observational reads
// (statistics, API GETs) coherent.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// Sentinel errors for memory operations.
var (
	// ErrOutlineNotFound reports an outline key absent from active memory.
	ErrOutlineNotFound = errors.New("outline for given key not found")

	// ErrNoteNotFound reports a note ID with no resolvable owner.
	ErrNoteNotFound = errors.New("note has no resolvable owning outline")
)

// Memory holds every outline the mind has learned.
type Memory struct {
	mu      sync.RWMutex
	store   *Store // nil for a purely ephemeral memory
	active  map[string]*model.Outline
	limbo   map[string]*model.Outline
	owner   map[string]string   // note ID -> owning outline key
	indexed map[string][]string // outline key -> note IDs last indexed
	tags    *model.TagRegistry
	scope   TimeScope
	epoch   cache.Epoch
	logger  *slog.Logger
}

// New builds an empty memory over the given store. A nil store yields an
// ephemeral memory that forgets everything on exit; tests use it freely.
func New(store *Store, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		store:   store,
		active:  make(map[string]*model.Outline),
		limbo:   make(map[string]*model.Outline),
		owner:   make(map[string]string),
		indexed: make(map[string][]string),
		tags:    model.NewTagRegistry(),
		logger:  logger.With(slog.String("component", "memory")),
	}
}

// Load discards the in-memory maps and repopulates them from the store.
// Backs the learn operation. A store-less memory just resets to empty.
func (m *Memory) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	if m.store == nil {
		m.epoch.Bump()
		return nil
	}

	outlines, err := m.store.ListOutlines(ctx)
	if err != nil {
		return fmt.Errorf("load outlines: %w", err)
	}
	for _, o := range outlines {
		m.active[o.Key] = o
		m.reindexLocked(o)
	}

	limbo, err := m.store.ListLimbo(ctx)
	if err != nil {
		return fmt.Errorf("load limbo outlines: %w", err)
	}
	for _, o := range limbo {
		m.limbo[o.Key] = o
	}

	m.rebuildTagsLocked()
	m.epoch.Bump()
	m.logger.Info("memory loaded",
		slog.Int("outlines", len(m.active)),
		slog.Int("limbo", len(m.limbo)))
	return nil
}

// Remember inserts or updates an outline in active memory, refreshes the
// owned-by index and tag registry, persists the record, and bumps the
// epoch.
func (m *Memory) Remember(ctx context.Context, o *model.Outline) error {
	if o == nil || o.Key == "" {
		return fmt.Errorf("remember: outline must carry a key")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[o.Key] = o
	m.reindexLocked(o)
	m.rebuildTagsLocked()

	if m.store != nil {
		if err := m.store.PutOutline(ctx, o); err != nil {
			return fmt.Errorf("persist outline %s: %w", o.Key, err)
		}
	}
	m.epoch.Bump()
	return nil
}

// Forget soft-deletes an outline: it leaves active memory, re-keys into
// the limbo namespace, and its backing record relocates with it. Returns
// the limbo key. ErrOutlineNotFound when the key is absent.
func (m *Memory) Forget(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.active[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutlineNotFound, key)
	}

	limboKey := CreateLimboKey(key)
	if m.store != nil {
		if err := m.store.MoveToLimbo(ctx, key, limboKey); err != nil {
			return "", fmt.Errorf("relocate outline %s to limbo: %w", key, err)
		}
	}

	delete(m.active, key)
	m.dropIndexLocked(key)
	o.Key = limboKey
	m.limbo[limboKey] = o
	m.rebuildTagsLocked()
	m.epoch.Bump()

	m.logger.Info("outline forgotten",
		slog.String("key", key), slog.String("limbo_key", limboKey))
	return limboKey, nil
}

// Relocate re-keys an active outline, moving its backing record along.
func (m *Memory) Relocate(ctx context.Context, oldKey, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.active[oldKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutlineNotFound, oldKey)
	}
	if _, taken := m.active[newKey]; taken {
		return fmt.Errorf("relocate: key %s already in use", newKey)
	}

	if m.store != nil {
		if err := m.store.Rekey(ctx, oldKey, newKey); err != nil {
			return fmt.Errorf("relocate record %s: %w", oldKey, err)
		}
	}

	delete(m.active, oldKey)
	m.dropIndexLocked(oldKey)
	o.Key = newKey
	m.active[newKey] = o
	m.reindexLocked(o)
	m.epoch.Bump()
	return nil
}

// Amnesia discards all learned data: active memory, limbo, indexes, and
// every persisted record. A full reset, not a soft delete.
func (m *Memory) Amnesia(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Wipe(ctx); err != nil {
			return fmt.Errorf("wipe store: %w", err)
		}
	}
	m.resetLocked()
	m.epoch.Bump()
	m.logger.Info("memory reset")
	return nil
}

// Outline returns the active outline under the key.
func (m *Memory) Outline(key string) (*model.Outline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.active[key]
	return o, ok
}

// LimboOutline returns the soft-deleted outline under the limbo key.
func (m *Memory) LimboOutline(limboKey string) (*model.Outline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.limbo[limboKey]
	return o, ok
}

// Outlines returns every active outline in key order.
func (m *Memory) Outlines() []*model.Outline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outlinesLocked()
}

// OutlineNames returns the names of every active outline, in key order.
func (m *Memory) OutlineNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.active))
	for _, o := range m.outlinesLocked() {
		names = append(names, o.Name)
	}
	return names
}

// AllNotes returns every note across all active outlines, outlines in key
// order and notes in sequence order. The notes are shared, not copied.
func (m *Memory) AllNotes() []*model.Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var notes []*model.Note
	for _, o := range m.outlinesLocked() {
		notes = append(notes, o.Notes...)
	}
	return notes
}

// Note resolves a note ID through the owned-by index, returning the note
// and its owning outline. ErrNoteNotFound when the ID is unknown.
func (m *Memory) Note(noteID string) (*model.Note, *model.Outline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.owner[noteID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	o, ok := m.active[key]
	if !ok {
		// The index points at an outline that left active memory; treat as
		// unknown rather than exposing the inconsistency.
		return nil, nil, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	n := o.NoteByID(noteID)
	if n == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	return n, o, nil
}

// Owner returns the owning outline key for a note ID.
func (m *Memory) Owner(noteID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.owner[noteID]
	return key, ok
}

// OutlinesCount returns the number of active outlines.
func (m *Memory) OutlinesCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// NotesCount returns the total number of notes across active outlines.
func (m *Memory) NotesCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, o := range m.active {
		total += len(o.Notes)
	}
	return total
}

// SetTimeScope replaces the active time scope. Scope changes alter what
// scans may observe, so the epoch bumps.
func (m *Memory) SetTimeScope(scope TimeScope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scope = scope
	m.epoch.Bump()
}

// TimeScope returns the active time scope.
func (m *Memory) TimeScope() TimeScope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scope
}

// Epoch returns the current cache epoch.
func (m *Memory) Epoch() uint64 {
	return m.epoch.Current()
}

// BumpEpoch advances the cache epoch outside a memory mutation. Sleep
// uses it so cleared caches cannot be resurrected by a same-epoch read.
func (m *Memory) BumpEpoch() uint64 {
	return m.epoch.Bump()
}

// TagCardinality returns how many outlines and notes carry the tag.
func (m *Memory) TagCardinality(tag string) (outlines, notes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tags.OutlineCardinality(tag), m.tags.NoteCardinality(tag)
}

// Tags returns the sorted union of all known tag names.
func (m *Memory) Tags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tags.Tags()
}

// Store returns the backing store, nil for ephemeral memories.
func (m *Memory) Store() *Store {
	return m.store
}

// LimboOutlines returns every soft-deleted outline in key order.
func (m *Memory) LimboOutlines() []*model.Outline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.limbo))
	for k := range m.limbo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*model.Outline, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.limbo[k])
	}
	return out
}

// outlinesLocked returns active outlines in key order. Caller holds a
// lock.
func (m *Memory) outlinesLocked() []*model.Outline {
	keys := make([]string, 0, len(m.active))
	for k := range m.active {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*model.Outline, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.active[k])
	}
	return out
}

// reindexLocked refreshes the owned-by entries for one outline: notes
// that left it since the last index are released (unless another outline
// has already claimed them), current notes are claimed. Caller holds the
// write lock.
func (m *Memory) reindexLocked(o *model.Outline) {
	current := make(map[string]struct{}, len(o.Notes))
	ids := make([]string, 0, len(o.Notes))
	for _, n := range o.Notes {
		current[n.ID] = struct{}{}
		ids = append(ids, n.ID)
		m.owner[n.ID] = o.Key
	}
	for _, id := range m.indexed[o.Key] {
		if _, still := current[id]; still {
			continue
		}
		if m.owner[id] == o.Key {
			delete(m.owner, id)
		}
	}
	m.indexed[o.Key] = ids
}

// dropIndexLocked releases every owned-by entry held by the outline key.
// Caller holds the write lock.
func (m *Memory) dropIndexLocked(key string) {
	for _, id := range m.indexed[key] {
		if m.owner[id] == key {
			delete(m.owner, id)
		}
	}
	delete(m.indexed, key)
}

// rebuildTagsLocked recomputes tag cardinalities. Caller holds the write
// lock.
func (m *Memory) rebuildTagsLocked() {
	m.tags.Rebuild(m.outlinesLocked())
}

// resetLocked drops every in-memory map. Caller holds the write lock.
func (m *Memory) resetLocked() {
	m.active = make(map[string]*model.Outline)
	m.limbo = make(map[string]*model.Outline)
	m.owner = make(map[string]string)
	m.indexed = make(map[string][]string)
	m.tags.Reset()
}
