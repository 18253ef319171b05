// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mind orchestrates the knowledge engine.
//
// # Description
//
// The Mind owns the lifecycle protocol over Memory, the structural
// editor, the search engine, and the inference collaborator. Public
// entry points (Learn, Think, Sleep, Amnesia) apply the pure transition
// function in services/mind/state under a single mutex; structural edits
// run inside a begin/end foreground-operation window so lifecycle
// transitions cannot pull the graph out from under them. DREAMING is
// never cancelled: the only way out is the collaborator's completion
// signal.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package mind

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/config"
	"github.com/AleutianAI/noetic/services/mind/edit"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/infer"
	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/outcome"
	"github.com/AleutianAI/noetic/services/mind/search"
	"github.com/AleutianAI/noetic/services/mind/state"
)

var mindOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "noetic_mind_operations_total",
	Help: "Orchestration entry points, by operation and outcome.",
}, []string{"operation", "outcome"})

// ActivityRecorder receives one record per orchestration operation.
// Implementations must tolerate concurrent calls.
type ActivityRecorder interface {
	Record(ctx context.Context, operation, result string, elapsed time.Duration)
}

// Options configures a Mind beyond its required collaborators.
type Options struct {
	// Config persists the lifecycle phase across sessions. Optional.
	Config *config.Config

	// DwellCapacity bounds the recently-visited ring. Zero uses the
	// cache default.
	DwellCapacity int

	// Recorder receives activity history. Optional.
	Recorder ActivityRecorder

	Logger *slog.Logger
}

// Statistics is the observability snapshot returned by Statistics.
type Statistics struct {
	Phase     string `json:"phase"`
	ActiveOps int    `json:"active_ops"`
	Outlines  int    `json:"outlines"`
	Notes     int    `json:"notes"`
	DwellSize int    `json:"dwell_size"`
	Epoch     uint64 `json:"epoch"`
}

// Mind is the orchestration core.
type Mind struct {
	mu  sync.Mutex
	reg state.Register

	mem      *memory.Memory
	editor   *edit.Editor
	searcher *search.Searcher
	engine   infer.Engine
	cfg      *config.Config
	recorder ActivityRecorder

	allNotes cache.AllNotes
	dwell    *cache.Dwell
	triples  cache.Triples
	events   *Hub

	logger *slog.Logger
}

// New assembles a Mind over its collaborators. The initial phase is
// taken from the configuration when present; a phase persisted
// mid-dream has already been normalized to sleeping by config.Load.
func New(mem *memory.Memory, engine infer.Engine, opts Options) *Mind {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "mind"))

	m := &Mind{
		mem:      mem,
		editor:   edit.NewEditor(mem, logger),
		searcher: search.NewSearcher(mem),
		engine:   engine,
		cfg:      opts.Config,
		recorder: opts.Recorder,
		dwell:    cache.NewDwell(opts.DwellCapacity),
		events:   NewHub(),
		logger:   logger,
	}
	if opts.Config != nil {
		m.reg.Phase = opts.Config.MindPhase()
	}
	return m
}

// Events returns the hub carrying phase transitions and edit patches.
func (m *Mind) Events() *Hub {
	return m.events
}

// Memory exposes the graph model for read-side collaborators.
func (m *Mind) Memory() *memory.Memory {
	return m.mem
}

func (m *Mind) lock() {
	m.mu.Lock()
}

func (m *Mind) unlock() {
	m.mu.Unlock()
}

// step applies one request under the held lock and records the metric.
func (m *Mind) step(req state.Request) outcome.Outcome {
	next, out := state.Step(m.reg, req)
	m.reg = next
	return out
}

// record reports one finished operation to metrics, logs, and history.
func (m *Mind) record(ctx context.Context, op string, out outcome.Outcome, start time.Time) {
	mindOps.WithLabelValues(op, out.Label()).Inc()
	if !out.Accepted() {
		m.logger.Info("operation refused",
			slog.String("operation", op), slog.String("outcome", out.String()))
	}
	if m.recorder != nil {
		m.recorder.Record(ctx, op, out.Label(), time.Since(start))
	}
}

// persistPhase writes the current phase through the configuration.
func (m *Mind) persistPhase(p state.Phase) {
	if m.cfg == nil {
		return
	}
	m.cfg.SetMindPhase(p)
	if err := m.cfg.Save(); err != nil {
		m.logger.Warn("persisting phase failed",
			slog.String("phase", p.String()), slog.String("error", err.Error()))
	}
}

// Learn discards the in-memory graph and reloads it from the store.
// Denied while dreaming or while foreground operations are in flight.
func (m *Mind) Learn(ctx context.Context) (outcome.Outcome, error) {
	start := time.Now()
	m.lock()
	defer m.unlock()

	out := m.step(state.Learn)
	m.record(ctx, "learn", out, start)
	if !out.Accepted() {
		return out, nil
	}

	if err := m.mem.Load(ctx); err != nil {
		return out, err
	}
	m.allNotes.Invalidate()
	m.triples.Invalidate()
	m.dwell.Clear()
	m.logger.Info("learned",
		slog.Int("outlines", m.mem.OutlinesCount()), slog.Int("notes", m.mem.NotesCount()))
	return out, nil
}

// Think starts the asynchronous inference pass.
//
// The outcome reports the guarded transition: denied when the mind is
// not sleeping. On acceptance the handle resolves true once the dream
// completes and the mind has moved to THINKING, or false when the
// collaborator fails. ctx scopes only the trigger: the dream itself is
// detached and keeps running after the caller cancels or abandons its
// wait. The DREAMING phase blocks conflicting operations until the
// collaborator signals completion.
func (m *Mind) Think(ctx context.Context) (*future.Result[bool], outcome.Outcome) {
	start := time.Now()
	m.lock()

	out := m.step(state.Think)
	m.record(ctx, "think", out, start)
	if !out.Accepted() {
		m.unlock()
		return future.Resolved(false), out
	}

	m.persistPhase(state.Dreaming)
	m.events.Publish(phaseEvent(state.Dreaming))
	m.unlock()

	done := future.New[bool]()
	go m.dream(context.WithoutCancel(ctx), done)
	return done, out
}

// dream delegates to the collaborator and applies its completion signal.
// Runs outside the guard with a detached context; only the collaborator
// moves the mind past DREAMING.
func (m *Mind) dream(ctx context.Context, done *future.Result[bool]) {
	ok, err := m.engine.Dream(ctx).Await(context.Background())
	if err != nil {
		ok = false
	}

	m.lock()
	if ok {
		m.step(state.DreamFinished)
		m.triples.Set(m.engine.Triples(), m.mem.Epoch())
		m.persistPhase(state.Thinking)
		m.events.Publish(phaseEvent(state.Thinking))
	} else {
		m.step(state.DreamFailed)
		m.persistPhase(state.Sleeping)
		m.events.Publish(phaseEvent(state.Sleeping))
	}
	m.unlock()

	m.logger.Info("dream resolved", slog.Bool("ok", ok))
	done.Resolve(ok)
}

// Sleep stops serving associations and drops every derived cache.
// Denied while dreaming, while foreground operations are in flight, or
// when the collaborator still holds live handles. Persists the phase as
// part of its contract.
func (m *Mind) Sleep(ctx context.Context) (outcome.Outcome, error) {
	start := time.Now()
	m.lock()
	defer m.unlock()

	if _, out := state.Step(m.reg, state.Sleep); !out.Accepted() {
		m.record(ctx, "sleep", out, start)
		return out, nil
	}
	if !m.engine.Sleep() {
		out := outcome.Denied(outcome.ReasonCollaboratorBusy,
			"the inference collaborator still holds live handles")
		m.record(ctx, "sleep", out, start)
		return out, nil
	}

	out := m.step(state.Sleep)
	m.record(ctx, "sleep", out, start)

	m.mem.BumpEpoch()
	m.allNotes.Invalidate()
	m.triples.Invalidate()
	m.dwell.Clear()
	m.persistPhase(state.Sleeping)
	m.events.Publish(phaseEvent(state.Sleeping))
	return out, nil
}

// Amnesia discards all learned data: active outlines, limbo, caches,
// and the persistent store. Denied under the same guard as Sleep.
func (m *Mind) Amnesia(ctx context.Context) (outcome.Outcome, error) {
	start := time.Now()
	m.lock()
	defer m.unlock()

	if _, out := state.Step(m.reg, state.Amnesia); !out.Accepted() {
		m.record(ctx, "amnesia", out, start)
		return out, nil
	}
	if !m.engine.Sleep() {
		out := outcome.Denied(outcome.ReasonCollaboratorBusy,
			"the inference collaborator still holds live handles")
		m.record(ctx, "amnesia", out, start)
		return out, nil
	}

	out := m.step(state.Amnesia)
	m.record(ctx, "amnesia", out, start)

	if err := m.mem.Amnesia(ctx); err != nil {
		return out, err
	}
	m.allNotes.Invalidate()
	m.triples.Invalidate()
	m.dwell.Clear()
	m.persistPhase(state.Sleeping)
	m.events.Publish(phaseEvent(state.Sleeping))
	return out, nil
}

// begin opens a foreground-operation window. Denied while dreaming.
func (m *Mind) begin() outcome.Outcome {
	m.lock()
	defer m.unlock()
	return m.step(state.BeginOperation)
}

// end closes a foreground-operation window.
func (m *Mind) end() {
	m.lock()
	defer m.unlock()
	m.step(state.EndOperation)
}

// CreateOutline runs the structural editor inside a foreground window.
func (m *Mind) CreateOutline(ctx context.Context, p edit.CreateOutlineParams) (*model.Outline, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "create-outline", out, start)
		return nil, out, nil
	}
	defer m.end()

	o, out, err := m.editor.CreateOutline(ctx, p)
	m.record(ctx, "create-outline", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventOutline, Operation: "create", OutlineKey: o.Key})
	}
	return o, out, err
}

// CloneOutline deep-copies an outline under a fresh key.
func (m *Mind) CloneOutline(ctx context.Context, key string) (*model.Outline, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "clone-outline", out, start)
		return nil, out, nil
	}
	defer m.end()

	o, out, err := m.editor.CloneOutline(ctx, key)
	m.record(ctx, "clone-outline", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventOutline, Operation: "clone", OutlineKey: o.Key})
	}
	return o, out, err
}

// ForgetOutline soft-deletes an outline into limbo and returns its limbo
// key.
func (m *Mind) ForgetOutline(ctx context.Context, key string) (string, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "forget-outline", out, start)
		return "", out, nil
	}
	defer m.end()

	limboKey, out, err := m.editor.ForgetOutline(ctx, key)
	m.record(ctx, "forget-outline", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventOutline, Operation: "forget", OutlineKey: key})
	}
	return limboKey, out, err
}

// CreateNote inserts a note into the target outline at offset.
func (m *Mind) CreateNote(ctx context.Context, outlineKey string, offset int, p edit.CreateNoteParams) (*model.Note, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "create-note", out, start)
		return nil, out, nil
	}
	defer m.end()

	n, out, err := m.editor.CreateNote(ctx, outlineKey, offset, p)
	m.record(ctx, "create-note", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventPatch, Operation: "create-note",
			OutlineKey: outlineKey, NoteID: n.ID})
	}
	return n, out, err
}

// RefactorNote moves a note and its subtree into another outline.
func (m *Mind) RefactorNote(ctx context.Context, noteID, targetKey, targetParentID string) (outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "refactor-note", out, start)
		return out, nil
	}
	defer m.end()

	out, err := m.editor.RefactorNote(ctx, noteID, targetKey, targetParentID)
	m.record(ctx, "refactor-note", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventPatch, Operation: "refactor-note",
			OutlineKey: targetKey, NoteID: noteID})
	}
	return out, err
}

// ForgetNote removes a note and its subtree from its owning outline.
func (m *Mind) ForgetNote(ctx context.Context, noteID string) (edit.Patch, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "forget-note", out, start)
		return edit.Patch{}, out, nil
	}
	defer m.end()

	patch, out, err := m.editor.ForgetNote(ctx, noteID)
	m.record(ctx, "forget-note", out, start)
	if out.Accepted() && err == nil {
		m.events.Publish(Event{Type: EventPatch, Operation: "forget-note",
			NoteID: noteID, Patch: &patch})
	}
	return patch, out, err
}

// MoveNote reorders a note among its siblings or shifts its depth.
func (m *Mind) MoveNote(ctx context.Context, noteID string, mv edit.Move) (edit.Patch, outcome.Outcome, error) {
	start := time.Now()
	if out := m.begin(); !out.Accepted() {
		m.record(ctx, "move-note", out, start)
		return edit.Patch{}, out, nil
	}
	defer m.end()

	patch, out, err := m.editor.MoveNote(ctx, noteID, mv)
	m.record(ctx, "move-note", out, start)
	if out.Accepted() && err == nil && !patch.IsZero() {
		m.events.Publish(Event{Type: EventPatch, Operation: mv.String(),
			NoteID: noteID, Patch: &patch})
	}
	return patch, out, err
}

// FullText runs the search engine over the active graph.
func (m *Mind) FullText(ctx context.Context, pattern string, opts search.Options) ([]*model.Note, error) {
	return m.searcher.FullText(ctx, pattern, opts)
}

// AssociationsLeaderboard asks the collaborator for notes related to
// noteID. Unknown notes resolve to an empty leaderboard, not a failure.
func (m *Mind) AssociationsLeaderboard(ctx context.Context, noteID string) *future.Result[[]infer.Scored] {
	note, _, err := m.mem.Note(noteID)
	if err != nil {
		return future.Resolved([]infer.Scored{})
	}
	return m.engine.AssociationsLeaderboard(ctx, note)
}

// Remind records a visit on the dwell list and returns the note.
func (m *Mind) Remind(noteID string) (*model.Note, error) {
	note, _, err := m.mem.Note(noteID)
	if err != nil {
		return nil, err
	}
	m.dwell.Visit(noteID, m.mem.Epoch())
	return note, nil
}

// DwellList returns the recently visited notes, newest first. Entries
// from older epochs or referencing forgotten notes are dropped.
func (m *Mind) DwellList() []*model.Note {
	entries := m.dwell.Recent(m.mem.Epoch())
	notes := make([]*model.Note, 0, len(entries))
	for _, e := range entries {
		if note, _, err := m.mem.Note(e.NoteID); err == nil {
			notes = append(notes, note)
		}
	}
	return notes
}

// Triples returns the inferred facts of the last completed dream, empty
// when stale or never dreamt.
func (m *Mind) Triples() []cache.Triple {
	return m.triples.Get(m.mem.Epoch())
}

// Phase returns the current lifecycle phase.
func (m *Mind) Phase() state.Phase {
	m.lock()
	defer m.unlock()
	return m.reg.Phase
}

// IsActive reports whether any foreground operation is in flight.
func (m *Mind) IsActive() bool {
	m.lock()
	defer m.unlock()
	return !m.reg.Idle()
}

// Statistics returns the observability snapshot.
func (m *Mind) Statistics() Statistics {
	m.lock()
	reg := m.reg
	m.unlock()

	return Statistics{
		Phase:     reg.Phase.String(),
		ActiveOps: reg.ActiveOps,
		Outlines:  m.mem.OutlinesCount(),
		Notes:     m.mem.NotesCount(),
		DwellSize: m.dwell.Len(),
		Epoch:     m.mem.Epoch(),
	}
}

// OutlineNames returns the names of all active outlines.
func (m *Mind) OutlineNames() []string {
	return m.mem.OutlineNames()
}

// AllNotes returns the cached flattened note view, rebuilding it when
// the epoch moved.
func (m *Mind) AllNotes() []*model.Note {
	return m.allNotes.Get(m.mem.Epoch(), m.mem.AllNotes)
}

// GetTaggedNotes returns the notes carrying the given tag.
func (m *Mind) GetTaggedNotes(tag string) []*model.Note {
	return m.searcher.NotesByTag(tag)
}

// GetReferencedNotes returns the notes whose inferred triples point at
// noteID, strongest relation first.
func (m *Mind) GetReferencedNotes(noteID string) []*model.Note {
	facts := m.Triples()
	type ref struct {
		id    string
		score float64
	}
	refs := make([]ref, 0)
	seen := make(map[string]struct{})
	for _, t := range facts {
		if t.ObjectID != noteID {
			continue
		}
		if _, dup := seen[t.SubjectID]; dup {
			continue
		}
		seen[t.SubjectID] = struct{}{}
		refs = append(refs, ref{id: t.SubjectID, score: t.Score})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].score > refs[j].score })

	notes := make([]*model.Note, 0, len(refs))
	for _, r := range refs {
		if note, _, err := m.mem.Note(r.id); err == nil {
			notes = append(notes, note)
		}
	}
	return notes
}

// TagCardinality returns how many outlines and notes carry the tag.
func (m *Mind) TagCardinality(tag string) (outlines, notes int) {
	return m.mem.TagCardinality(tag)
}
