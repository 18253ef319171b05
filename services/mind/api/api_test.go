// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/noetic/pkg/logging"
	"github.com/AleutianAI/noetic/services/mind"
	"github.com/AleutianAI/noetic/services/mind/cache"
	"github.com/AleutianAI/noetic/services/mind/config"
	"github.com/AleutianAI/noetic/services/mind/future"
	"github.com/AleutianAI/noetic/services/mind/infer"
	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testWait = 5 * time.Second
	testTick = 10 * time.Millisecond
)

// stubEngine resolves every dream immediately unless a gate channel is
// set, in which case the dream blocks until the test releases it.
type stubEngine struct {
	gate        chan bool
	dreamResult bool
	sleepOK     bool
	board       []infer.Scored
	facts       []cache.Triple
}

func (e *stubEngine) Dream(ctx context.Context) *future.Result[bool] {
	if e.gate == nil {
		return future.Resolved(e.dreamResult)
	}
	r := future.New[bool]()
	go func() {
		r.Resolve(<-e.gate)
	}()
	return r
}

func (e *stubEngine) Sleep() bool { return e.sleepOK }

func (e *stubEngine) AssociationsLeaderboard(ctx context.Context, note *model.Note) *future.Result[[]infer.Scored] {
	return future.Resolved(e.board)
}

func (e *stubEngine) Triples() []cache.Triple { return e.facts }

func newTestRouter(t *testing.T) (*gin.Engine, *mind.Mind) {
	router, m, _ := newTestRouterWithEngine(t, &stubEngine{dreamResult: true, sleepOK: true})
	return router, m
}

func newTestRouterWithEngine(t *testing.T, engine *stubEngine) (*gin.Engine, *mind.Mind, *stubEngine) {
	t.Helper()

	store, err := memory.OpenEphemeralStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "noetic.yaml"))
	require.NoError(t, err)

	m := mind.New(memory.New(store, nil), engine, mind.Options{Config: cfg})
	return NewRouter(m, Options{}), m, engine
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOutlineAndFetch(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/outlines",
		gin.H{"name": "Reading List", "type": "notebook"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Key)
	assert.Equal(t, "Reading List", created.Name)

	w = doJSON(t, router, http.MethodGet, "/v1/outlines/"+created.Key, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/outlines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["names"], 1)
}

func TestCreateOutlineRequiresName(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"type": "notebook"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOutlineNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/outlines/no-such-key", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNoteAndRemind(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"name": "Inbox"})
	require.Equal(t, http.StatusCreated, w.Code)
	var o model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))

	w = doJSON(t, router, http.MethodPost, "/v1/outlines/"+o.Key+"/notes",
		gin.H{"name": "call the plumber", "offset": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var n model.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	assert.NotEmpty(t, n.ID)

	w = doJSON(t, router, http.MethodGet, "/v1/notes/"+n.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/dwell", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["notes"], 1)
}

func TestRemindUnknownNote(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/notes/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveNoteRejectsUnknownDirection(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/notes/whatever/move",
		gin.H{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoveNoteUnknownNoteIsNoOp(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/notes/missing/move",
		gin.H{"direction": "up"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchFindsNotes(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"name": "Garden"})
	require.Equal(t, http.StatusCreated, w.Code)
	var o model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))

	w = doJSON(t, router, http.MethodPost, "/v1/outlines/"+o.Key+"/notes",
		gin.H{"name": "prune the apple tree", "offset": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/search?q=apple", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["count"])
}

func TestStateAndStatistics(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/mind/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "sleeping", body["phase"])
	assert.Equal(t, false, body["active"])

	w = doJSON(t, router, http.MethodGet, "/v1/mind/statistics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEditsDeniedWhileDreaming(t *testing.T) {
	router, m, engine := newTestRouterWithEngine(t,
		&stubEngine{gate: make(chan bool, 1), sleepOK: true})

	w := doJSON(t, router, http.MethodPost, "/v1/mind/think", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "dreaming", m.Phase().String())

	w = doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"name": "Nope"})
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "denied", body["outcome"])

	engine.gate <- true
	require.Eventually(t, func() bool {
		return m.Phase().String() == "thinking"
	}, testWait, testTick)

	w = doJSON(t, router, http.MethodPost, "/v1/mind/sleep", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestThinkDeniedWhileDreaming(t *testing.T) {
	router, _, engine := newTestRouterWithEngine(t,
		&stubEngine{gate: make(chan bool, 1), sleepOK: true})

	w := doJSON(t, router, http.MethodPost, "/v1/mind/think", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/mind/think", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "denied", body["outcome"])
	assert.Equal(t, "not sleeping", body["reason"])

	engine.gate <- true
}

func TestThinkAcceptedWhenDreamFailsFast(t *testing.T) {
	router, m, _ := newTestRouterWithEngine(t,
		&stubEngine{dreamResult: false, sleepOK: true})

	// A fast engine failure is not a guard denial; the trigger still
	// reports accepted and the mind falls back to sleeping on its own.
	w := doJSON(t, router, http.MethodPost, "/v1/mind/think", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return m.Phase().String() == "sleeping"
	}, testWait, testTick)
}

func TestDreamOutlivesItsRequest(t *testing.T) {
	store, err := memory.OpenEphemeralStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "noetic.yaml"))
	require.NoError(t, err)

	mem := memory.New(store, nil)
	m := mind.New(mem, infer.NewLocal(mem, infer.LocalConfig{}, logging.Discard()),
		mind.Options{Config: cfg})
	router := NewRouter(m, Options{})

	w := doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"name": "Durable"})
	require.Equal(t, http.StatusCreated, w.Code)
	var o model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	w = doJSON(t, router, http.MethodPost, "/v1/outlines/"+o.Key+"/notes",
		gin.H{"name": "the quick brown fox", "offset": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	// The request context dies once the handler returns; the dream runs
	// to completion regardless.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/mind/think", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return m.Phase().String() == "thinking"
	}, testWait, testTick)
}

func TestForgetOutlineReturnsLimboKey(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/outlines", gin.H{"name": "Doomed"})
	require.Equal(t, http.StatusCreated, w.Code)
	var o model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))

	w = doJSON(t, router, http.MethodDelete, "/v1/outlines/"+o.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["limbo_key"])

	w = doJSON(t, router, http.MethodGet, "/v1/outlines/"+o.Key, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTagEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/outlines",
		gin.H{"name": "Tagged", "tags": []string{"home"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var o model.Outline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))

	w = doJSON(t, router, http.MethodPost, "/v1/outlines/"+o.Key+"/notes",
		gin.H{"name": "fix the fence", "offset": 1, "tags": []string{"home"}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/tags/home/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["notes"], 1)

	w = doJSON(t, router, http.MethodGet, "/v1/tags/home/cardinality", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["outlines"])
	assert.EqualValues(t, 1, body["notes"])
}

func TestRateLimitTrips(t *testing.T) {
	store, err := memory.OpenEphemeralStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "noetic.yaml"))
	require.NoError(t, err)

	m := mind.New(memory.New(store, nil), &stubEngine{sleepOK: true}, mind.Options{Config: cfg})
	router := NewRouter(m, Options{RateLimit: 1, Burst: 1})

	first := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
