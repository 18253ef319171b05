// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mind

import (
	"sync"
	"time"

	"github.com/AleutianAI/noetic/services/mind/edit"
	"github.com/AleutianAI/noetic/services/mind/state"
)

// EventType classifies a mind event.
type EventType string

const (
	// EventPhase announces a lifecycle phase transition.
	EventPhase EventType = "phase"

	// EventPatch announces a structural edit with its re-render patch.
	EventPatch EventType = "patch"

	// EventOutline announces an outline-level change (create, clone,
	// forget).
	EventOutline EventType = "outline"
)

// Event is one entry on the mind's event stream.
type Event struct {
	Type       EventType   `json:"type"`
	Phase      string      `json:"phase,omitempty"`
	Operation  string      `json:"operation,omitempty"`
	OutlineKey string      `json:"outline_key,omitempty"`
	NoteID     string      `json:"note_id,omitempty"`
	Patch      *edit.Patch `json:"patch,omitempty"`
	At         time.Time   `json:"at"`
}

// subscriberBuffer bounds each subscriber channel. A subscriber that
// falls this far behind starts losing events rather than blocking the
// mind.
const subscriberBuffer = 16

// Hub fans mind events out to subscribers.
//
// Thread Safety: safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// phaseEvent builds the event for a phase transition.
func phaseEvent(p state.Phase) Event {
	return Event{Type: EventPhase, Phase: p.String(), At: time.Now()}
}
