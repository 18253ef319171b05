// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/noetic/services/mind/outcome"
)

func TestZeroRegisterIsSleepingAndIdle(t *testing.T) {
	var reg Register
	assert.Equal(t, Sleeping, reg.Phase)
	assert.True(t, reg.Idle())
	assert.Equal(t, "sleeping/0", reg.String())
}

func TestStepTransitionTable(t *testing.T) {
	tests := []struct {
		name       string
		reg        Register
		req        Request
		wantReg    Register
		wantAccept bool
		wantReason outcome.DenialReason
	}{
		// Learn: phase never changes, guard refuses dreaming and active ops.
		{
			name:       "learn while sleeping",
			reg:        Register{Phase: Sleeping},
			req:        Learn,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},
		{
			name:       "learn while thinking keeps phase",
			reg:        Register{Phase: Thinking},
			req:        Learn,
			wantReg:    Register{Phase: Thinking},
			wantAccept: true,
		},
		{
			name:       "learn refused while dreaming",
			reg:        Register{Phase: Dreaming},
			req:        Learn,
			wantReg:    Register{Phase: Dreaming},
			wantReason: outcome.ReasonDreaming,
		},
		{
			name:       "learn refused with active operations",
			reg:        Register{Phase: Sleeping, ActiveOps: 2},
			req:        Learn,
			wantReg:    Register{Phase: Sleeping, ActiveOps: 2},
			wantReason: outcome.ReasonActiveOperations,
		},

		// Think: only from sleeping, lands in dreaming.
		{
			name:       "think from sleeping",
			reg:        Register{Phase: Sleeping},
			req:        Think,
			wantReg:    Register{Phase: Dreaming},
			wantAccept: true,
		},
		{
			name:       "think from thinking refused",
			reg:        Register{Phase: Thinking},
			req:        Think,
			wantReg:    Register{Phase: Thinking},
			wantReason: outcome.ReasonNotSleeping,
		},
		{
			name:       "think from dreaming refused",
			reg:        Register{Phase: Dreaming},
			req:        Think,
			wantReg:    Register{Phase: Dreaming},
			wantReason: outcome.ReasonNotSleeping,
		},

		// Sleep: refuses dreaming and active ops, otherwise lands sleeping.
		{
			name:       "sleep from thinking",
			reg:        Register{Phase: Thinking},
			req:        Sleep,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},
		{
			name:       "sleep from sleeping stays sleeping",
			reg:        Register{Phase: Sleeping},
			req:        Sleep,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},
		{
			name:       "sleep refused while dreaming",
			reg:        Register{Phase: Dreaming},
			req:        Sleep,
			wantReg:    Register{Phase: Dreaming},
			wantReason: outcome.ReasonDreaming,
		},
		{
			name:       "sleep refused with active operations",
			reg:        Register{Phase: Thinking, ActiveOps: 1},
			req:        Sleep,
			wantReg:    Register{Phase: Thinking, ActiveOps: 1},
			wantReason: outcome.ReasonActiveOperations,
		},

		// Amnesia mirrors sleep.
		{
			name:       "amnesia from thinking",
			reg:        Register{Phase: Thinking},
			req:        Amnesia,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},
		{
			name:       "amnesia refused while dreaming",
			reg:        Register{Phase: Dreaming},
			req:        Amnesia,
			wantReg:    Register{Phase: Dreaming},
			wantReason: outcome.ReasonDreaming,
		},

		// Foreground operation bracketing.
		{
			name:       "begin operation while sleeping",
			reg:        Register{Phase: Sleeping},
			req:        BeginOperation,
			wantReg:    Register{Phase: Sleeping, ActiveOps: 1},
			wantAccept: true,
		},
		{
			name:       "begin operation while thinking",
			reg:        Register{Phase: Thinking, ActiveOps: 1},
			req:        BeginOperation,
			wantReg:    Register{Phase: Thinking, ActiveOps: 2},
			wantAccept: true,
		},
		{
			name:       "begin operation refused while dreaming",
			reg:        Register{Phase: Dreaming},
			req:        BeginOperation,
			wantReg:    Register{Phase: Dreaming},
			wantReason: outcome.ReasonDreaming,
		},
		{
			name:       "end operation decrements",
			reg:        Register{Phase: Thinking, ActiveOps: 2},
			req:        EndOperation,
			wantReg:    Register{Phase: Thinking, ActiveOps: 1},
			wantAccept: true,
		},
		{
			name:       "end operation clamps at zero",
			reg:        Register{Phase: Sleeping},
			req:        EndOperation,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},

		// Collaborator completion signals.
		{
			name:       "dream finished moves to thinking",
			reg:        Register{Phase: Dreaming},
			req:        DreamFinished,
			wantReg:    Register{Phase: Thinking},
			wantAccept: true,
		},
		{
			name:       "dream failed moves back to sleeping",
			reg:        Register{Phase: Dreaming},
			req:        DreamFailed,
			wantReg:    Register{Phase: Sleeping},
			wantAccept: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, o := Step(tt.reg, tt.req)
			assert.Equal(t, tt.wantReg, got)
			if tt.wantAccept {
				assert.True(t, o.Accepted(), "outcome: %s", o)
				return
			}
			d, ok := o.Denial()
			require.True(t, ok, "expected a denial, got %s", o)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestStepDreamSignalsOutsideDreamingFault(t *testing.T) {
	for _, req := range []Request{DreamFinished, DreamFailed} {
		for _, phase := range []Phase{Sleeping, Thinking} {
			reg := Register{Phase: phase}
			got, o := Step(reg, req)
			assert.Equal(t, reg, got)
			f, ok := o.Fault()
			require.True(t, ok, "req %s from %s", req, phase)
			assert.Equal(t, outcome.FaultInvalidArgument, f.Kind)
		}
	}
}

// The register must never reach an undefined state no matter the sequence of
// requests thrown at it.
func TestStepNeverProducesUndefinedState(t *testing.T) {
	requests := []Request{
		Learn, Think, Sleep, Amnesia,
		BeginOperation, EndOperation, DreamFinished, DreamFailed,
	}

	reg := Register{}
	// Deterministic pseudo-random walk over the request alphabet.
	seed := 1
	for i := 0; i < 10_000; i++ {
		seed = (seed*31 + 17) % len(requests)
		reg, _ = Step(reg, requests[seed])

		assert.GreaterOrEqual(t, reg.ActiveOps, 0)
		assert.Contains(t, []Phase{Sleeping, Dreaming, Thinking}, reg.Phase)
	}
}

// Sleep and amnesia must fail while dreaming for every possible register
// shape that is dreaming.
func TestSleepAndAmnesiaAlwaysFailWhileDreaming(t *testing.T) {
	for ops := 0; ops < 3; ops++ {
		reg := Register{Phase: Dreaming, ActiveOps: ops}
		for _, req := range []Request{Sleep, Amnesia, Learn} {
			next, o := Step(reg, req)
			assert.Equal(t, reg, next)
			assert.False(t, o.Accepted(), "req %s with %d ops", req, ops)
		}
	}
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in      string
		want    Phase
		wantErr bool
	}{
		{"sleeping", Sleeping, false},
		{"SLEEPING", Sleeping, false},
		{" Thinking ", Thinking, false},
		{"dreaming", Dreaming, false},
		{"", Sleeping, true},
		{"dozing", Sleeping, true},
	}

	for _, tt := range tests {
		got, err := ParsePhase(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	for _, p := range []Phase{Sleeping, Dreaming, Thinking} {
		got, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestRequestStrings(t *testing.T) {
	assert.Equal(t, "learn", Learn.String())
	assert.Equal(t, "think", Think.String())
	assert.Equal(t, "sleep", Sleep.String())
	assert.Equal(t, "amnesia", Amnesia.String())
	assert.Equal(t, "begin-operation", BeginOperation.String())
	assert.Equal(t, "end-operation", EndOperation.String())
	assert.Equal(t, "dream-finished", DreamFinished.String())
	assert.Equal(t, "dream-failed", DreamFailed.String())
	assert.Equal(t, "unknown", Request(99).String())
}
