// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state models the mind's concurrency protocol as a register and a
// pure transition function.
//
// # Description
//
// The register holds the current phase (SLEEPING, DREAMING, THINKING) and
// the count of in-flight foreground operations. Every protocol decision is
// a pure function of (register, request): no mutexes, no goroutines, no
// side effects. The orchestrator applies transitions under its own guard;
// the table itself is testable without any real concurrency.
//
// # Protocol
//
//   - Learn requires phase != DREAMING and zero active operations; the phase
//     is unchanged by a completed learn.
//   - Think requires phase == SLEEPING and moves to DREAMING. The inference
//     collaborator later reports DreamFinished (-> THINKING) or DreamFailed
//     (-> SLEEPING).
//   - Sleep and Amnesia require phase != DREAMING and zero active
//     operations; both land in SLEEPING.
//   - BeginOperation is refused while DREAMING; structural mutation never
//     overlaps the inference pass.
//
// DREAMING has no cancel path. The only exits are the collaborator's
// completion signals.
package state

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/noetic/services/mind/outcome"
)

// Phase is the mind's tri-state lifecycle phase.
type Phase int

const (
	// Sleeping is the initial phase: no inference is running or prepared.
	Sleeping Phase = iota

	// Dreaming means the asynchronous inference pass is running; structural
	// mutation is forbidden and the phase cannot be cancelled.
	Dreaming

	// Thinking means a completed inference pass is live and associations are
	// being served.
	Thinking
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case Sleeping:
		return "sleeping"
	case Dreaming:
		return "dreaming"
	case Thinking:
		return "thinking"
	default:
		return "unknown"
	}
}

// ParsePhase converts a persisted phase string back to a Phase.
// Matching is case-insensitive. Unknown strings are an error.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sleeping":
		return Sleeping, nil
	case "dreaming":
		return Dreaming, nil
	case "thinking":
		return Thinking, nil
	default:
		return Sleeping, fmt.Errorf("unknown mind phase: %q", s)
	}
}

// Request enumerates the protocol requests the register answers.
type Request int

const (
	// Learn asks to discard the in-memory graph and reload it from the
	// persistent store.
	Learn Request = iota

	// Think asks to start the asynchronous inference pass.
	Think

	// Sleep asks to stop serving associations and drop derived caches.
	Sleep

	// Amnesia asks to discard all learned data entirely.
	Amnesia

	// BeginOperation registers an in-flight foreground structural operation.
	BeginOperation

	// EndOperation releases a foreground structural operation.
	EndOperation

	// DreamFinished is the collaborator's success signal.
	DreamFinished

	// DreamFailed is the collaborator's failure signal.
	DreamFailed
)

// String returns the string representation of the request.
func (r Request) String() string {
	switch r {
	case Learn:
		return "learn"
	case Think:
		return "think"
	case Sleep:
		return "sleep"
	case Amnesia:
		return "amnesia"
	case BeginOperation:
		return "begin-operation"
	case EndOperation:
		return "end-operation"
	case DreamFinished:
		return "dream-finished"
	case DreamFailed:
		return "dream-failed"
	default:
		return "unknown"
	}
}

// Register is the explicit protocol state: phase crossed with the number of
// in-flight foreground operations.
//
// The zero value is the initial state: SLEEPING with no active operations.
type Register struct {
	Phase     Phase
	ActiveOps int
}

// Idle reports whether no foreground operation is in flight.
func (r Register) Idle() bool {
	return r.ActiveOps == 0
}

// String renders the register for logs.
func (r Register) String() string {
	return fmt.Sprintf("%s/%d", r.Phase, r.ActiveOps)
}

// Step is the pure transition function.
//
// # Description
//
// Applies one request to the register and returns the next register together
// with the outcome the caller must surface. A denied or faulted outcome
// always returns the register unchanged.
//
// # Inputs
//
//   - reg: Current register value.
//   - req: Requested transition.
//
// # Outputs
//
//   - Register: Next register value (unchanged unless accepted).
//   - outcome.Outcome: Accepted, denied with a reason, or faulted on
//     protocol misuse.
func Step(reg Register, req Request) (Register, outcome.Outcome) {
	switch req {
	case Learn:
		if o := refuseBusy(reg); !o.Accepted() {
			return reg, o
		}
		return reg, outcome.OK()

	case Think:
		if reg.Phase != Sleeping {
			return reg, outcome.Denied(outcome.ReasonNotSleeping,
				fmt.Sprintf("thinking starts from sleeping, current phase is %s", reg.Phase))
		}
		reg.Phase = Dreaming
		return reg, outcome.OK()

	case Sleep, Amnesia:
		if o := refuseBusy(reg); !o.Accepted() {
			return reg, o
		}
		reg.Phase = Sleeping
		return reg, outcome.OK()

	case BeginOperation:
		if reg.Phase == Dreaming {
			return reg, outcome.Denied(outcome.ReasonDreaming,
				"structural operations are forbidden while dreaming")
		}
		reg.ActiveOps++
		return reg, outcome.OK()

	case EndOperation:
		if reg.ActiveOps > 0 {
			reg.ActiveOps--
		}
		return reg, outcome.OK()

	case DreamFinished:
		if reg.Phase != Dreaming {
			return reg, outcome.Faulted(outcome.FaultInvalidArgument,
				fmt.Sprintf("dream completion signalled while %s", reg.Phase))
		}
		reg.Phase = Thinking
		return reg, outcome.OK()

	case DreamFailed:
		if reg.Phase != Dreaming {
			return reg, outcome.Faulted(outcome.FaultInvalidArgument,
				fmt.Sprintf("dream failure signalled while %s", reg.Phase))
		}
		reg.Phase = Sleeping
		return reg, outcome.OK()

	default:
		return reg, outcome.Faulted(outcome.FaultInvalidArgument,
			fmt.Sprintf("unknown request %d", req))
	}
}

// refuseBusy returns the denial shared by learn/sleep/amnesia: both the
// dreaming phase and in-flight foreground operations block the request.
func refuseBusy(reg Register) outcome.Outcome {
	if reg.Phase == Dreaming {
		return outcome.Denied(outcome.ReasonDreaming,
			"the inference pass cannot be interrupted")
	}
	if reg.ActiveOps > 0 {
		return outcome.Denied(outcome.ReasonActiveOperations,
			fmt.Sprintf("%d foreground operation(s) in flight", reg.ActiveOps))
	}
	return outcome.OK()
}
