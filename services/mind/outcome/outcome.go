// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package outcome defines the result type shared by the mind's guarded
// operations.
//
// # Description
//
// Every mutating operation resolves to one of three shapes:
//
//   - accepted: the operation ran to completion
//   - denied: the operation was refused by the concurrency protocol and may
//     be retried later (contention, not caller error)
//   - fault: the caller referenced something that does not exist or produced
//     an inconsistent structure (caller error, retrying will not help)
//
// Keeping denial and fault as distinct branches prevents callers from
// mistaking "try later" for "your input was wrong".
package outcome

import (
	"errors"
	"fmt"
)

// DenialReason classifies why the concurrency protocol refused an operation.
type DenialReason int

const (
	// ReasonUnspecified is the zero value and never set by the engine.
	ReasonUnspecified DenialReason = iota

	// ReasonDreaming means background inference is running and the operation
	// cannot proceed until it completes.
	ReasonDreaming

	// ReasonActiveOperations means foreground structural operations are in
	// flight and a reload/reset/sleep would pull the graph out from under
	// them.
	ReasonActiveOperations

	// ReasonNotSleeping means the operation requires the mind to start from
	// the SLEEPING phase.
	ReasonNotSleeping

	// ReasonCollaboratorBusy means the inference collaborator refused to
	// release its resources (outstanding handles).
	ReasonCollaboratorBusy
)

// String returns the string representation of the reason.
func (r DenialReason) String() string {
	switch r {
	case ReasonDreaming:
		return "dreaming"
	case ReasonActiveOperations:
		return "active operations"
	case ReasonNotSleeping:
		return "not sleeping"
	case ReasonCollaboratorBusy:
		return "collaborator busy"
	default:
		return "unspecified"
	}
}

// FaultKind classifies caller errors on required targets.
type FaultKind int

const (
	// FaultUnspecified is the zero value and never set by the engine.
	FaultUnspecified FaultKind = iota

	// FaultOutlineNotFound means the referenced outline key is absent from
	// active memory.
	FaultOutlineNotFound

	// FaultNoteNotFound means the referenced note ID has no resolvable owner.
	FaultNoteNotFound

	// FaultInvalidArgument means a required argument was empty or out of
	// range.
	FaultInvalidArgument

	// FaultCorruptStructure means a structural edit left an outline violating
	// the depth-consistency invariant.
	FaultCorruptStructure
)

// String returns the string representation of the kind.
func (k FaultKind) String() string {
	switch k {
	case FaultOutlineNotFound:
		return "outline not found"
	case FaultNoteNotFound:
		return "note not found"
	case FaultInvalidArgument:
		return "invalid argument"
	case FaultCorruptStructure:
		return "corrupt structure"
	default:
		return "unspecified"
	}
}

// Sentinel errors for bridging outcomes into the error world.
// Use errors.Is against Err() results.
var (
	ErrDenied = errors.New("operation denied")
	ErrFault  = errors.New("operation fault")
)

// Denial carries the refusal branch of an outcome.
type Denial struct {
	Reason DenialReason
	Detail string
}

// Fault carries the caller-error branch of an outcome.
type Fault struct {
	Kind   FaultKind
	Detail string
}

// Outcome is the two-variant result of a guarded operation.
//
// The zero value is accepted. Construct refusals with Denied and caller
// errors with Faulted; inspect with Accepted, Denial, and Fault.
type Outcome struct {
	denial *Denial
	fault  *Fault
}

// OK returns an accepted outcome.
func OK() Outcome {
	return Outcome{}
}

// Denied returns a refusal outcome with the given reason.
func Denied(reason DenialReason, detail string) Outcome {
	return Outcome{denial: &Denial{Reason: reason, Detail: detail}}
}

// Faulted returns a caller-error outcome with the given kind.
func Faulted(kind FaultKind, detail string) Outcome {
	return Outcome{fault: &Fault{Kind: kind, Detail: detail}}
}

// Accepted reports whether the operation ran to completion.
func (o Outcome) Accepted() bool {
	return o.denial == nil && o.fault == nil
}

// Denial returns the refusal branch, if any.
func (o Outcome) Denial() (Denial, bool) {
	if o.denial == nil {
		return Denial{}, false
	}
	return *o.denial, true
}

// Fault returns the caller-error branch, if any.
func (o Outcome) Fault() (Fault, bool) {
	if o.fault == nil {
		return Fault{}, false
	}
	return *o.fault, true
}

// Err bridges the outcome into an error. Accepted outcomes return nil;
// refusals wrap ErrDenied and caller errors wrap ErrFault so callers can
// dispatch with errors.Is.
func (o Outcome) Err() error {
	switch {
	case o.denial != nil:
		if o.denial.Detail == "" {
			return fmt.Errorf("%w: %s", ErrDenied, o.denial.Reason)
		}
		return fmt.Errorf("%w: %s: %s", ErrDenied, o.denial.Reason, o.denial.Detail)
	case o.fault != nil:
		if o.fault.Detail == "" {
			return fmt.Errorf("%w: %s", ErrFault, o.fault.Kind)
		}
		return fmt.Errorf("%w: %s: %s", ErrFault, o.fault.Kind, o.fault.Detail)
	default:
		return nil
	}
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch {
	case o.denial != nil:
		return fmt.Sprintf("denied(%s)", o.denial.Reason)
	case o.fault != nil:
		return fmt.Sprintf("fault(%s)", o.fault.Kind)
	default:
		return "accepted"
	}
}

// Label returns a low-cardinality tag for metrics.
func (o Outcome) Label() string {
	switch {
	case o.denial != nil:
		return "denied"
	case o.fault != nil:
		return "fault"
	default:
		return "accepted"
	}
}
