// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"errors"
	"fmt"
)

// Sentinel errors for repository lock operations.
var (
	// ErrRepositoryLocked indicates the repository is held by another live process.
	ErrRepositoryLocked = errors.New("repository is locked by another process")

	// ErrNotHeld indicates an attempt to release or refresh a lock this
	// process does not hold.
	ErrNotHeld = errors.New("repository lock not held by this process")
)

// HeldError provides detailed information about a lock conflict.
//
// # Description
//
// Wraps ErrRepositoryLocked with information about the current holder,
// letting the caller decide how to proceed (wait, abort, report).
//
// # Fields
//
//   - Dir: The repository directory that is locked.
//   - Holder: Information about the current holder (nil if unreadable).
//   - Err: The underlying error (typically ErrRepositoryLocked).
type HeldError struct {
	Dir    string
	Holder *Info
	Err    error
}

// Error returns a human-readable error message.
func (e *HeldError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("repository %s is locked by PID %d (session %s) since %s: %v",
			e.Dir, e.Holder.PID, e.Holder.SessionID,
			e.Holder.AcquiredAt.Format("15:04:05"), e.Err)
	}
	return fmt.Sprintf("repository %s is locked: %v", e.Dir, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HeldError) Unwrap() error {
	return e.Err
}
