// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package future provides the single-assignment handle the mind returns for
// long-running work.
//
// # Description
//
// A Result starts unresolved and is resolved exactly once by the producer.
// Consumers either block on Await (context-aware), select on Done, or poll
// with Peek. Resolution is a value, never an error: protocol refusals are
// expressed in the resolved value itself (a false bool, an empty slice), so
// abandoning an Await never cancels the underlying work.
//
// # Thread Safety
//
// Safe for concurrent use by any number of producers and consumers; the
// first Resolve wins and later calls are no-ops.
package future

import (
	"context"
	"sync"
)

// Result is a single-assignment future.
type Result[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
	ready bool
}

// New returns an unresolved Result.
func New[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// Resolved returns a Result that is already resolved to v.
//
// Used for guard refusals that must hand the caller a handle which
// immediately reads as failed.
func Resolved[T any](v T) *Result[T] {
	r := New[T]()
	r.Resolve(v)
	return r
}

// Resolve sets the value and wakes all waiters. The first call wins;
// subsequent calls are no-ops. Reports whether this call performed the
// resolution.
func (r *Result[T]) Resolve(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return false
	}
	r.value = v
	r.ready = true
	close(r.done)
	return true
}

// Done returns a channel that is closed once the Result is resolved.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Await blocks until the Result is resolved or the context ends.
//
// # Outputs
//
//   - T: The resolved value (zero value on context error).
//   - error: The context error if the wait was abandoned; nil otherwise.
//
// Abandoning the wait does not stop the producer.
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the resolved value without blocking. The second return is
// false while the Result is unresolved.
func (r *Result[T]) Peek() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		var zero T
		return zero, false
	}
	return r.value, true
}
