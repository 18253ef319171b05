// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package lock

import (
	"os"
	"syscall"
)

// unixLocker implements fileLocker using flock(2).
//
// # Description
//
// Advisory locking: released on file close or process exit, so a crashed
// holder never wedges the repository. LOCK_NB keeps acquisition
// non-blocking.
type unixLocker struct{}

// Lock acquires an exclusive lock using LOCK_EX|LOCK_NB.
func (unixLocker) Lock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		if err == syscall.EWOULDBLOCK {
			return ErrRepositoryLocked
		}
		return err
	}
	return nil
}

// Unlock releases the lock using LOCK_UN.
func (unixLocker) Unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// isProcessAlive checks process existence with signal 0, which probes
// without delivering anything.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func newPlatformLocker() fileLocker {
	return unixLocker{}
}
