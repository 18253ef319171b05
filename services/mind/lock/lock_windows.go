// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package lock

import (
	"os"

	"golang.org/x/sys/windows"
)

// windowsLocker implements fileLocker using LockFileEx.
//
// # Description
//
// Locks one byte at offset zero with LOCKFILE_FAIL_IMMEDIATELY so
// acquisition stays non-blocking, mirroring the Unix flock behavior.
type windowsLocker struct{}

// Lock acquires an exclusive lock using LockFileEx.
func (windowsLocker) Lock(f *os.File) error {
	err := windows.LockFileEx(windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, new(windows.Overlapped))
	if err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return ErrRepositoryLocked
		}
		return err
	}
	return nil
}

// Unlock releases the lock using UnlockFileEx.
func (windowsLocker) Unlock(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped))
}

// isProcessAlive checks process existence via OpenProcess and the
// STILL_ACTIVE exit code.
func isProcessAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == windows.STILL_ACTIVE
}

func newPlatformLocker() fileLocker {
	return windowsLocker{}
}
