// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lock guards a noetic repository directory with an advisory file
// lock so only one process mutates it at a time. Unix uses flock(2),
// Windows uses LockFileEx. The lock file doubles as a JSON record of the
// holder for stale-lock detection and debugging.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the lock file created inside the repository directory.
const FileName = "repository.lock"

// DefaultTTL bounds how long a lock outlives its last refresh before other
// processes may treat it as stale.
const DefaultTTL = 12 * time.Hour

// Info records who holds a repository lock.
//
// # Description
//
// Serialized as JSON into the lock file itself. Used for stale-lock
// detection (PID liveness + TTL expiry) and for error messages when a
// second process finds the repository locked.
type Info struct {
	Dir        string    `json:"dir"`
	PID        int       `json:"pid"`
	SessionID  string    `json:"session_id"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Reason     string    `json:"reason"`
}

// IsExpired reports whether the lock has passed its TTL.
func (i *Info) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Config configures lock acquisition.
type Config struct {
	// SessionID identifies the acquiring session in the lock record.
	SessionID string
	// TTL is how long the lock stays valid without a Refresh.
	// Zero means DefaultTTL.
	TTL time.Duration
}

// DefaultConfig returns a Config with the default TTL.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Guard holds an acquired repository lock until released.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	dir    string
	path   string
	file   *os.File
	info   *Info
	locker fileLocker
}

// Acquire takes the exclusive lock on a repository directory.
//
// # Description
//
// Non-blocking: returns immediately if another live process holds the
// lock. A lock record left behind by a dead process, or one past its TTL,
// is treated as stale and taken over.
//
// # Inputs
//
//   - dir: Repository directory (created if absent).
//   - reason: Human-readable reason recorded in the lock file.
//   - cfg: Session ID and TTL. Use DefaultConfig() for defaults.
//
// # Outputs
//
//   - *Guard: Held lock; callers must Release it.
//   - error: *HeldError wrapping ErrRepositoryLocked on conflict.
func Acquire(dir, reason string, cfg Config) (*Guard, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving repository dir %s: %w", dir, err)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating repository dir %s: %w", abs, err)
	}

	path := filepath.Join(abs, FileName)

	// A readable record from a live, unexpired holder refuses the acquire
	// before we touch the flock. Stale records are simply overwritten once
	// we hold the flock below.
	if holder, err := readInfo(path); err == nil && holder != nil {
		if !holder.IsExpired() && IsProcessAlive(holder.PID) {
			return nil, &HeldError{Dir: abs, Holder: holder, Err: ErrRepositoryLocked}
		}
		slog.Info("Taking over stale repository lock",
			"dir", abs,
			"old_pid", holder.PID,
			"expired", holder.IsExpired())
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	locker := newPlatformLocker()
	if err := locker.Lock(f); err != nil {
		f.Close()
		if errors.Is(err, ErrRepositoryLocked) {
			holder, _ := readInfo(path)
			return nil, &HeldError{Dir: abs, Holder: holder, Err: ErrRepositoryLocked}
		}
		return nil, fmt.Errorf("locking repository %s: %w", abs, err)
	}

	now := time.Now()
	host, _ := os.Hostname()
	info := &Info{
		Dir:        abs,
		PID:        os.Getpid(),
		SessionID:  cfg.SessionID,
		Hostname:   host,
		AcquiredAt: now,
		ExpiresAt:  now.Add(cfg.TTL),
		Reason:     reason,
	}

	if err := writeInfo(f, info); err != nil {
		_ = locker.Unlock(f)
		f.Close()
		return nil, fmt.Errorf("writing lock info: %w", err)
	}

	slog.Debug("Acquired repository lock",
		"dir", abs,
		"reason", reason,
		"expires_at", info.ExpiresAt.Format(time.RFC3339))

	return &Guard{
		dir:    abs,
		path:   path,
		file:   f,
		info:   info,
		locker: locker,
	}, nil
}

// Release gives up the lock and removes the lock file.
//
// # Outputs
//
//   - error: ErrNotHeld if already released, nil otherwise.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return ErrNotHeld
	}

	if err := g.locker.Unlock(g.file); err != nil {
		slog.Warn("Failed to unlock repository",
			"dir", g.dir,
			"error", err)
	}
	g.file.Close()
	g.file = nil

	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove lock file",
			"path", g.path,
			"error", err)
	}

	slog.Debug("Released repository lock", "dir", g.dir)
	return nil
}

// Refresh extends the lock's expiry by its original TTL.
//
// # Description
//
// Long-running operations (dreaming over a large repository) call this
// periodically so the lock never looks stale to other processes.
//
// # Inputs
//
//   - reason: Replaces the recorded reason when non-empty.
//
// # Outputs
//
//   - error: ErrNotHeld if the lock was released, write errors otherwise.
func (g *Guard) Refresh(reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return ErrNotHeld
	}

	ttl := g.info.ExpiresAt.Sub(g.info.AcquiredAt)
	g.info.ExpiresAt = time.Now().Add(ttl)
	if reason != "" {
		g.info.Reason = reason
	}
	return writeInfo(g.file, g.info)
}

// Dir returns the locked repository directory.
func (g *Guard) Dir() string {
	return g.dir
}

// Info returns a copy of the current lock record.
func (g *Guard) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.info
}

// Holder reports the live holder of a repository's lock, if any.
//
// # Description
//
// Reads the lock record without acquiring anything. Stale records (dead
// PID or expired TTL) report as unheld.
//
// # Outputs
//
//   - *Info: Holder record, nil when the repository is unheld.
//   - error: Non-nil only on read or decode failure.
func Holder(dir string) (*Info, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving repository dir %s: %w", dir, err)
	}

	info, err := readInfo(filepath.Join(abs, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info == nil || info.IsExpired() || !IsProcessAlive(info.PID) {
		return nil, nil
	}
	return info, nil
}

// IsProcessAlive checks if a process with the given PID is still running.
//
// # Description
//
// Used for stale lock detection. On Unix, uses kill -0.
// On Windows, uses OpenProcess + GetExitCodeProcess.
func IsProcessAlive(pid int) bool {
	return isProcessAlive(pid)
}

// fileLocker abstracts the platform-specific exclusive lock syscall.
type fileLocker interface {
	Lock(f *os.File) error
	Unlock(f *os.File) error
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func writeInfo(f *os.File, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
