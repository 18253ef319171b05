// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// RelearnHandler is called when debounced repository changes warrant a
// reload.
type RelearnHandler func()

// WatcherOptions configures the repository watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for further events before
	// triggering. Default: 500ms.
	DebounceWindow time.Duration

	// MinRelearnInterval is the floor between two triggered relearns.
	// Bursts past the debounce window are rate-limited away.
	// Default: 5s.
	MinRelearnInterval time.Duration

	// Logger receives watcher diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the defaults described above.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow:     500 * time.Millisecond,
		MinRelearnInterval: 5 * time.Second,
	}
}

// Watcher observes a repository directory and triggers a relearn handler
// when its contents change.
//
// # Description
//
// Events from fsnotify are debounced so a burst of writes (BadgerDB
// compactions touch many files) collapses into one trigger, and triggers
// themselves are rate-limited with a token bucket so a hostile or broken
// neighbor process cannot force reload loops.
//
// # Thread Safety
//
// Safe for concurrent use. The handler runs on the watcher goroutine; it
// must not block for long.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	handler  RelearnHandler
	debounce time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWatcher builds a watcher over the repository directory. Call Start
// to begin watching and Stop to shut down.
func NewWatcher(dir string, handler RelearnHandler, opts WatcherOptions) (*Watcher, error) {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultWatcherOptions().DebounceWindow
	}
	if opts.MinRelearnInterval <= 0 {
		opts.MinRelearnInterval = DefaultWatcherOptions().MinRelearnInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		limiter:  rate.NewLimiter(rate.Every(opts.MinRelearnInterval), 1),
		logger:   opts.Logger.With(slog.String("component", "repository-watcher")),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop shuts the watcher down and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
		<-w.stopped
	})
}

func (w *Watcher) run() {
	defer close(w.stopped)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			if !w.limiter.Allow() {
				w.logger.Debug("relearn trigger rate-limited",
					slog.String("dir", w.dir))
				continue
			}
			w.logger.Info("repository changed, triggering relearn",
				slog.String("dir", w.dir))
			w.handler()
		}
	}
}
