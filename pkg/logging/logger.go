// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the process-wide structured logger.
//
// # Description
//
// Every noetic component logs through a *slog.Logger produced here.
// Output goes to stderr so stdout stays clean for command results.
// When stderr is an interactive terminal the handler renders text;
// when it is redirected the handler switches to JSON so log shippers
// get one object per line. An optional file sink receives a JSON copy
// regardless of the terminal.
//
// # Basic Usage
//
//	logger, closer, err := logging.New(logging.Config{Level: "info"})
//	if err != nil { ... }
//	defer closer()
//	logger.Info("mind awake", slog.String("component", "cli"))
//
// # Thread Safety
//
// The returned logger is safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config controls handler selection. The zero value logs text or JSON
// to stderr at info level with no file sink.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// File, when set, receives a JSON copy of every record. Parent
	// directories are created as needed.
	File string

	// ForceJSON renders JSON even on a terminal. Used by serve mode
	// where the process is expected to run under a supervisor.
	ForceJSON bool
}

// ParseLevel maps a config string onto a slog level. Unknown strings
// are an error rather than a silent default.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger per cfg. The returned closer flushes and closes
// the file sink; it is never nil and is safe to call when no file was
// configured.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var sinks []io.Writer
	closer := func() error { return nil }

	if cfg.File != "" {
		path := expandHome(cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, f)
		closer = f.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch {
	case len(sinks) > 0 && !cfg.ForceJSON && isTerminal(os.Stderr):
		// Terminal gets text, the file gets JSON.
		handler = &teeHandler{
			text: slog.NewTextHandler(os.Stderr, opts),
			json: slog.NewJSONHandler(io.MultiWriter(sinks...), opts),
		}
	case len(sinks) > 0:
		handler = slog.NewJSONHandler(io.MultiWriter(append(sinks, os.Stderr)...), opts)
	case !cfg.ForceJSON && isTerminal(os.Stderr):
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), closer, nil
}

// Default returns a stderr-only logger at info level. It never fails.
func Default() *slog.Logger {
	logger, _, _ := New(Config{})
	return logger
}

// Discard returns a logger that drops everything. Tests use it to keep
// output quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// teeHandler sends each record to both the terminal text handler and
// the JSON file handler.
type teeHandler struct {
	text slog.Handler
	json slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level) || h.json.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	var first error
	if h.text.Enabled(ctx, rec.Level) {
		first = h.text.Handle(ctx, rec.Clone())
	}
	if h.json.Enabled(ctx, rec.Level) {
		if err := h.json.Handle(ctx, rec.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{text: h.text.WithAttrs(attrs), json: h.json.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{text: h.text.WithGroup(name), json: h.json.WithGroup(name)}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
