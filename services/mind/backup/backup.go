// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backup exports JSON snapshots of the graph, locally or to
// Google Cloud Storage.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
)

// objectPrefix is the GCS folder receiving snapshots.
const objectPrefix = "noetic"

// timestampLayout names snapshot files so they sort chronologically.
const timestampLayout = "20060102T150405Z"

// Snapshot is the exported document: every active and limbo outline,
// stamped with the store format version.
type Snapshot struct {
	FormatVersion string           `json:"format_version"`
	TakenAt       time.Time        `json:"taken_at"`
	Active        []*model.Outline `json:"active"`
	Limbo         []*model.Outline `json:"limbo"`
}

// Exporter builds and writes snapshots.
type Exporter struct {
	mem    *memory.Memory
	logger *slog.Logger
}

// NewExporter returns an exporter over the given memory.
func NewExporter(mem *memory.Memory, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		mem:    mem,
		logger: logger.With(slog.String("component", "backup")),
	}
}

// Snapshot captures the current graph.
func (e *Exporter) Snapshot() Snapshot {
	return Snapshot{
		FormatVersion: memory.FormatVersion,
		TakenAt:       time.Now().UTC(),
		Active:        e.mem.Outlines(),
		Limbo:         e.mem.LimboOutlines(),
	}
}

// WriteLocal writes a snapshot file into dir and returns its path.
func (e *Exporter) WriteLocal(dir string) (string, error) {
	snap := e.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	path := filepath.Join(dir, snapshotName(snap.TakenAt))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	e.logger.Info("snapshot written",
		slog.String("path", path),
		slog.Int("active", len(snap.Active)), slog.Int("limbo", len(snap.Limbo)))
	return path, nil
}

// WriteGCS uploads a snapshot to the bucket under noetic/<timestamp>.json
// and returns the object name.
func (e *Exporter) WriteGCS(ctx context.Context, client *GCSClient) (string, error) {
	snap := e.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	object := objectPrefix + "/" + snapshotName(snap.TakenAt)
	if err := client.UploadObject(ctx, object, data); err != nil {
		return "", err
	}

	e.logger.Info("snapshot uploaded",
		slog.String("bucket", client.BucketName), slog.String("object", object),
		slog.Int("active", len(snap.Active)), slog.Int("limbo", len(snap.Limbo)))
	return object, nil
}

// snapshotName returns the file name for a snapshot taken at t.
func snapshotName(t time.Time) string {
	return t.UTC().Format(timestampLayout) + ".json"
}
