// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package activity records orchestration history in InfluxDB.
//
// # Description
//
// Each orchestration operation writes one mind_activity point carrying
// the operation name, its outcome, and its duration. The recorder is
// optional: a nil *Recorder is valid and every method on it no-ops, so
// callers never guard their call sites.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Measurement is the InfluxDB measurement name for activity points.
const Measurement = "mind_activity"

// Entry is one recorded operation returned by Recent.
type Entry struct {
	Time      time.Time     `json:"time"`
	Operation string        `json:"operation"`
	Result    string        `json:"result"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Config locates the InfluxDB instance.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Enabled reports whether the configuration names a usable instance.
func (c Config) Enabled() bool {
	return c.URL != "" && c.Token != "" && c.Org != "" && c.Bucket != ""
}

// Recorder writes activity points through the blocking write API.
//
// Thread Safety: safe for concurrent use.
type Recorder struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	logger *slog.Logger
}

// NewRecorder builds a recorder, or nil when the configuration leaves
// activity history disabled.
func NewRecorder(cfg Config, logger *slog.Logger) *Recorder {
	if !cfg.Enabled() {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Recorder{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:  client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
		logger: logger.With(slog.String("component", "activity")),
	}
}

// Record writes one activity point. Write failures are logged, never
// propagated: history is best-effort and must not fail an operation.
func (r *Recorder) Record(ctx context.Context, operation, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	point := influxdb2.NewPoint(
		Measurement,
		map[string]string{"operation": operation, "result": result},
		map[string]interface{}{"duration_ms": float64(elapsed) / float64(time.Millisecond)},
		time.Now(),
	)
	if err := r.write.WritePoint(ctx, point); err != nil {
		r.logger.Warn("activity write failed",
			slog.String("operation", operation), slog.String("error", err.Error()))
	}
}

// Recent returns the activity recorded inside the window, newest first.
func (r *Recorder) Recent(ctx context.Context, window time.Duration) ([]Entry, error) {
	if r == nil {
		return []Entry{}, nil
	}

	flux := fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: -%s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r._field == "duration_ms")
		  |> sort(columns: ["_time"], desc: true)
	`, r.bucket, window.String(), Measurement)

	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("activity query failed: %w", err)
	}

	entries := make([]Entry, 0)
	for result.Next() {
		record := result.Record()
		entry := Entry{Time: record.Time()}
		if op, ok := record.ValueByKey("operation").(string); ok {
			entry.Operation = op
		}
		if res, ok := record.ValueByKey("result").(string); ok {
			entry.Result = res
		}
		if ms, ok := record.Value().(float64); ok {
			entry.Elapsed = time.Duration(ms * float64(time.Millisecond))
		}
		entries = append(entries, entry)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("reading activity results: %w", result.Err())
	}
	return entries, nil
}

// Close releases the underlying client.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.client.Close()
}
