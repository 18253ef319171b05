// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/noetic/services/mind/api"
	"github.com/AleutianAI/noetic/services/mind/config"
	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/telemetry"
)

const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, "serve")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	telShutdown, err := telemetry.Init(ctx, telemetryConfig(rt.cfg))
	if err != nil {
		fail(err)
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := telShutdown(shutCtx); err != nil {
			rt.logger.Warn("telemetry shutdown failed",
				slog.String("component", "serve"),
				slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(rt.mind, api.Options{
		RateLimit: rt.cfg.API.RateLimit,
		Burst:     rt.cfg.API.Burst,
		Logger:    rt.logger,
	})
	server := &http.Server{
		Addr:              rt.cfg.API.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var watcher *memory.Watcher
	if watchRepo {
		watcher, err = memory.NewWatcher(rt.cfg.Repository.Path, func() {
			if out, err := rt.mind.Learn(context.Background()); err != nil {
				rt.logger.Warn("relearn failed",
					slog.String("component", "serve"),
					slog.String("error", err.Error()))
			} else if _, denied := out.Denial(); denied {
				rt.logger.Info("relearn deferred, mind busy",
					slog.String("component", "serve"))
			}
		}, memory.DefaultWatcherOptions())
		if err != nil {
			fail(err)
		}
		watcher.Start()
		defer watcher.Stop()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		rt.logger.Info("api listening",
			slog.String("component", "serve"),
			slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	if err := group.Wait(); err != nil {
		fail(err)
	}
	rt.logger.Info("server stopped", slog.String("component", "serve"))
}

// telemetryConfig maps the repository configuration onto exporter
// selection, keeping the OTEL_* environment defaults for the rest.
func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := telemetry.DefaultConfig()
	switch cfg.Telemetry.Exporter {
	case "stdout":
		tc.TraceExporter = "stdout"
		tc.MetricExporter = "stdout"
	case "otlp":
		// Traces go to the collector; metrics stay on /metrics.
		tc.TraceExporter = "otlp"
		tc.MetricExporter = "prometheus"
		if cfg.Telemetry.Endpoint != "" {
			tc.OTLPEndpoint = cfg.Telemetry.Endpoint
		}
	case "prometheus":
		tc.TraceExporter = "none"
		tc.MetricExporter = "prometheus"
	case "none":
		tc.TraceExporter = "none"
		tc.MetricExporter = "none"
	}
	return tc
}
