// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the process-wide OpenTelemetry providers.
//
// # Description
//
// Init installs a TracerProvider and MeterProvider selected by Config;
// from then on otel.Tracer and otel.Meter resolve against them anywhere
// in the process. The Prometheus path registers against the default
// registry, so the promauto counters the packages declare and the otel
// instruments end up behind the same /metrics handler. Tracer names
// follow the noetic.<package> convention via Tracer.
//
// # Thread Safety
//
// Init is called once at startup; MetricsHandler is safe afterwards.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Errors returned by Init.
var (
	ErrNilContext      = errors.New("telemetry: nil context")
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// defaultMetricInterval paces the stdout periodic reader when the
// configuration leaves MetricInterval zero.
const defaultMetricInterval = 30 * time.Second

// Config selects exporters and shapes the service identity attached to
// every span and metric.
type Config struct {
	// ServiceName becomes the service.name resource attribute.
	ServiceName string

	// ServiceVersion becomes service.version.
	ServiceVersion string

	// Environment becomes deployment.environment.
	Environment string

	// TraceExporter is "otlp", "stdout", or "none".
	TraceExporter string

	// MetricExporter is "prometheus", "stdout", or "none".
	MetricExporter string

	// OTLPEndpoint is the collector address for the otlp trace path.
	OTLPEndpoint string

	// OTLPInsecure dials the collector without TLS.
	OTLPInsecure bool

	// SampleRatio is the fraction of root traces kept, (0, 1]. Zero or
	// anything above 1 samples everything.
	SampleRatio float64

	// MetricInterval paces the stdout metric reader. Zero uses the
	// package default; the prometheus path is pull-based and ignores it.
	MetricInterval time.Duration
}

// DefaultConfig returns the development shape: no traces, prometheus
// metrics, full sampling. The standard OTEL_* variables and NOETIC_ENV
// override the corresponding fields.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "noetic",
		ServiceVersion: "1.0.0",
		Environment:    envOr("NOETIC_ENV", "development"),
		TraceExporter:  envOr("OTEL_TRACES_EXPORTER", "none"),
		MetricExporter: envOr("OTEL_METRICS_EXPORTER", "prometheus"),
		OTLPEndpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Tracer returns the tracer for a package, named noetic.<pkg>.
func Tracer(pkg string) oteltrace.Tracer {
	return otel.Tracer("noetic." + pkg)
}

// Init installs the configured providers and returns the shutdown
// function the caller must run on exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("shutdown errors: %v", errs)
		}
		return nil
	}

	res := identity(cfg)

	if cfg.TraceExporter != "none" {
		tp, err := initTracer(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricExporter != "none" {
		mp, err := initMeter(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	return shutdown, nil
}

// identity builds the resource shared by both providers.
func identity(cfg Config) *resource.Resource {
	return resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

// sampler maps the configured ratio onto a parent-based sampler so a
// sampled upstream request is never half-recorded here.
func sampler(ratio float64) trace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}

// initTracer creates the TracerProvider. The OTLP path dials the
// collector explicitly so connection failures surface here rather than
// on the first export.
func initTracer(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	var exporter trace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "otlp":
		dialOpts := []grpc.DialOption{}
		if cfg.OTLPInsecure {
			dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		}
		conn, dialErr := grpc.NewClient(cfg.OTLPEndpoint, dialOpts...)
		if dialErr != nil {
			return nil, fmt.Errorf("dial collector: %w", dialErr)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))

	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg.SampleRatio)),
	), nil
}

var (
	promHandler   http.Handler
	promHandlerMu sync.RWMutex
)

// MetricsHandler returns the /metrics handler when the Prometheus
// exporter is enabled, nil otherwise.
func MetricsHandler() http.Handler {
	promHandlerMu.RLock()
	defer promHandlerMu.RUnlock()
	return promHandler
}

// initMeter creates the MeterProvider.
func initMeter(cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		// The exporter joins the default prometheus registry, so one
		// promhttp handler serves the promauto counters too.
		promHandlerMu.Lock()
		promHandler = promhttp.Handler()
		promHandlerMu.Unlock()

		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		), nil

	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = defaultMetricInterval
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter,
				metric.WithInterval(interval))),
		), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
