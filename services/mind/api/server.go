// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the mind over HTTP.
//
// # Description
//
// A gin engine with otelgin tracing, token-bucket rate limiting, and
// JSON endpoints wrapping the orchestration contracts. Protocol
// refusals map to 409, caller faults to 404/400, infrastructure errors
// to 500. The /ws/events endpoint streams mind events over a
// websocket.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/noetic/services/mind"
	"github.com/AleutianAI/noetic/services/mind/outcome"
	"github.com/AleutianAI/noetic/services/mind/telemetry"
)

// Options configures the HTTP surface.
type Options struct {
	// RateLimit is requests per second shared by all clients; Burst is
	// the bucket size. Zero disables limiting.
	RateLimit float64
	Burst     int

	Logger *slog.Logger
}

// Server binds the mind to HTTP handlers.
type Server struct {
	mind   *mind.Mind
	logger *slog.Logger
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(m *mind.Mind, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mind:   m,
		logger: logger.With(slog.String("component", "api")),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("noetic-api"))
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		router.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metricsHandler())
	router.GET("/ws/events", s.handleEvents)

	v1 := router.Group("/v1")
	{
		mindGroup := v1.Group("/mind")
		{
			mindGroup.POST("/learn", s.handleLearn)
			mindGroup.POST("/think", s.handleThink)
			mindGroup.POST("/sleep", s.handleSleep)
			mindGroup.POST("/amnesia", s.handleAmnesia)
			mindGroup.GET("/state", s.handleState)
			mindGroup.GET("/statistics", s.handleStatistics)
		}

		v1.GET("/search", s.handleSearch)
		v1.GET("/dwell", s.handleDwell)
		v1.GET("/triples", s.handleTriples)

		outlines := v1.Group("/outlines")
		{
			outlines.GET("", s.handleListOutlines)
			outlines.POST("", s.handleCreateOutline)
			outlines.GET("/:key", s.handleGetOutline)
			outlines.POST("/:key/clone", s.handleCloneOutline)
			outlines.DELETE("/:key", s.handleForgetOutline)
			outlines.POST("/:key/notes", s.handleCreateNote)
		}

		notes := v1.Group("/notes")
		{
			notes.GET("/:id", s.handleRemind)
			notes.DELETE("/:id", s.handleForgetNote)
			notes.POST("/:id/move", s.handleMoveNote)
			notes.POST("/:id/refactor", s.handleRefactorNote)
			notes.GET("/:id/associations", s.handleAssociations)
			notes.GET("/:id/referenced", s.handleReferenced)
		}

		tags := v1.Group("/tags")
		{
			tags.GET("/:tag/notes", s.handleTaggedNotes)
			tags.GET("/:tag/cardinality", s.handleTagCardinality)
		}
	}

	return router
}

// rateLimitMiddleware rejects requests once the shared bucket is empty.
func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// metricsHandler prefers the telemetry exporter's handler and falls
// back to the default prometheus registry.
func metricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := telemetry.MetricsHandler()
		if h == nil {
			h = promhttp.Handler()
		}
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// respondOutcome maps a non-accepted outcome onto a status and body.
// Returns false when the outcome was accepted and no response was
// written.
func respondOutcome(c *gin.Context, out outcome.Outcome) bool {
	if out.Accepted() {
		return false
	}
	if denial, ok := out.Denial(); ok {
		c.JSON(http.StatusConflict, gin.H{
			"outcome": "denied",
			"reason":  denial.Reason.String(),
			"detail":  denial.Detail,
		})
		return true
	}
	fault, _ := out.Fault()
	status := http.StatusBadRequest
	switch fault.Kind {
	case outcome.FaultOutlineNotFound, outcome.FaultNoteNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{
		"outcome": "fault",
		"kind":    fault.Kind.String(),
		"detail":  fault.Detail,
	})
	return true
}

// respondError writes a 500 for infrastructure failures.
func (s *Server) respondError(c *gin.Context, err error) {
	s.logger.Error("request failed",
		slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
