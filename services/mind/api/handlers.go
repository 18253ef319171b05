// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/noetic/services/mind/edit"
	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/search"
)

// CreateOutlineRequest is the body for POST /v1/outlines.
type CreateOutlineRequest struct {
	Name       string   `json:"name" binding:"required"`
	Type       string   `json:"type" binding:"omitempty,oneof=outline notebook journal"`
	Importance int      `json:"importance" binding:"gte=0"`
	Urgency    int      `json:"urgency" binding:"gte=0"`
	Progress   int      `json:"progress" binding:"gte=0,lte=100"`
	Tags       []string `json:"tags"`
	Preamble   []string `json:"preamble"`
}

// CreateNoteRequest is the body for POST /v1/outlines/:key/notes.
type CreateNoteRequest struct {
	Name     string   `json:"name" binding:"required"`
	Type     string   `json:"type"`
	Offset   int      `json:"offset" binding:"gte=0"`
	Depth    int      `json:"depth" binding:"gte=0"`
	Tags     []string `json:"tags"`
	Progress int      `json:"progress" binding:"gte=0,lte=100"`
}

// MoveNoteRequest is the body for POST /v1/notes/:id/move.
type MoveNoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down first last promote demote"`
}

// RefactorNoteRequest is the body for POST /v1/notes/:id/refactor.
type RefactorNoteRequest struct {
	TargetKey      string `json:"target_key" binding:"required"`
	TargetParentID string `json:"target_parent_id"`
}

func (s *Server) handleLearn(c *gin.Context) {
	out, err := s.mind.Learn(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": "accepted", "statistics": s.mind.Statistics()})
}

func (s *Server) handleThink(c *gin.Context) {
	// The handle is deliberately abandoned: the dream outlives the
	// request and its completion is observable through /state and the
	// event stream.
	_, out := s.mind.Think(c.Request.Context())
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"outcome": "accepted",
		"phase":   s.mind.Phase().String(),
	})
}

func (s *Server) handleSleep(c *gin.Context) {
	out, err := s.mind.Sleep(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": "accepted", "phase": s.mind.Phase().String()})
}

func (s *Server) handleAmnesia(c *gin.Context) {
	out, err := s.mind.Amnesia(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": "accepted"})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"phase":  s.mind.Phase().String(),
		"active": s.mind.IsActive(),
	})
}

func (s *Server) handleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, s.mind.Statistics())
}

func (s *Server) handleSearch(c *gin.Context) {
	pattern := c.Query("q")
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	opts := search.Options{
		CaseSensitive: c.Query("case_sensitive") == "true",
		Scope:         c.Query("scope"),
	}
	notes, err := s.mind.FullText(c.Request.Context(), pattern, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes, "count": len(notes)})
}

func (s *Server) handleDwell(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": s.mind.DwellList()})
}

func (s *Server) handleTriples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"triples": s.mind.Triples()})
}

func (s *Server) handleListOutlines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"names": s.mind.OutlineNames()})
}

func (s *Server) handleGetOutline(c *gin.Context) {
	o, ok := s.mind.Memory().Outline(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "outline not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleCreateOutline(c *gin.Context) {
	var req CreateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, out, err := s.mind.CreateOutline(c.Request.Context(), edit.CreateOutlineParams{
		Name:       req.Name,
		Type:       model.OutlineType(req.Type),
		Importance: req.Importance,
		Urgency:    req.Urgency,
		Progress:   req.Progress,
		Tags:       req.Tags,
		Preamble:   req.Preamble,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleCloneOutline(c *gin.Context) {
	o, out, err := s.mind.CloneOutline(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleForgetOutline(c *gin.Context) {
	limboKey, out, err := s.mind.ForgetOutline(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"limbo_key": limboKey})
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, out, err := s.mind.CreateNote(c.Request.Context(), c.Param("key"), req.Offset,
		edit.CreateNoteParams{
			Name:     req.Name,
			Type:     model.NoteType(req.Type),
			Depth:    req.Depth,
			Tags:     req.Tags,
			Progress: req.Progress,
		})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) handleRemind(c *gin.Context) {
	note, err := s.mind.Remind(c.Param("id"))
	if err != nil {
		if errors.Is(err, memory.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleForgetNote(c *gin.Context) {
	patch, out, err := s.mind.ForgetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"patch": patch})
}

func (s *Server) handleMoveNote(c *gin.Context) {
	var req MoveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mv, err := edit.ParseMove(req.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch, out, err := s.mind.MoveNote(c.Request.Context(), c.Param("id"), mv)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"patch": patch})
}

func (s *Server) handleRefactorNote(c *gin.Context) {
	var req RefactorNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.mind.RefactorNote(c.Request.Context(), c.Param("id"),
		req.TargetKey, req.TargetParentID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if respondOutcome(c, out) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": "accepted"})
}

func (s *Server) handleAssociations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	board, err := s.mind.AssociationsLeaderboard(ctx, c.Param("id")).Await(ctx)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "leaderboard did not resolve in time"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"associations": board})
}

func (s *Server) handleReferenced(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": s.mind.GetReferencedNotes(c.Param("id"))})
}

func (s *Server) handleTaggedNotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": s.mind.GetTaggedNotes(c.Param("tag"))})
}

func (s *Server) handleTagCardinality(c *gin.Context) {
	outlines, notes := s.mind.TagCardinality(c.Param("tag"))
	c.JSON(http.StatusOK, gin.H{"outlines": outlines, "notes": notes})
}
