// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/datatypes"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/middleware"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Runs serves the run-scoped pipeline API. Each run is a pipeline.Controller
// held by Registry; the handlers only translate HTTP into its operations.
type Runs struct {
	Registry *pipeline.Registry
	Metrics  *observability.Metrics
	Audit    extensions.AuditLogger
}

func (h *Runs) respond(c *gin.Context, id string, ctrl *pipeline.Controller, status int) {
	c.JSON(status, datatypes.RunResponse{RunID: id, Snapshot: ctrl.Snapshot()})
}

func (h *Runs) lookup(c *gin.Context) (string, *pipeline.Controller, error) {
	id := c.Param("runId")
	ctrl, err := h.Registry.Get(id)
	return id, ctrl, err
}

func (h *Runs) audit(ctx context.Context, c *gin.Context, eventType, runID string, err error) {
	event := extensions.AuditEvent{
		EventType:    eventType,
		Action:       eventType,
		ResourceType: "run",
		ResourceID:   runID,
		Outcome:      "success",
	}
	if info := middleware.GetAuthInfo(c); info != nil {
		event.UserID = info.UserID
	}
	if err != nil {
		event.Outcome = "failure"
		event.Metadata = map[string]any{"error": err.Error()}
	}
	if logErr := h.Audit.Log(ctx, event); logErr != nil {
		slog.Warn("Failed to write audit event", "event_type", eventType, "error", logErr)
	}
}

// Create starts a run and connects it to the requested repository. A failed
// connect still creates the run; the response carries its lastError and the
// status of the failure.
func (h *Runs) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Runs.Create")
		defer span.End()

		var req datatypes.CreateRunRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		id, ctrl := h.Registry.Create()
		h.Metrics.RunsActive.Set(float64(h.Registry.Len()))
		span.SetAttributes(attribute.String("run.id", id))

		err := ctrl.Connect(ctx, req.Token, req.RepoURL)
		h.audit(ctx, c, "run.create", id, err)
		if err != nil {
			span.RecordError(err)
			h.respondFailure(c, id, ctrl, err)
			return
		}
		h.respond(c, id, ctrl, http.StatusCreated)
	}
}

// respondFailure writes the snapshot with the mapped error status so clients
// can still address the run.
func (h *Runs) respondFailure(c *gin.Context, id string, ctrl *pipeline.Controller, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		slog.Error("Run operation failed", "run_id", id, "error", err)
	}
	c.JSON(status, gin.H{
		"runId": id,
		"error": err.Error(),
		"run":   ctrl.Snapshot(),
	})
}

// Get returns a run's snapshot.
func (h *Runs) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "Runs.Get")
		defer span.End()

		id, ctrl, err := h.lookup(c)
		if err != nil {
			respondError(c, span, err)
			return
		}
		h.respond(c, id, ctrl, http.StatusOK)
	}
}

// SelectFiles fetches the chosen files and generates summaries for them.
func (h *Runs) SelectFiles() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Runs.SelectFiles")
		defer span.End()

		id, ctrl, err := h.lookup(c)
		if err != nil {
			respondError(c, span, err)
			return
		}
		var req datatypes.SelectFilesRequest
		if !bindAndValidate(c, span, &req) {
			return
		}
		if err := ctrl.SelectFiles(ctx, req.Paths); err != nil {
			span.RecordError(err)
			h.respondFailure(c, id, ctrl, err)
			return
		}
		h.respond(c, id, ctrl, http.StatusOK)
	}
}

// SelectSummary generates test code for the summary named in the path.
func (h *Runs) SelectSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Runs.SelectSummary")
		defer span.End()

		id, ctrl, err := h.lookup(c)
		if err != nil {
			respondError(c, span, err)
			return
		}
		summaryID, err := strconv.Atoi(c.Param("summaryId"))
		if err != nil {
			respondError(c, span, fmt.Errorf("%w: summary id must be an integer", generator.ErrInvalidInput))
			return
		}
		if err := ctrl.SelectSummary(ctx, summaryID); err != nil {
			span.RecordError(err)
			h.respondFailure(c, id, ctrl, err)
			return
		}
		h.respond(c, id, ctrl, http.StatusOK)
	}
}

// Publish opens the pull request for the run's generated code. A failed
// publish leaves the run in CodeReady so it can be retried.
func (h *Runs) Publish() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Runs.Publish")
		defer span.End()

		id, ctrl, err := h.lookup(c)
		if err != nil {
			respondError(c, span, err)
			return
		}
		err = ctrl.Publish(ctx)
		switch {
		case err == nil:
			h.Metrics.RecordPublish(true)
		case statusFor(err) == http.StatusBadGateway:
			h.Metrics.RecordPublish(false)
		}
		if err != nil {
			span.RecordError(err)
			h.respondFailure(c, id, ctrl, err)
			return
		}
		h.respond(c, id, ctrl, http.StatusOK)
	}
}

// Delete abandons a run and drops its stored credential.
func (h *Runs) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Runs.Delete")
		defer span.End()

		id := c.Param("runId")
		err := h.Registry.Delete(id)
		h.Metrics.RunsActive.Set(float64(h.Registry.Len()))
		h.audit(ctx, c, "run.delete", id, err)
		if err != nil {
			respondError(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
