// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers of the test generator API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/github"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("testgen.handlers")

// statusFor maps an error onto an HTTP status.
//
//	400  invalid input, validation failure, unreadable repository URL
//	404  unknown run or summary
//	409  invalid transition, run busy
//	422  no selected file could be fetched
//	502  repository host failure
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	var collabErr *pipeline.ExternalCollaboratorError
	switch {
	case errors.Is(err, generator.ErrInvalidInput),
		errors.Is(err, github.ErrInvalidLocator),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnknownRun),
		errors.Is(err, pipeline.ErrUnknownSummary):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidTransition),
		errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.As(err, &collabErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status and marks the span failed.
func respondError(c *gin.Context, span trace.Span, err error) {
	c.JSON(errorBody(c, span, err))
}

// errorBody records err on span and builds the mapped status and body.
func errorBody(c *gin.Context, span trace.Span, err error) (int, datatypes.ErrorResponse) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status := statusFor(err)
	body := datatypes.ErrorResponse{Error: err.Error()}
	switch status {
	case http.StatusBadGateway:
		body.Error = "repository host request failed"
		body.Details = err.Error()
		slog.Warn("Upstream request failed", "path", c.FullPath(), "error", err)
	case http.StatusInternalServerError:
		body.Error = "internal error"
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	return status, body
}

// bindAndValidate decodes the JSON body into req and validates it.
func bindAndValidate(c *gin.Context, span trace.Span, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return false
	}
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "validation failed", Details: err.Error()})
		return false
	}
	return true
}
