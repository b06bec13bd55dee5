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
	"net/http"

	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/datatypes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// HandleGenerateSummaries proposes test summaries for the submitted files.
// Model failures are absorbed by the synthesizer; the response's source
// field tells the caller whether the fallback was used.
func HandleGenerateSummaries(summaries pipeline.SummaryGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleGenerateSummaries")
		defer span.End()

		var req datatypes.GenerateSummariesRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		batch, err := summaries.Synthesize(ctx, req.Files())
		if err != nil {
			respondError(c, span, err)
			return
		}
		span.SetAttributes(
			attribute.String("synthesis.source", string(batch.Source)),
			attribute.Int("summaries.count", len(batch.Summaries)),
		)
		c.JSON(http.StatusOK, datatypes.GenerateSummariesResponse{Summaries: batch.Summaries, Source: batch.Source})
	}
}

// HandleGenerateTestCode writes test source for one summary.
func HandleGenerateTestCode(code pipeline.CodeGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleGenerateTestCode")
		defer span.End()

		var req datatypes.GenerateTestCodeRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		generated, err := code.Synthesize(ctx, req.Summary, req.Files())
		if err != nil {
			respondError(c, span, err)
			return
		}
		span.SetAttributes(attribute.String("synthesis.source", string(generated.Source)))
		c.JSON(http.StatusOK, datatypes.GenerateTestCodeResponse{TestCode: generated.SourceText, Source: generated.Source})
	}
}
