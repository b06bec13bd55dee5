// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianTestGen/services/llm"
	"github.com/AleutianAI/AleutianTestGen/services/policy_engine"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("testgen.generator")

// Stage names reported to observers.
const (
	StageSummaries = "summaries"
	StageCode      = "code"
)

// Observer receives one callback per synthesis with the path taken.
// reason is empty when source is SourceAI.
type Observer interface {
	ObserveSynthesis(stage string, source Source, reason string, elapsed time.Duration)
}

// Option configures a synthesizer.
type Option func(*synthesizer)

// WithPolicy screens file content before any prompt is built. Files with a
// high-confidence finding are never sent to the model.
func WithPolicy(engine *policy_engine.PolicyEngine) Option {
	return func(s *synthesizer) { s.policy = engine }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(s *synthesizer) { s.observer = o }
}

// WithParams sets the generation parameters passed to the model.
func WithParams(p llm.GenerationParams) Option {
	return func(s *synthesizer) { s.params = p }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *synthesizer) { s.logger = l }
}

// synthesizer holds what both synthesizers share.
type synthesizer struct {
	llm      llm.LLMClient
	policy   *policy_engine.PolicyEngine
	observer Observer
	params   llm.GenerationParams
	logger   *slog.Logger
	validate *validator.Validate
}

func newSynthesizer(client llm.LLMClient, opts []Option) synthesizer {
	s := synthesizer{
		llm:      client,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// screen returns a PolicyBlockedError for the first file with a blocking
// finding.
func (s *synthesizer) screen(files []FileDescriptor) error {
	if s.policy == nil {
		return nil
	}
	for _, f := range files {
		blocking := policy_engine.Blocking(s.policy.ScanFileContent(f.Path, f.Content))
		if len(blocking) > 0 {
			return &PolicyBlockedError{
				Path:           f.Path,
				PatternID:      blocking[0].PatternID,
				Classification: s.policy.ClassifyData([]byte(f.Content)),
			}
		}
	}
	return nil
}

// generate performs the model call. Every failure is an
// UpstreamUnavailableError.
func (s *synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil {
		return "", &UpstreamUnavailableError{Err: errNoModel}
	}
	text, err := s.llm.Generate(ctx, prompt, s.params)
	if err != nil {
		return "", &UpstreamUnavailableError{Err: err}
	}
	return text, nil
}

// record logs, traces and observes the outcome of one synthesis.
func (s *synthesizer) record(span trace.Span, stage string, source Source, cause error, start time.Time) {
	elapsed := time.Since(start)
	reason := ""
	if cause != nil {
		reason, _ = fallbackReason(cause)
		span.RecordError(cause)
		s.logger.Warn("Model path failed, using fallback",
			"stage", stage,
			"reason", reason,
			"error", cause,
			"duration_ms", elapsed.Milliseconds())
	} else {
		s.logger.Info("Synthesis complete",
			"stage", stage,
			"source", source,
			"duration_ms", elapsed.Milliseconds())
	}
	span.SetAttributes(
		attribute.String("synthesis.source", string(source)),
		attribute.String("synthesis.fallback_reason", reason),
	)
	span.SetStatus(codes.Ok, "")
	if s.observer != nil {
		s.observer.ObserveSynthesis(stage, source, reason, elapsed)
	}
}
