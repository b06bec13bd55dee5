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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianTestGen/services/llm"
	"go.opentelemetry.io/otel/attribute"
)

// SummarySynthesizer proposes test summaries for a set of files.
type SummarySynthesizer struct {
	synthesizer
}

// NewSummarySynthesizer creates a synthesizer backed by client. A nil client
// is allowed: every call then takes the fallback path.
func NewSummarySynthesizer(client llm.LLMClient, opts ...Option) *SummarySynthesizer {
	return &SummarySynthesizer{synthesizer: newSynthesizer(client, opts)}
}

// Synthesize returns an ordered batch of summaries for files.
//
// # Description
//
// Sends a preview of every file to the model and parses the first JSON
// object of the answer. When the model is unreachable, the content policy
// blocks a file, or the answer cannot be turned into at least one valid
// summary, the deterministic FallbackSummaries result is returned instead.
//
// # Inputs
//
//   - ctx: Passed to the model call only.
//   - files: Non-empty. Every path must be non-empty.
//
// # Outputs
//
//   - SummaryBatch: Ids dense from 1, coverage non-empty, files a subset of
//     the input paths. Source tells which path produced it.
//   - error: Only ErrInvalidInput.
func (s *SummarySynthesizer) Synthesize(ctx context.Context, files []FileDescriptor) (SummaryBatch, error) {
	if len(files) == 0 {
		return SummaryBatch{}, fmt.Errorf("%w: no files to summarize", ErrInvalidInput)
	}
	for i := range files {
		if err := s.validate.Struct(files[i]); err != nil {
			return SummaryBatch{}, fmt.Errorf("%w: file %d: %v", ErrInvalidInput, i, err)
		}
	}

	ctx, span := tracer.Start(ctx, "generator.SummarySynthesizer.Synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("files.count", len(files)))
	start := time.Now()

	summaries, err := s.attempt(ctx, files)
	if err == nil {
		s.record(span, StageSummaries, SourceAI, nil, start)
		return SummaryBatch{Summaries: summaries, Source: SourceAI}, nil
	}
	if _, ok := fallbackReason(err); !ok {
		span.RecordError(err)
		return SummaryBatch{}, err
	}
	s.record(span, StageSummaries, SourceFallback, err, start)
	return SummaryBatch{Summaries: FallbackSummaries(files), Source: SourceFallback}, nil
}

// aiSummary is the shape requested from the model. The model's own id is
// ignored because batches are renumbered.
type aiSummary struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Framework   string   `json:"framework" validate:"required"`
	Coverage    []string `json:"coverage" validate:"min=1"`
	Files       []string `json:"files"`
	Priority    string   `json:"priority"`
}

type aiSummaryResponse struct {
	Summaries []aiSummary `json:"summaries"`
}

func (s *SummarySynthesizer) attempt(ctx context.Context, files []FileDescriptor) ([]TestSummary, error) {
	if err := s.screen(files); err != nil {
		return nil, err
	}
	prompt, err := buildSummaryPrompt(files)
	if err != nil {
		return nil, &UpstreamUnavailableError{Err: fmt.Errorf("failed to render summary prompt: %w", err)}
	}
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return s.parse(text, files)
}

// parse extracts, decodes and normalizes a model answer.
func (s *SummarySynthesizer) parse(text string, files []FileDescriptor) ([]TestSummary, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, &MalformedResponseError{Reason: "no JSON object in response"}
	}
	var resp aiSummaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid summaries JSON", Err: err}
	}
	summaries := s.normalize(resp.Summaries, Paths(files))
	if len(summaries) == 0 {
		return nil, &MalformedResponseError{Reason: "no usable summaries"}
	}
	return summaries, nil
}

// normalize drops invalid entries, restricts file references to known paths,
// defaults priority and renumbers from 1 in emission order.
func (s *SummarySynthesizer) normalize(in []aiSummary, paths []string) []TestSummary {
	out := make([]TestSummary, 0, len(in))
	for _, a := range in {
		a.Title = strings.TrimSpace(a.Title)
		a.Framework = strings.TrimSpace(a.Framework)
		a.Coverage = nonEmpty(a.Coverage)
		if err := s.validate.Struct(a); err != nil {
			s.logger.Debug("Dropping model summary", "title", a.Title, "error", err)
			continue
		}
		out = append(out, TestSummary{
			ID:          len(out) + 1,
			Title:       a.Title,
			Description: strings.TrimSpace(a.Description),
			Framework:   a.Framework,
			Coverage:    a.Coverage,
			Files:       resolveFileRefs(a.Files, paths),
			Priority:    normalizePriority(a.Priority),
		})
	}
	return out
}

// resolveFileRefs maps model file references onto input paths. An exact
// match wins; otherwise a reference that is the unique "/"-suffix of one
// input path maps to it. Everything else is dropped. Order is preserved and
// duplicates removed. The result is never nil.
func resolveFileRefs(refs, paths []string) []string {
	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[p] = true
	}
	seen := make(map[string]bool, len(refs))
	out := []string{}
	for _, ref := range refs {
		ref = strings.TrimPrefix(strings.TrimSpace(ref), "./")
		if ref == "" {
			continue
		}
		match := ""
		if known[ref] {
			match = ref
		} else {
			var candidates []string
			for _, p := range paths {
				if strings.HasSuffix(p, "/"+ref) {
					candidates = append(candidates, p)
				}
			}
			if len(candidates) == 1 {
				match = candidates[0]
			}
		}
		if match != "" && !seen[match] {
			seen[match] = true
			out = append(out, match)
		}
	}
	return out
}

func normalizePriority(p string) Priority {
	switch pr := Priority(strings.ToLower(strings.TrimSpace(p))); pr {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return pr
	default:
		return PriorityMedium
	}
}

func nonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
