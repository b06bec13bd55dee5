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
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianTestGen/services/llm"
	"go.opentelemetry.io/otel/attribute"
)

// CodeSynthesizer expands one summary into test source.
type CodeSynthesizer struct {
	synthesizer
}

// NewCodeSynthesizer creates a synthesizer backed by client. A nil client
// is allowed: every call then returns the fallback template.
func NewCodeSynthesizer(client llm.LLMClient, opts ...Option) *CodeSynthesizer {
	return &CodeSynthesizer{synthesizer: newSynthesizer(client, opts)}
}

// Synthesize generates test code for summary from the relevant subset of
// files (see RelevantFiles). Model failures and empty answers yield
// FallbackTestCode. The only returned error is ErrInvalidInput, for a
// summary without a title or framework.
func (c *CodeSynthesizer) Synthesize(ctx context.Context, summary TestSummary, files []FileDescriptor) (GeneratedTestCode, error) {
	if strings.TrimSpace(summary.Title) == "" || strings.TrimSpace(summary.Framework) == "" {
		return GeneratedTestCode{}, fmt.Errorf("%w: summary requires a title and framework", ErrInvalidInput)
	}

	ctx, span := tracer.Start(ctx, "generator.CodeSynthesizer.Synthesize")
	defer span.End()
	relevant := RelevantFiles(summary, files)
	span.SetAttributes(
		attribute.Int("summary.id", summary.ID),
		attribute.Int("files.relevant", len(relevant)),
	)
	start := time.Now()

	code, err := c.attempt(ctx, summary, relevant)
	if err == nil {
		c.record(span, StageCode, SourceAI, nil, start)
		return GeneratedTestCode{SummaryID: summary.ID, SourceText: code, Source: SourceAI}, nil
	}
	if _, ok := fallbackReason(err); !ok {
		span.RecordError(err)
		return GeneratedTestCode{}, err
	}
	c.record(span, StageCode, SourceFallback, err, start)
	return GeneratedTestCode{
		SummaryID:  summary.ID,
		SourceText: FallbackTestCode(summary),
		Source:     SourceFallback,
	}, nil
}

func (c *CodeSynthesizer) attempt(ctx context.Context, summary TestSummary, relevant []FileDescriptor) (string, error) {
	if err := c.screen(relevant); err != nil {
		return "", err
	}
	prompt, err := buildCodePrompt(summary, relevant)
	if err != nil {
		return "", &UpstreamUnavailableError{Err: fmt.Errorf("failed to render code prompt: %w", err)}
	}
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	code := StripCodeFences(text)
	if code == "" {
		return "", &MalformedResponseError{Reason: "empty test code"}
	}
	return code, nil
}

// RelevantFiles returns the files whose path contains any entry of
// summary.Files as a substring, in input order.
//
// Matching is by substring, not equality: a reference such as "api.js" also
// selects "src/legacy_api.js". Callers relying on exact selection must pass
// only the files they want.
func RelevantFiles(summary TestSummary, files []FileDescriptor) []FileDescriptor {
	var out []FileDescriptor
	for _, f := range files {
		for _, ref := range summary.Files {
			if ref != "" && strings.Contains(f.Path, ref) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
