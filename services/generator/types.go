// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generator turns repository files into test-case summaries and
// summaries into test source code.
//
// # Description
//
// Both synthesizers follow the same two-path strategy: attempt a model call,
// and when that attempt fails with a classified AI-side error
// (UpstreamUnavailableError, MalformedResponseError, PolicyBlockedError),
// produce the deterministic fallback instead. Callers therefore only ever
// see ErrInvalidInput; model failures never cross this package boundary.
//
// # Thread Safety
//
// SummarySynthesizer and CodeSynthesizer are stateless after construction
// and safe for concurrent use. The fallback functions are pure.
package generator

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// Language
// =============================================================================

// Language is the coarse language family of a file.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageOther      Language = "other"
)

// ParseLanguage maps a language name onto the three supported families.
// Matching is case-insensitive; anything unrecognized is LanguageOther.
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageJavaScript:
		return LanguageJavaScript
	case LanguagePython:
		return LanguagePython
	default:
		return LanguageOther
	}
}

// UnmarshalJSON accepts any string and normalizes it with ParseLanguage.
func (l *Language) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLanguage(s)
	return nil
}

// =============================================================================
// Data model
// =============================================================================

// FileDescriptor is one repository file with its fetched content.
// Path is repo-relative and unique within a request.
type FileDescriptor struct {
	Path     string   `json:"path" validate:"required"`
	Language Language `json:"language"`
	Content  string   `json:"content"`
}

// Priority ranks a TestSummary.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TestSummary proposes a group of tests for a set of files.
//
// IDs are dense and 1-based within one batch. Coverage is never empty and
// Files only references paths from the originating FileDescriptors.
type TestSummary struct {
	ID          int      `json:"id"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Framework   string   `json:"framework" validate:"required"`
	Coverage    []string `json:"coverage" validate:"min=1,dive,required"`
	Files       []string `json:"files"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=high medium low"`
}

// Source records which synthesis path produced a result.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// SummaryBatch is the ordered output of one summary synthesis.
type SummaryBatch struct {
	Summaries []TestSummary `json:"summaries"`
	Source    Source        `json:"source"`
}

// GeneratedTestCode is the test source produced for one summary.
type GeneratedTestCode struct {
	SummaryID  int    `json:"summaryId"`
	SourceText string `json:"testCode"`
	Source     Source `json:"source"`
}

// Paths returns the paths of files in order.
func Paths(files []FileDescriptor) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// basename returns the text after the last "/".
func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
