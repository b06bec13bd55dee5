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
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Fallback summaries
// =============================================================================

// FallbackSummaries is the deterministic, model-free summary heuristic.
//
// # Description
//
// Files are visited in input order with ids assigned from 1:
//   - javascript files whose path contains "component" (case-sensitive)
//     get a React component summary (Jest + React Testing Library, high);
//   - python files get a function summary (Pytest, medium);
//   - anything else contributes nothing.
//
// When no file contributes, a single "Generic Code Tests" summary covering
// every input path is returned.
//
// # Outputs
//
//   - []TestSummary: Never empty. A pure function of files.
func FallbackSummaries(files []FileDescriptor) []TestSummary {
	var summaries []TestSummary
	id := 1
	for _, f := range files {
		switch {
		case f.Language == LanguageJavaScript && strings.Contains(f.Path, "component"):
			summaries = append(summaries, TestSummary{
				ID:          id,
				Title:       basename(f.Path) + " Component Tests",
				Description: "Comprehensive unit tests for React component including props validation, event handling, and rendering",
				Framework:   "Jest + React Testing Library",
				Coverage:    []string{"Props testing", "Event handling", "Rendering", "Accessibility"},
				Files:       []string{f.Path},
				Priority:    PriorityHigh,
			})
			id++
		case f.Language == LanguagePython:
			summaries = append(summaries, TestSummary{
				ID:          id,
				Title:       basename(f.Path) + " Function Tests",
				Description: "Unit tests for Python functions including edge cases and error handling",
				Framework:   "Pytest",
				Coverage:    []string{"Function logic", "Edge cases", "Error handling", "Input validation"},
				Files:       []string{f.Path},
				Priority:    PriorityMedium,
			})
			id++
		}
	}
	if len(summaries) > 0 {
		return summaries
	}
	return []TestSummary{{
		ID:          1,
		Title:       "Generic Code Tests",
		Description: "Basic unit tests for the selected code files",
		Framework:   "Jest",
		Coverage:    []string{"Basic functionality", "Error handling", "Edge cases"},
		Files:       Paths(files),
		Priority:    PriorityMedium,
	}}
}

// =============================================================================
// Fallback test code
// =============================================================================

var whitespacePattern = regexp.MustCompile(`\s+`)

const jestTemplate = `// %[1]s
// %[2]s

describe('%[3]s', () => {
  beforeEach(() => {
    // Setup before each test
  });

  test('should handle basic functionality', () => {
    // Test basic functionality
    expect(true).toBe(true);
  });

  test('should handle edge cases', () => {
    // Test edge cases
    expect(() => {
      // Test code here
    }).not.toThrow();
  });

  test('should validate inputs', () => {
    // Test input validation
    expect(true).toBeTruthy();
  });

  afterEach(() => {
    // Cleanup after each test
  });
});`

const pytestTemplate = `# %[1]s
# %[2]s

import pytest

class Test%[3]s:
    def setup_method(self):
        """Setup before each test"""
        pass

    def test_basic_functionality(self):
        """Test basic functionality"""
        assert True

    def test_edge_cases(self):
        """Test edge cases"""
        assert True

    def test_input_validation(self):
        """Test input validation"""
        assert True

    def teardown_method(self):
        """Cleanup after each test"""
        pass`

// FallbackTestCode renders the fixed test skeleton for summary.
//
// A framework containing "Jest" selects the Jest skeleton: a describe block
// named after the title with beforeEach/afterEach and three trivially
// passing tests. Every other framework gets the Pytest skeleton: a class
// named "Test" + title with all whitespace removed, setup/teardown methods
// and three trivially passing test methods.
func FallbackTestCode(summary TestSummary) string {
	if strings.Contains(summary.Framework, "Jest") {
		return fmt.Sprintf(jestTemplate,
			summary.Title, summary.Description, escapeJSSingleQuoted(summary.Title))
	}
	return fmt.Sprintf(pytestTemplate,
		summary.Title, summary.Description, whitespacePattern.ReplaceAllString(summary.Title, ""))
}

func escapeJSSingleQuoted(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
