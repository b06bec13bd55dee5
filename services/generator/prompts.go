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
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// PreviewLimit is the maximum number of characters of each file placed in
// the summary prompt.
const PreviewLimit = 500

const (
	previewEllipsis   = "..."
	codeFileSeparator = "\n\n---\n\n"
)

var summaryPrompt = prompts.NewPromptTemplate(`
Analyze the following code files and generate test case summaries. For each file or group of related files, create a comprehensive test summary.

Files to analyze:
{{.files}}

Generate 3-5 test case summaries in the following JSON format:
{
  "summaries": [
    {
      "id": 1,
      "title": "Component/Module Test Title",
      "description": "Detailed description of what will be tested",
      "framework": "Testing framework to use (Jest, Pytest, JUnit, etc.)",
      "coverage": ["Test scenario 1", "Test scenario 2", "Test scenario 3"],
      "files": ["path/of/file1.js", "path/of/file2.py"],
      "priority": "high/medium/low"
    }
  ]
}

Focus on:
1. Unit tests for individual functions/components
2. Integration tests for connected components
3. Edge cases and error handling
4. Performance tests if applicable
5. Security tests if applicable

Choose appropriate testing frameworks based on the language:
- JavaScript/React: Jest + React Testing Library
- Python: Pytest or unittest
- Java: JUnit
- Other languages: appropriate framework

Use the exact file paths listed above in "files".
Return only valid JSON.
`, []string{"files"})

var codePrompt = prompts.NewPromptTemplate(`
Generate comprehensive test code based on the following test summary and source code:

Test Summary:
Title: {{.title}}
Description: {{.description}}
Framework: {{.framework}}
Coverage Areas: {{.coverage}}

Source Code:
{{.code}}

Generate complete, runnable test code that includes:
1. All necessary imports
2. Test setup and teardown if needed
3. At least one test case for every coverage area
4. Proper assertions
5. Mock/stub implementations where the code under test has collaborators
6. Comments explaining test logic

Make sure the code is:
- Syntactically correct
- Follows best practices for the testing framework
- Comprehensive but not overly verbose
- Ready to run without modification

Return only the test code without any markdown formatting or explanations.
`, []string{"title", "description", "framework", "coverage", "code"})

// previewFiles renders each file as its path, language and a bounded
// content prefix. The ellipsis is always appended.
func previewFiles(files []FileDescriptor) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = fmt.Sprintf("File: %s (%s)\nContent Preview: %s%s",
			f.Path, f.Language, truncateRunes(f.Content, PreviewLimit), previewEllipsis)
	}
	return strings.Join(parts, "\n\n")
}

// concatFiles renders full file contents for the code prompt.
func concatFiles(files []FileDescriptor) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = fmt.Sprintf("File: %s\n%s", f.Path, f.Content)
	}
	return strings.Join(parts, codeFileSeparator)
}

func buildSummaryPrompt(files []FileDescriptor) (string, error) {
	return summaryPrompt.Format(map[string]any{"files": previewFiles(files)})
}

func buildCodePrompt(summary TestSummary, files []FileDescriptor) (string, error) {
	return codePrompt.Format(map[string]any{
		"title":       summary.Title,
		"description": summary.Description,
		"framework":   summary.Framework,
		"coverage":    strings.Join(summary.Coverage, ", "),
		"code":        concatFiles(files),
	})
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
