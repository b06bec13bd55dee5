// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/stretchr/testify/assert"
)

var batch = generator.SummaryBatch{
	Source: generator.SourceFallback,
	Summaries: []generator.TestSummary{{
		ID:        1,
		Title:     "Button.jsx Component Tests",
		Framework: "Jest + React Testing Library",
		Coverage:  []string{"Props testing", "Rendering"},
		Files:     []string{"src/components/Button.jsx"},
		Priority:  generator.PriorityHigh,
	}},
}

func TestPrinter_PlainSummaries(t *testing.T) {
	var buf bytes.Buffer
	Printer{W: &buf, Plain: true}.Summaries(batch)

	assert.Equal(t, "1\thigh\tJest + React Testing Library\tButton.jsx Component Tests\tsrc/components/Button.jsx\n", buf.String())
}

func TestPrinter_StyledSummaries(t *testing.T) {
	var buf bytes.Buffer
	Printer{W: &buf}.Summaries(batch)

	out := buf.String()
	assert.Contains(t, out, "1 test summaries")
	assert.Contains(t, out, "template fallback")
	assert.Contains(t, out, "Button.jsx Component Tests")
	assert.Contains(t, out, "Props testing")
}

func TestPrinter_PlainCodeIsSourceOnly(t *testing.T) {
	var buf bytes.Buffer
	code := generator.GeneratedTestCode{SummaryID: 1, SourceText: "describe('x', () => {});", Source: generator.SourceAI}
	Printer{W: &buf, Plain: true}.Code(code)

	assert.Equal(t, "describe('x', () => {});\n", buf.String())
}

func TestPrinter_StyledCode(t *testing.T) {
	var buf bytes.Buffer
	code := generator.GeneratedTestCode{SummaryID: 3, SourceText: "assert True", Source: generator.SourceAI}
	Printer{W: &buf}.Code(code)

	assert.Contains(t, buf.String(), "summary #3")
	assert.Contains(t, buf.String(), "generated by model")
	assert.Contains(t, buf.String(), "assert True")
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{W: &buf, Plain: true}
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"OK: done", "WARN: careful", "ERROR: broken"}, lines)
}
