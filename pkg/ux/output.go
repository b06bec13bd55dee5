// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the testgen CLI.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box     lipgloss.Style
	CodeBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	CodeBox: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorSlate).
		PaddingLeft(1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes CLI output to W. Plain disables styling and decoration for
// pipes and scripts.
type Printer struct {
	W     io.Writer
	Plain bool
}

// Success prints a success line.
func (p Printer) Success(text string) {
	if p.Plain {
		fmt.Fprintf(p.W, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.W, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p Printer) Warning(text string) {
	if p.Plain {
		fmt.Fprintf(p.W, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.W, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p Printer) Error(text string) {
	if p.Plain {
		fmt.Fprintf(p.W, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.W, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// sourceNote describes how a result was produced.
func sourceNote(source generator.Source) string {
	if source == generator.SourceFallback {
		return "template fallback (model unavailable)"
	}
	return "generated by model"
}

// Summaries prints a summary batch, one box per summary.
func (p Printer) Summaries(batch generator.SummaryBatch) {
	if p.Plain {
		for _, s := range batch.Summaries {
			fmt.Fprintf(p.W, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Priority, s.Framework, s.Title, strings.Join(s.Files, ","))
		}
		return
	}

	fmt.Fprintln(p.W, Styles.Title.Render(fmt.Sprintf("%d test summaries", len(batch.Summaries)))+
		"  "+Styles.Muted.Render(sourceNote(batch.Source)))
	for _, s := range batch.Summaries {
		fmt.Fprintln(p.W, Styles.Box.Width(72).Render(renderSummary(s)))
	}
}

func renderSummary(s generator.TestSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Styles.Highlight.Render(fmt.Sprintf("#%d", s.ID)), Styles.Bold.Render(s.Title))
	fmt.Fprintf(&b, "%s  %s\n", Styles.Subtitle.Render(s.Framework), priorityStyle(s.Priority).Render(string(s.Priority)))
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n", s.Description)
	}
	for _, c := range s.Coverage {
		fmt.Fprintf(&b, "%s %s\n", IconBullet.Render(), c)
	}
	if len(s.Files) > 0 {
		b.WriteString(Styles.Muted.Render(strings.Join(s.Files, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorityStyle(p generator.Priority) lipgloss.Style {
	switch p {
	case generator.PriorityHigh:
		return Styles.Error
	case generator.PriorityLow:
		return Styles.Muted
	default:
		return Styles.Warning
	}
}

// Code prints generated test source. Plain mode prints the source alone so
// it can be redirected into a file.
func (p Printer) Code(code generator.GeneratedTestCode) {
	if p.Plain {
		fmt.Fprintln(p.W, code.SourceText)
		return
	}
	fmt.Fprintln(p.W, Styles.Title.Render(fmt.Sprintf("Test code for summary #%d", code.SummaryID))+
		"  "+Styles.Muted.Render(sourceNote(code.Source)))
	fmt.Fprintln(p.W, Styles.CodeBox.Render(code.SourceText))
}
