// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy_engine classifies file content before it is placed into a
// model prompt. Rules are YAML, embedded at build time by the enforcement
// package; a file with a high-confidence secret match is never sent to a
// model.
package policy_engine

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianTestGen/services/policy_engine/enforcement"
	"gopkg.in/yaml.v3"
)

// PolicyEngine holds compiled classification rules. It is immutable after
// construction and safe for concurrent use.
type PolicyEngine struct {
	Classifiers []Classification
}

// NewPolicyEngine loads the embedded rule set.
//
// Returns an error if the embedded YAML is malformed or contains an invalid
// regex, which means the binary was built with a broken rule file.
func NewPolicyEngine() (*PolicyEngine, error) {
	return NewPolicyEngineFromYAML(enforcement.SecretPatterns)
}

// NewPolicyEngineFromYAML builds an engine from an arbitrary rule document.
func NewPolicyEngineFromYAML(data []byte) (*PolicyEngine, error) {
	var file ClassificationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the policy file: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &PolicyEngine{Classifiers: file.Classifications}, nil
}

// ClassifyData returns the name of the highest-priority classification with
// any matching pattern, or "public" when nothing matches.
func (e *PolicyEngine) ClassifyData(data []byte) string {
	for _, classifier := range e.Classifiers {
		for _, p := range classifier.Patterns {
			if p.compiled.Match(data) {
				return classifier.Name
			}
		}
	}
	return "public"
}

// ScanFileContent checks every line of content against every pattern and
// reports each match with its 1-based line number.
func (e *PolicyEngine) ScanFileContent(path, content string) []ScanFinding {
	var findings []ScanFinding
	for lineNum, line := range strings.Split(content, "\n") {
		for _, classifier := range e.Classifiers {
			for _, p := range classifier.Patterns {
				match := p.compiled.FindString(line)
				if match == "" {
					continue
				}
				findings = append(findings, ScanFinding{
					FilePath:           path,
					LineNumber:         lineNum + 1,
					MatchedContent:     mask(strings.TrimSpace(match)),
					ClassificationName: classifier.Name,
					PatternID:          p.ID,
					Confidence:         p.Confidence,
				})
			}
		}
	}
	return findings
}

// Blocking returns the findings that must prevent a model call.
func Blocking(findings []ScanFinding) []ScanFinding {
	var out []ScanFinding
	for _, f := range findings {
		if f.Confidence == High {
			out = append(out, f)
		}
	}
	return out
}

// mask keeps a short prefix of a match so findings stay recognizable.
func mask(s string) string {
	const keep = 4
	r := []rune(s)
	if len(r) <= keep {
		return strings.Repeat("*", len(r))
	}
	return string(r[:keep]) + strings.Repeat("*", len(r)-keep)
}
