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
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for empty or unusable required input. It is a
// client error and is never retried.
var ErrInvalidInput = errors.New("invalid input")

// errNoModel is the cause recorded when no LLM client is configured.
var errNoModel = errors.New("no model backend configured")

// UpstreamUnavailableError wraps a failed model call (network, auth, quota).
// Absorbed by the synthesizers.
type UpstreamUnavailableError struct {
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("model endpoint unavailable: %v", e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError means the model answered but the answer was
// unusable. Absorbed by the synthesizers.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return "malformed model response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// PolicyBlockedError means a file's content matched a high-confidence secret
// pattern, so no prompt containing it was sent. Absorbed by the synthesizers.
type PolicyBlockedError struct {
	Path      string
	PatternID string
	// Classification is the highest-priority class the file matched.
	Classification string
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("content policy blocked %s (%s: %s)", e.Path, e.Classification, e.PatternID)
}

// fallbackReason classifies err into one of the absorbed AI-side kinds and
// returns a short label for logs and metrics. ok is false for anything else.
func fallbackReason(err error) (reason string, ok bool) {
	var upstream *UpstreamUnavailableError
	var malformed *MalformedResponseError
	var blocked *PolicyBlockedError
	switch {
	case errors.As(err, &upstream):
		return "upstream_unavailable", true
	case errors.As(err, &malformed):
		return "malformed_response", true
	case errors.As(err, &blocked):
		return "policy_blocked", true
	default:
		return "", false
	}
}
