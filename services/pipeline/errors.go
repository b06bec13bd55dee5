// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is called from a
	// state that does not allow it.
	ErrInvalidTransition = errors.New("invalid pipeline transition")

	// ErrBusy is returned while another operation on the same run is in
	// flight.
	ErrBusy = errors.New("another operation is in progress")

	// ErrUnknownSummary is returned when the selected id is not in the
	// current batch.
	ErrUnknownSummary = errors.New("unknown summary id")

	// ErrNoContent is returned when none of the selected files could be
	// fetched.
	ErrNoContent = errors.New("no file content could be fetched")

	// ErrUnknownRun is returned by the Registry for ids it does not hold.
	ErrUnknownRun = errors.New("unknown run")
)

// ExternalCollaboratorError wraps a connector, fetcher or publisher failure.
// Its message is the collaborator's message, unchanged.
type ExternalCollaboratorError struct {
	Op  string
	Err error
}

func (e *ExternalCollaboratorError) Error() string { return e.Err.Error() }

func (e *ExternalCollaboratorError) Unwrap() error { return e.Err }
