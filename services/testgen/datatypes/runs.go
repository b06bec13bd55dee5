// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "github.com/AleutianAI/AleutianTestGen/services/pipeline"

// CreateRunRequest is the body of POST /v1/runs. The new run connects to
// RepoURL immediately.
type CreateRunRequest struct {
	Token   string `json:"token"`
	RepoURL string `json:"repoUrl" validate:"required"`
}

func (r *CreateRunRequest) Validate() error { return validate.Struct(r) }

// SelectFilesRequest is the body of POST /v1/runs/:runId/files.
type SelectFilesRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,max=200,dive,required"`
}

func (r *SelectFilesRequest) Validate() error { return validate.Struct(r) }

// RunResponse is a run's snapshot with its id.
type RunResponse struct {
	RunID string `json:"runId"`
	pipeline.Snapshot
}

// ErrorResponse is the body of every failed request. Details carries the
// collaborator's message for upstream failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	// Branch is set when a failed publish left a branch behind; sending it
	// back on the retry continues on that branch.
	Branch string `json:"branch,omitempty"`
}
