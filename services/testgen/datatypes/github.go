// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the request and response bodies of the test
// generator API.
//
// Every request type has a Validate method backed by a shared
// go-playground/validator instance. Handlers call it after binding.
package datatypes

import (
	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxFilesPerRequest bounds the files of one content or synthesis request.
	MaxFilesPerRequest = 200

	// MaxFileContentBytes bounds the content of a single uploaded file.
	MaxFileContentBytes = 512 * 1024
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length, not rune count.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxFileContentBytes
}

// =============================================================================
// GitHub routes
// =============================================================================

// ConnectRequest is the body of POST /api/github/connect.
type ConnectRequest struct {
	Token   string `json:"token"`
	RepoURL string `json:"repoUrl" validate:"required"`
}

func (r *ConnectRequest) Validate() error { return validate.Struct(r) }

// ConnectResponse lists a repository's code files.
type ConnectResponse struct {
	Files      []pipeline.FileEntry `json:"files"`
	Repository pipeline.Repository  `json:"repository"`
}

// FileRef names one repository file.
type FileRef struct {
	Path string `json:"path" validate:"required"`
}

// FileContentRequest is the body of POST /api/github/file-content.
type FileContentRequest struct {
	Token string    `json:"token"`
	Owner string    `json:"owner" validate:"required"`
	Repo  string    `json:"repo" validate:"required"`
	Files []FileRef `json:"files" validate:"required,min=1,max=200,dive"`
}

func (r *FileContentRequest) Validate() error { return validate.Struct(r) }

// Paths returns the requested paths in order.
func (r *FileContentRequest) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// FileContentResponse carries the fetched files.
type FileContentResponse struct {
	FileContents []generator.FileDescriptor `json:"fileContents"`
}

// CreatePRRequest is the body of POST /api/github/create-pr.
type CreatePRRequest struct {
	Token    string                `json:"token"`
	Owner    string                `json:"owner" validate:"required"`
	Repo     string                `json:"repo" validate:"required"`
	TestCode string                `json:"testCode" validate:"required"`
	Summary  generator.TestSummary `json:"summary" validate:"-"`
	// Source is the synthesis path that produced TestCode. Fallback output
	// gets a note in the pull request body.
	Source generator.Source `json:"source,omitempty" validate:"omitempty,oneof=ai fallback"`
	// Branch retries on the branch reported by a failed earlier request.
	Branch string `json:"branch,omitempty"`
}

func (r *CreatePRRequest) Validate() error { return validate.Struct(r) }

// CreatePRResponse describes the opened pull request.
type CreatePRResponse struct {
	PullRequest pipeline.PublishResult `json:"pullRequest"`
}
