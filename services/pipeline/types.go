// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline sequences one test-generation run:
// connect, select files, select a summary, publish.
//
// # Description
//
// A Controller is a forward-only state machine:
//
//	Disconnected -> FilesListed -> SummariesReady -> CodeReady -> Published
//
// Each operation is legal in exactly one state. A failed operation records
// its message as the run's last error and leaves the state unchanged; the
// caller decides whether to retry. Reset discards everything and returns to
// Disconnected.
//
// The repository host, content fetching and publishing are collaborators
// behind the interfaces in this file. Summary and code synthesis come from
// services/generator.
package pipeline

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
)

// =============================================================================
// State
// =============================================================================

// State is a pipeline stage.
type State int

const (
	Disconnected State = iota
	FilesListed
	SummariesReady
	CodeReady
	Published
)

var stateNames = map[State]string{
	Disconnected:   "disconnected",
	FilesListed:    "files_listed",
	SummariesReady: "summaries_ready",
	CodeReady:      "code_ready",
	Published:      "published",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// Collaborator data
// =============================================================================

// Repository identifies a connected repository.
type Repository struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	DefaultBranch string `json:"defaultBranch"`
	HTMLURL       string `json:"html_url,omitempty"`
}

// FullName returns "owner/repo".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Repo
}

// FileEntry is one listed file, before its content is fetched.
type FileEntry struct {
	Path     string             `json:"path"`
	Language generator.Language `json:"language"`
}

// Listing is the result of connecting to a repository.
type Listing struct {
	Repository Repository  `json:"repository"`
	Files      []FileEntry `json:"files"`
}

// PublishResult describes the change created by a Publisher.
type PublishResult struct {
	URL    string `json:"html_url"`
	Number int    `json:"number"`
	Branch string `json:"branch"`
}

// =============================================================================
// Collaborators
// =============================================================================

// RepositoryConnector resolves a repository locator and lists its code files.
type RepositoryConnector interface {
	Connect(ctx context.Context, credential, locator string) (Listing, error)
}

// ContentFetcher loads file contents. Paths that cannot be read may be
// skipped; the result then has fewer entries than paths.
type ContentFetcher interface {
	FetchContent(ctx context.Context, credential string, repo Repository, paths []string) ([]generator.FileDescriptor, error)
}

// Publisher proposes generated test code as a change to the repository.
//
// branch is empty on a first attempt. On a retry it is the Branch reported
// by the failed attempt, and the publisher continues on that branch instead
// of creating another one. A publisher that created its branch before
// failing reports it in the returned PublishResult alongside the error.
type Publisher interface {
	CreateChange(ctx context.Context, credential string, repo Repository, code generator.GeneratedTestCode, summary generator.TestSummary, branch string) (PublishResult, error)
}

// SummaryGenerator is satisfied by *generator.SummarySynthesizer.
type SummaryGenerator interface {
	Synthesize(ctx context.Context, files []generator.FileDescriptor) (generator.SummaryBatch, error)
}

// CodeGenerator is satisfied by *generator.CodeSynthesizer.
type CodeGenerator interface {
	Synthesize(ctx context.Context, summary generator.TestSummary, files []generator.FileDescriptor) (generator.GeneratedTestCode, error)
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is a copy of a run's observable state. Mutating it does not
// affect the Controller.
type Snapshot struct {
	State           State                        `json:"state"`
	Busy            bool                         `json:"busy"`
	Repository      *Repository                  `json:"repository,omitempty"`
	Files           []FileEntry                  `json:"files"`
	SelectedPaths   []string                     `json:"selectedPaths"`
	FetchedPaths    []string                     `json:"fetchedPaths"`
	Summaries       []generator.TestSummary      `json:"summaries"`
	SummarySource   generator.Source             `json:"summarySource,omitempty"`
	SelectedSummary *generator.TestSummary       `json:"selectedSummary,omitempty"`
	Code            *generator.GeneratedTestCode `json:"code,omitempty"`
	PullRequest     *PublishResult               `json:"pullRequest,omitempty"`
	LastError       string                       `json:"lastError,omitempty"`
}
