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

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/awnumar/memguard"
)

// Dependencies are the collaborators a Controller drives.
type Dependencies struct {
	Connector RepositoryConnector
	Fetcher   ContentFetcher
	Publisher Publisher
	Summaries SummaryGenerator
	Code      CodeGenerator

	// Audit receives repo.connect and repo.publish events. Optional.
	Audit extensions.AuditLogger
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Controller runs one pipeline.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The mutex guards state only and
// is released during collaborator calls; the busy flag rejects overlapping
// operations with ErrBusy so at most one network call is outstanding.
type Controller struct {
	deps Dependencies

	mu         sync.Mutex
	state      State
	busy       bool
	credential *memguard.Enclave
	repo       *Repository
	files      []FileEntry
	selected   []string
	fetched    []generator.FileDescriptor
	batch      generator.SummaryBatch
	summary    *generator.TestSummary
	code       *generator.GeneratedTestCode
	// branch is the change branch left by a failed publish, reused on retry.
	branch     string
	published  *PublishResult
	lastErr    string
}

// NewController returns a Controller in the Disconnected state.
func NewController(deps Dependencies) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = &extensions.NopAuditLogger{}
	}
	return &Controller{deps: deps, state: Disconnected}
}

// =============================================================================
// Operation bracketing
// =============================================================================

// begin claims the controller for op if it is idle and in state want.
func (c *Controller) begin(op string, want State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}
	if c.state != want {
		err := fmt.Errorf("%w: %s requires %s, run is %s", ErrInvalidTransition, op, want, c.state)
		c.lastErr = err.Error()
		return err
	}
	c.busy = true
	return nil
}

// fail releases the controller, keeping the current state and recording err.
func (c *Controller) fail(op string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.lastErr = err.Error()
	c.deps.Logger.Warn("Pipeline operation failed", "op", op, "state", c.state, "error", err)
	return err
}

// readCredential copies the sealed credential out of its enclave.
func (c *Controller) readCredential() (string, error) {
	c.mu.Lock()
	enclave := c.credential
	c.mu.Unlock()
	if enclave == nil {
		return "", nil
	}
	buf, err := enclave.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open credential enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// =============================================================================
// Operations
// =============================================================================

// Connect lists the repository named by locator using credential.
// Disconnected -> FilesListed.
func (c *Controller) Connect(ctx context.Context, credential, locator string) error {
	const op = "connect"
	if err := c.begin(op, Disconnected); err != nil {
		return err
	}
	if strings.TrimSpace(locator) == "" {
		return c.fail(op, fmt.Errorf("%w: repository locator is required", generator.ErrInvalidInput))
	}

	listing, err := c.deps.Connector.Connect(ctx, credential, locator)
	c.audit(ctx, "repo.connect", "read", locator, err, nil)
	if err != nil {
		return c.fail(op, &ExternalCollaboratorError{Op: op, Err: err})
	}

	var enclave *memguard.Enclave
	if credential != "" {
		enclave = memguard.NewEnclave([]byte(credential))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	repo := listing.Repository
	c.credential = enclave
	c.repo = &repo
	c.files = append([]FileEntry(nil), listing.Files...)
	c.state = FilesListed
	c.busy = false
	c.lastErr = ""
	c.deps.Logger.Info("Repository connected",
		"repository", repo.FullName(),
		"files", len(c.files),
		"token_present", credential != "")
	return nil
}

// SelectFiles fetches paths and synthesizes summaries for them.
// FilesListed -> SummariesReady.
//
// Paths must be non-empty and every path must be in the listing. Paths the
// fetcher skips are dropped; if nothing is fetched the call fails with
// ErrNoContent.
func (c *Controller) SelectFiles(ctx context.Context, paths []string) error {
	const op = "select_files"
	if err := c.begin(op, FilesListed); err != nil {
		return err
	}

	c.mu.Lock()
	repo := *c.repo
	selected, err := c.resolveSelection(paths)
	c.mu.Unlock()
	if err != nil {
		return c.fail(op, err)
	}

	credential, err := c.readCredential()
	if err != nil {
		return c.fail(op, err)
	}
	files, err := c.deps.Fetcher.FetchContent(ctx, credential, repo, selected)
	if err != nil {
		return c.fail(op, &ExternalCollaboratorError{Op: "fetch_content", Err: err})
	}
	if len(files) == 0 {
		return c.fail(op, ErrNoContent)
	}

	batch, err := c.deps.Summaries.Synthesize(ctx, files)
	if err != nil {
		return c.fail(op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = selected
	c.fetched = files
	c.batch = batch
	c.state = SummariesReady
	c.busy = false
	c.lastErr = ""
	return nil
}

// resolveSelection validates paths against the listing and removes
// duplicates. Caller holds c.mu.
func (c *Controller) resolveSelection(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: select at least one file", generator.ErrInvalidInput)
	}
	listed := make(map[string]bool, len(c.files))
	for _, f := range c.files {
		listed[f.Path] = true
	}
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !listed[p] {
			return nil, fmt.Errorf("%w: %q is not in the repository listing", generator.ErrInvalidInput, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// SelectSummary generates test code for the summary with id.
// SummariesReady -> CodeReady.
//
// Content is re-fetched for the listed files named in the summary, so the
// code prompt sees full current content rather than the previews used for
// summarizing.
func (c *Controller) SelectSummary(ctx context.Context, id int) error {
	const op = "select_summary"
	if err := c.begin(op, SummariesReady); err != nil {
		return err
	}

	c.mu.Lock()
	repo := *c.repo
	summary, ok := c.findSummary(id)
	var paths []string
	if ok {
		paths = c.listedPaths(summary.Files)
	}
	c.mu.Unlock()
	if !ok {
		return c.fail(op, fmt.Errorf("%w: %d", ErrUnknownSummary, id))
	}

	var files []generator.FileDescriptor
	if len(paths) > 0 {
		credential, err := c.readCredential()
		if err != nil {
			return c.fail(op, err)
		}
		files, err = c.deps.Fetcher.FetchContent(ctx, credential, repo, paths)
		if err != nil {
			return c.fail(op, &ExternalCollaboratorError{Op: "fetch_content", Err: err})
		}
	}

	code, err := c.deps.Code.Synthesize(ctx, summary, files)
	if err != nil {
		return c.fail(op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = &summary
	c.code = &code
	c.state = CodeReady
	c.busy = false
	c.lastErr = ""
	return nil
}

// findSummary looks id up in the current batch. Caller holds c.mu.
func (c *Controller) findSummary(id int) (generator.TestSummary, bool) {
	for _, s := range c.batch.Summaries {
		if s.ID == id {
			return s, true
		}
	}
	return generator.TestSummary{}, false
}

// listedPaths returns the listing entries named in refs, in listing order.
// Caller holds c.mu.
func (c *Controller) listedPaths(refs []string) []string {
	want := make(map[string]bool, len(refs))
	for _, r := range refs {
		want[r] = true
	}
	var out []string
	for _, f := range c.files {
		if want[f.Path] {
			out = append(out, f.Path)
		}
	}
	return out
}

// Publish opens a change with the generated code. CodeReady -> Published.
// On failure the run stays in CodeReady with its code, and Publish may be
// called again; a retry continues on the branch the failed attempt created.
func (c *Controller) Publish(ctx context.Context) error {
	const op = "publish"
	if err := c.begin(op, CodeReady); err != nil {
		return err
	}

	c.mu.Lock()
	repo := *c.repo
	summary := *c.summary
	code := *c.code
	c.mu.Unlock()

	credential, err := c.readCredential()
	if err != nil {
		return c.fail(op, err)
	}
	c.mu.Lock()
	branch := c.branch
	c.mu.Unlock()

	result, err := c.deps.Publisher.CreateChange(ctx, credential, repo, code, summary, branch)
	meta := map[string]any{"summary_id": summary.ID, "source": string(code.Source)}
	if result.Branch != "" {
		meta["branch"] = result.Branch
	}
	if err == nil {
		meta["url"] = result.URL
	}
	c.audit(ctx, "repo.publish", "create", repo.FullName(), err, meta)
	if err != nil {
		if result.Branch != "" {
			c.mu.Lock()
			c.branch = result.Branch
			c.mu.Unlock()
		}
		return c.fail(op, &ExternalCollaboratorError{Op: op, Err: err})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = &result
	c.state = Published
	c.busy = false
	c.lastErr = ""
	c.deps.Logger.Info("Pull request created", "repository", repo.FullName(), "url", result.URL, "number", result.Number)
	return nil
}

// Reset discards all run state and returns to Disconnected. It fails with
// ErrBusy while an operation is in flight.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return fmt.Errorf("reset: %w", ErrBusy)
	}
	c.state = Disconnected
	c.credential = nil
	c.repo = nil
	c.files = nil
	c.selected = nil
	c.fetched = nil
	c.batch = generator.SummaryBatch{}
	c.summary = nil
	c.code = nil
	c.branch = ""
	c.published = nil
	c.lastErr = ""
	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a deep copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:         c.state,
		Busy:          c.busy,
		Files:         append([]FileEntry{}, c.files...),
		SelectedPaths: append([]string{}, c.selected...),
		FetchedPaths:  generator.Paths(c.fetched),
		Summaries:     make([]generator.TestSummary, len(c.batch.Summaries)),
		SummarySource: c.batch.Source,
		LastError:     c.lastErr,
	}
	for i, s := range c.batch.Summaries {
		snap.Summaries[i] = cloneSummary(s)
	}
	if c.repo != nil {
		repo := *c.repo
		snap.Repository = &repo
	}
	if c.summary != nil {
		s := cloneSummary(*c.summary)
		snap.SelectedSummary = &s
	}
	if c.code != nil {
		code := *c.code
		snap.Code = &code
	}
	if c.published != nil {
		pr := *c.published
		snap.PullRequest = &pr
	}
	return snap
}

func cloneSummary(s generator.TestSummary) generator.TestSummary {
	s.Coverage = append([]string(nil), s.Coverage...)
	s.Files = append([]string{}, s.Files...)
	return s
}

func (c *Controller) audit(ctx context.Context, eventType, action, resource string, err error, meta map[string]any) {
	event := extensions.AuditEvent{
		EventType:    eventType,
		UserID:       "system",
		Action:       action,
		ResourceType: "repository",
		ResourceID:   resource,
		Outcome:      "success",
		Metadata:     meta,
	}
	if err != nil {
		event.Outcome = "failure"
		if event.Metadata == nil {
			event.Metadata = map[string]any{}
		}
		event.Metadata["error"] = err.Error()
	}
	if logErr := c.deps.Audit.Log(ctx, event); logErr != nil {
		c.deps.Logger.Warn("Failed to write audit event", "event_type", eventType, "error", logErr)
	}
}
