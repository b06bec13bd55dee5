// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// now is replaced in tests.
var now = time.Now

// Slug lower-cases title and collapses every run of non-alphanumerics into
// sep. An empty result becomes "generated".
func Slug(title, sep string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), sep)
	s = strings.Trim(s, sep)
	if s == "" {
		return "generated"
	}
	return s
}

// isJest reports whether framework selects JavaScript output.
func isJest(framework string) bool {
	return strings.Contains(framework, "Jest")
}

// TestFilePath returns the repository path a summary's tests are committed
// to: tests/<slug>.test.js for Jest, tests/test_<slug>.py otherwise.
func TestFilePath(summary generator.TestSummary) string {
	if isJest(summary.Framework) {
		return "tests/" + Slug(summary.Title, "-") + ".test.js"
	}
	return "tests/test_" + Slug(summary.Title, "_") + ".py"
}

// BranchName returns testgen/<slug>-<unix seconds>.
func BranchName(summary generator.TestSummary, at time.Time) string {
	return fmt.Sprintf("testgen/%s-%d", Slug(summary.Title, "-"), at.Unix())
}

func pullRequestBody(summary generator.TestSummary, code generator.GeneratedTestCode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", summary.Title)
	if summary.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", summary.Description)
	}
	fmt.Fprintf(&b, "**Framework:** %s\n", summary.Framework)
	fmt.Fprintf(&b, "**Priority:** %s\n\n", summary.Priority)
	b.WriteString("### Coverage\n")
	for _, c := range summary.Coverage {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	if len(summary.Files) > 0 {
		b.WriteString("\n### Files under test\n")
		for _, f := range summary.Files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	if code.Source == generator.SourceFallback {
		b.WriteString("\n> Generated from a template because the model was unavailable. Fill in the test bodies before merging.\n")
	}
	return b.String()
}

// CreateChange commits code on a branch off the default branch and opens a
// pull request against the default branch.
//
// An empty branch creates testgen/<slug>-<unix seconds>. A non-empty branch
// comes from an earlier failed attempt: it is reused (and created only if it
// has since disappeared), and a test file already committed there is updated
// rather than created. Once the branch exists, failures still report it in
// PublishResult.Branch.
func (c *Client) CreateChange(ctx context.Context, token string, repo pipeline.Repository, code generator.GeneratedTestCode, summary generator.TestSummary, branch string) (pipeline.PublishResult, error) {
	ctx, span := tracer.Start(ctx, "github.Client.CreateChange")
	defer span.End()
	span.SetAttributes(
		attribute.String("github.repository", repo.FullName()),
		attribute.Bool("github.branch_reused", branch != ""),
	)

	api := c.api(token)
	base := repo.DefaultBranch
	if base == "" {
		base = "main"
	}

	reuse := branch != ""
	if !reuse {
		branch = BranchName(summary, now())
	}
	if err := ensureBranch(ctx, api, repo, base, branch, reuse); err != nil {
		span.RecordError(err)
		return pipeline.PublishResult{}, err
	}
	partial := pipeline.PublishResult{Branch: branch}

	filePath := TestFilePath(summary)
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String("Add tests: " + summary.Title),
		Content: []byte(code.SourceText),
		Branch:  gh.String(branch),
	}
	var err error
	if reuse {
		var sha string
		sha, err = existingFileSHA(ctx, api, repo, branch, filePath)
		if err != nil {
			span.RecordError(err)
			return partial, err
		}
		if sha != "" {
			opts.SHA = gh.String(sha)
		}
	}
	if opts.SHA != nil {
		_, _, err = api.Repositories.UpdateFile(ctx, repo.Owner, repo.Repo, filePath, opts)
	} else {
		_, _, err = api.Repositories.CreateFile(ctx, repo.Owner, repo.Repo, filePath, opts)
	}
	if err != nil {
		span.RecordError(err)
		return partial, wrapAPIError("commit test file", err)
	}

	pr, _, err := api.PullRequests.Create(ctx, repo.Owner, repo.Repo, &gh.NewPullRequest{
		Title: gh.String("Add tests: " + summary.Title),
		Head:  gh.String(branch),
		Base:  gh.String(base),
		Body:  gh.String(pullRequestBody(summary, code)),
	})
	if err != nil {
		span.RecordError(err)
		return partial, wrapAPIError("open pull request", err)
	}

	span.SetAttributes(attribute.Int("github.pull_request", pr.GetNumber()))
	return pipeline.PublishResult{URL: pr.GetHTMLURL(), Number: pr.GetNumber(), Branch: branch}, nil
}

// ensureBranch creates branch from the head of base. With reuse set, an
// existing branch is left as it is.
func ensureBranch(ctx context.Context, api *gh.Client, repo pipeline.Repository, base, branch string, reuse bool) error {
	if reuse {
		_, resp, err := api.Git.GetRef(ctx, repo.Owner, repo.Repo, "heads/"+branch)
		if err == nil {
			return nil
		}
		if !isNotFound(resp, err) {
			return wrapAPIError("read branch", err)
		}
	}

	head, _, err := api.Git.GetRef(ctx, repo.Owner, repo.Repo, "heads/"+base)
	if err != nil {
		return wrapAPIError("read default branch", err)
	}
	_, _, err = api.Git.CreateRef(ctx, repo.Owner, repo.Repo, &gh.Reference{
		Ref:    gh.String("refs/heads/" + branch),
		Object: &gh.GitObject{SHA: gh.String(head.GetObject().GetSHA())},
	})
	if err != nil {
		return wrapAPIError("create branch", err)
	}
	return nil
}

// existingFileSHA returns the blob sha of path on branch, or "" if absent.
func existingFileSHA(ctx context.Context, api *gh.Client, repo pipeline.Repository, branch, path string) (string, error) {
	file, _, resp, err := api.Repositories.GetContents(ctx, repo.Owner, repo.Repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if isNotFound(resp, err) {
			return "", nil
		}
		return "", wrapAPIError("read test file", err)
	}
	return file.GetSHA(), nil
}

var (
	_ pipeline.RepositoryConnector = (*Client)(nil)
	_ pipeline.ContentFetcher      = (*Client)(nil)
	_ pipeline.Publisher           = (*Client)(nil)
)
