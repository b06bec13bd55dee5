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
	"log/slog"

	gh "github.com/google/go-github/v66/github"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
)

// FetchContent downloads paths from the repository's default branch.
//
// Requests run in parallel, bounded by Config.FetchConcurrency. A path that
// is missing, is a directory, or cannot be decoded is skipped; any other
// API error fails the whole call. Results keep the order of paths.
func (c *Client) FetchContent(ctx context.Context, token string, repo pipeline.Repository, paths []string) ([]generator.FileDescriptor, error) {
	ctx, span := tracer.Start(ctx, "github.Client.FetchContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("github.repository", repo.FullName()),
		attribute.Int("paths.count", len(paths)),
	)

	api := c.api(token)
	results := make([]*generator.FileDescriptor, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			fd, err := c.fetchOne(gCtx, api, repo, p)
			if err != nil {
				return err
			}
			results[i] = fd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	files := make([]generator.FileDescriptor, 0, len(paths))
	for _, fd := range results {
		if fd != nil {
			files = append(files, *fd)
		}
	}
	return files, nil
}

// fetchOne returns nil without error for skippable paths.
func (c *Client) fetchOne(ctx context.Context, api *gh.Client, repo pipeline.Repository, p string) (*generator.FileDescriptor, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: repo.DefaultBranch}
	file, _, resp, err := api.Repositories.GetContents(ctx, repo.Owner, repo.Repo, p, opts)
	if err != nil {
		if isNotFound(resp, err) {
			slog.Warn("Skipping missing file", "repository", repo.FullName(), "path", p)
			return nil, nil
		}
		return nil, wrapAPIError("fetch "+p, err)
	}
	if file == nil {
		slog.Warn("Skipping directory", "repository", repo.FullName(), "path", p)
		return nil, nil
	}
	content, err := file.GetContent()
	if err != nil {
		slog.Warn("Skipping undecodable file", "repository", repo.FullName(), "path", p, "error", err)
		return nil, nil
	}
	lang, ok := DetectLanguage(p)
	if !ok {
		lang = generator.LanguageOther
	}
	return &generator.FileDescriptor{Path: p, Language: lang, Content: content}, nil
}
