// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/github"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/datatypes"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// upstream wraps a repository host failure so it maps to 502. Locator
// errors stay client errors.
func upstream(op string, err error) error {
	if errors.Is(err, github.ErrInvalidLocator) {
		return err
	}
	return &pipeline.ExternalCollaboratorError{Op: op, Err: err}
}

// HandleConnect lists the code files of a repository without creating a run.
func HandleConnect(connector pipeline.RepositoryConnector) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleConnect")
		defer span.End()

		var req datatypes.ConnectRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		listing, err := connector.Connect(ctx, req.Token, req.RepoURL)
		if err != nil {
			respondError(c, span, upstream("connect", err))
			return
		}
		span.SetAttributes(
			attribute.String("github.repository", listing.Repository.FullName()),
			attribute.Int("files.count", len(listing.Files)),
		)
		slog.Info("Listed repository", "repository", listing.Repository.FullName(), "files", len(listing.Files))
		c.JSON(http.StatusOK, datatypes.ConnectResponse{Files: listing.Files, Repository: listing.Repository})
	}
}

// HandleFileContent fetches the requested files from the repository's
// default branch. Unreadable files are left out of the response.
func HandleFileContent(resolver RepositoryResolver, fetcher pipeline.ContentFetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleFileContent")
		defer span.End()

		var req datatypes.FileContentRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		repo, err := resolver.Repository(ctx, req.Token, req.Owner, req.Repo)
		if err != nil {
			respondError(c, span, upstream("connect", err))
			return
		}
		files, err := fetcher.FetchContent(ctx, req.Token, repo, req.Paths())
		if err != nil {
			respondError(c, span, upstream("fetch_content", err))
			return
		}
		span.SetAttributes(attribute.Int("files.fetched", len(files)))
		c.JSON(http.StatusOK, datatypes.FileContentResponse{FileContents: files})
	}
}

// HandleCreatePR commits the submitted test code on a new branch and opens a
// pull request.
func HandleCreatePR(resolver RepositoryResolver, publisher pipeline.Publisher, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleCreatePR")
		defer span.End()

		var req datatypes.CreatePRRequest
		if !bindAndValidate(c, span, &req) {
			return
		}

		repo, err := resolver.Repository(ctx, req.Token, req.Owner, req.Repo)
		if err != nil {
			respondError(c, span, upstream("connect", err))
			return
		}
		code := generator.GeneratedTestCode{SummaryID: req.Summary.ID, SourceText: req.TestCode, Source: req.Source}
		if code.Source == "" {
			code.Source = generator.SourceAI
		}
		result, err := publisher.CreateChange(ctx, req.Token, repo, code, req.Summary, req.Branch)
		metrics.RecordPublish(err == nil)
		if err != nil {
			status, body := errorBody(c, span, upstream("publish", err))
			body.Branch = result.Branch
			c.JSON(status, body)
			return
		}
		slog.Info("Opened pull request", "repository", repo.FullName(), "url", result.URL)
		c.JSON(http.StatusOK, datatypes.CreatePRResponse{PullRequest: result})
	}
}

// RepositoryResolver describes a repository without listing its tree. The
// stateless routes use it to find the default branch.
type RepositoryResolver interface {
	Repository(ctx context.Context, token, owner, repo string) (pipeline.Repository, error)
}
