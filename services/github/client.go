// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package github implements the pipeline's repository collaborators against
// the GitHub REST API.
//
// # Description
//
// Client lists repository code files, fetches their content, and publishes
// generated tests as a branch, commit and pull request. The user's token is
// passed per call and never stored.
//
// Errors returned by GitHub keep GitHub's own message text (for example
// "Bad credentials") so it can be shown to the user unchanged.
package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("testgen.github")

// Config configures a Client.
type Config struct {
	// BaseURL is the REST API root. Empty means https://api.github.com/.
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// FetchConcurrency caps parallel content requests. Default 4.
	FetchConcurrency int
}

// Client talks to one GitHub API endpoint.
type Client struct {
	base             *gh.Client
	fetchConcurrency int
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := gh.NewClient(cfg.HTTPClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.BaseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		base.BaseURL = u
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	return &Client{base: base, fetchConcurrency: cfg.FetchConcurrency}, nil
}

// api returns a client authenticated with token, or anonymous when empty.
func (c *Client) api(token string) *gh.Client {
	if token == "" {
		return c.base
	}
	return c.base.WithAuthToken(token)
}

// =============================================================================
// Errors
// =============================================================================

// APIError is a GitHub API failure. Error() is GitHub's message.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// wrapAPIError converts go-github errors into APIError. Other errors (for
// example a refused connection) are returned with context.
func wrapAPIError(action string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		msg := ghErr.Message
		if msg == "" {
			msg = fmt.Sprintf("%s failed", action)
		}
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &APIError{StatusCode: status, Message: msg, Err: err}
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{StatusCode: http.StatusForbidden, Message: rateErr.Message, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// =============================================================================
// Locators
// =============================================================================

var locatorPattern = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?github\.com/)?([A-Za-z0-9_-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// ErrInvalidLocator is returned for repository strings ParseLocator cannot
// read.
var ErrInvalidLocator = errors.New("invalid GitHub repository URL")

// ParseLocator accepts "https://github.com/<owner>/<repo>[.git]",
// "github.com/<owner>/<repo>" or "<owner>/<repo>".
func ParseLocator(locator string) (owner, repo string, err error) {
	m := locatorPattern.FindStringSubmatch(strings.TrimSpace(locator))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return m[1], m[2], nil
}
