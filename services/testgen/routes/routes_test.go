// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/github"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

func newDeps(t *testing.T) Dependencies {
	t.Helper()
	host, err := github.New(github.Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	summaries := generator.NewSummarySynthesizer(nil)
	code := generator.NewCodeSynthesizer(nil)
	return Dependencies{
		Host:      host,
		Summaries: summaries,
		Code:      code,
		Registry: pipeline.NewRegistry(pipeline.Dependencies{
			Connector: host, Fetcher: host, Publisher: host, Summaries: summaries, Code: code,
		}, 0),
		Metrics:  observability.NewMetrics(reg),
		Gatherer: reg,
	}
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersRoutes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newDeps(t), extensions.DefaultOptions())

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/"},
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/api/github/connect"},
		{"POST", "/api/github/file-content"},
		{"POST", "/api/github/content"},
		{"POST", "/api/github/create-pr"},
		{"POST", "/api/ai/generate-summaries"},
		{"POST", "/api/ai/generate-test-code"},
		{"POST", "/v1/runs"},
		{"GET", "/v1/runs/:runId"},
		{"POST", "/v1/runs/:runId/files"},
		{"POST", "/v1/runs/:runId/summaries/:summaryId"},
		{"POST", "/v1/runs/:runId/publish"},
		{"DELETE", "/v1/runs/:runId"},
	}

	registered := map[string]bool{}
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, e := range expected {
		assert.True(t, registered[e.method+" "+e.path], "route %s %s not registered", e.method, e.path)
	}
}

func TestSetupRoutes_AuthGuardsAPI(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newDeps(t), extensions.DefaultOptions().WithAuth(extensions.NewStaticKeyAuthProvider("k")))

	body := `{"fileContents":[{"path":"api/models.py","language":"python","content":"def f(): pass"}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-summaries", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/ai/generate-summaries", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer k")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"fallback"`)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "health is public")
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	deps := newDeps(t)
	router := gin.New()
	SetupRoutes(router, deps, extensions.ServiceOptions{})
	deps.Metrics.RecordPublish(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "testgen_publish_total")
}
