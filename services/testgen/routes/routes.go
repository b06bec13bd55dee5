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
	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/handlers"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/middleware"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RepositoryHost is the GitHub client as seen by the routes.
type RepositoryHost interface {
	pipeline.RepositoryConnector
	pipeline.ContentFetcher
	pipeline.Publisher
	handlers.RepositoryResolver
}

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Host      RepositoryHost
	Summaries pipeline.SummaryGenerator
	Code      pipeline.CodeGenerator
	Registry  *pipeline.Registry
	Metrics   *observability.Metrics
	// Gatherer serves /metrics. Nil means the prometheus default registry.
	Gatherer prometheus.Gatherer
	// RateLimiter guards the /api and /v1 groups. Optional.
	RateLimiter *middleware.RateLimiter
	// Backend names the configured model backend for /health.
	Backend string
}

func SetupRoutes(router *gin.Engine, deps Dependencies, opts extensions.ServiceOptions) {
	defaults := extensions.DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = defaults.AuthProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = defaults.AuditLogger
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router.GET("/", handlers.HandleRoot())
	router.GET("/health", handlers.HandleHealth(deps.Backend))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	guarded := []gin.HandlerFunc{middleware.AuthMiddleware(opts.AuthProvider)}
	if deps.RateLimiter != nil {
		guarded = append(guarded, deps.RateLimiter.Middleware())
	}

	api := router.Group("/api", guarded...)
	{
		gh := api.Group("/github")
		{
			gh.POST("/connect", handlers.HandleConnect(deps.Host))
			gh.POST("/file-content", handlers.HandleFileContent(deps.Host, deps.Host))
			gh.POST("/content", handlers.HandleFileContent(deps.Host, deps.Host))
			gh.POST("/create-pr", handlers.HandleCreatePR(deps.Host, deps.Host, deps.Metrics))
		}
		ai := api.Group("/ai")
		{
			ai.POST("/generate-summaries", handlers.HandleGenerateSummaries(deps.Summaries))
			ai.POST("/generate-test-code", handlers.HandleGenerateTestCode(deps.Code))
		}
	}

	runs := &handlers.Runs{Registry: deps.Registry, Metrics: deps.Metrics, Audit: opts.AuditLogger}
	v1 := router.Group("/v1", guarded...)
	{
		v1.POST("/runs", runs.Create())
		v1.GET("/runs/:runId", runs.Get())
		v1.POST("/runs/:runId/files", runs.SelectFiles())
		v1.POST("/runs/:runId/summaries/:summaryId", runs.SelectSummary())
		v1.POST("/runs/:runId/publish", runs.Publish())
		v1.DELETE("/runs/:runId", runs.Delete())
	}
}
