// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package testgen provides the HTTP service of the AI test case generator.
//
// The service wires the GitHub client, the summary and code synthesizers,
// the policy gate and the run registry behind a gin router, and owns the
// process-level concerns: tracing, metrics and graceful shutdown.
//
// # Usage
//
//	cfg := testgen.Config{Port: 8080, LLM: llm.BackendConfig{Backend: "ollama"}}
//	svc, err := testgen.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// A missing or broken model backend is not fatal: every synthesis then uses
// the deterministic fallback and /health reports "fallback_only".
package testgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/github"
	"github.com/AleutianAI/AleutianTestGen/services/llm"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/AleutianAI/AleutianTestGen/services/policy_engine"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/middleware"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the test generator HTTP server.
//
// # Thread Safety
//
// Safe for concurrent use after New returns. Run and RunContext block and
// should be called at most once.
type Service interface {
	// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
	Run() error

	// RunContext serves until ctx is done, then shuts down gracefully.
	RunContext(ctx context.Context) error

	// Router returns the configured gin engine, for tests.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the service configuration. Zero values take the defaults
// listed on each field.
type Config struct {
	// Port is the HTTP listen port. Default: 8080
	Port int `yaml:"port"`

	// Host is the listen address. Default: all interfaces.
	Host string `yaml:"host"`

	// LLM selects and configures the model backend. An empty Backend runs
	// the service in fallback-only mode.
	LLM llm.BackendConfig `yaml:"llm"`

	// Temperature and MaxTokens are passed to every model call when set.
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`

	// GitHubAPIURL is the GitHub REST root. Default: https://api.github.com/
	GitHubAPIURL string `yaml:"github_api_url"`

	// FetchConcurrency caps parallel content downloads. Default: 4
	FetchConcurrency int `yaml:"fetch_concurrency"`

	// FrontendURI is the browser origin allowed by CORS. Empty allows any.
	FrontendURI string `yaml:"frontend_uri"`

	// APIKey, when set, is required as a bearer token on /api and /v1.
	APIKey string `yaml:"api_key"`

	// PolicyFile replaces the embedded secret-detection rules.
	PolicyFile string `yaml:"policy_file"`

	// OTelEndpoint is the OTLP gRPC collector. Empty disables tracing export.
	OTelEndpoint string `yaml:"otel_endpoint"`

	// RateLimit is requests per second per client on /api and /v1.
	// Default: 5. Negative disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the per-client burst. Default: 20
	RateBurst int `yaml:"rate_burst"`

	// RunMaxAge is how long an idle run is kept. Default: 1 hour
	RunMaxAge time.Duration `yaml:"run_max_age"`

	// WriteTimeout bounds a whole response, including model calls.
	// Default: 3 minutes
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 15 seconds
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// GinMode is "debug", "release" or "test". Default: gin's own default.
	GinMode string `yaml:"gin_mode"`
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	llmClient     llm.LLMClient
	policyEngine  *policy_engine.PolicyEngine
	github        *github.Client
	registry      *pipeline.Registry
	metrics       *observability.Metrics
	promRegistry  *prometheus.Registry
	tracerCleanup func(context.Context)
}

// New builds the service. A nil opts uses extensions.DefaultOptions() with
// a StaticKeyAuthProvider when cfg.APIKey is set.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
		if s.config.APIKey != "" {
			s.opts = s.opts.WithAuth(extensions.NewStaticKeyAuthProvider(s.config.APIKey))
		}
	}
	if s.opts.AuditLogger == nil {
		s.opts.AuditLogger = &extensions.NopAuditLogger{}
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.promRegistry = prometheus.NewRegistry()
	s.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = observability.NewMetrics(s.promRegistry)

	if err := s.initPolicyEngine(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	s.initLLMClient()

	s.github, err = github.New(github.Config{
		BaseURL:          s.config.GitHubAPIURL,
		FetchConcurrency: s.config.FetchConcurrency,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

func (s *service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *service) RunContext(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting test generator server", "addr", srv.Addr, "backend", s.config.LLM.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down test generator server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if cfg.RunMaxAge == 0 {
		cfg.RunMaxAge = time.Hour
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	cfg.LLM.Backend = strings.ToLower(strings.TrimSpace(cfg.LLM.Backend))
	if cfg.LLM.Backend == "none" {
		cfg.LLM.Backend = ""
	}
	return cfg
}

// initTracer exports spans over OTLP gRPC when an endpoint is configured.
// Without one the global no-op provider stays in place.
func (s *service) initTracer() (func(context.Context), error) {
	if s.config.OTelEndpoint == "" {
		return func(context.Context) {}, nil
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("testgen-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	}
	return cleanup, nil
}

func (s *service) initPolicyEngine() error {
	var err error
	if s.config.PolicyFile == "" {
		s.policyEngine, err = policy_engine.NewPolicyEngine()
		return err
	}
	data, err := os.ReadFile(s.config.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	s.policyEngine, err = policy_engine.NewPolicyEngineFromYAML(data)
	if err != nil {
		return err
	}
	slog.Info("Loaded custom policy rules", "path", s.config.PolicyFile)
	return nil
}

// initLLMClient creates the model client. Failure leaves llmClient nil so
// the synthesizers always fall back; the service still starts.
func (s *service) initLLMClient() {
	if s.config.LLM.Backend == "" {
		slog.Warn("No LLM backend configured, using fallback generation only")
		return
	}
	client, err := llm.NewClient(s.config.LLM)
	if err != nil {
		slog.Warn("LLM backend unavailable, using fallback generation only",
			"backend", s.config.LLM.Backend, "error", err)
		s.config.LLM.Backend = ""
		return
	}
	s.llmClient = client
}

func (s *service) synthesizerOptions() []generator.Option {
	return []generator.Option{
		generator.WithPolicy(s.policyEngine),
		generator.WithObserver(s.metrics),
		generator.WithParams(llm.GenerationParams{
			Temperature: s.config.Temperature,
			MaxTokens:   s.config.MaxTokens,
		}),
	}
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.Use(otelgin.Middleware("testgen-service"))
	s.router.Use(middleware.CORS(s.config.FrontendURI))
	s.router.Use(middleware.RequestMetrics(s.metrics))

	summaries := generator.NewSummarySynthesizer(s.llmClient, s.synthesizerOptions()...)
	code := generator.NewCodeSynthesizer(s.llmClient, s.synthesizerOptions()...)

	s.registry = pipeline.NewRegistry(pipeline.Dependencies{
		Connector: s.github,
		Fetcher:   s.github,
		Publisher: s.github,
		Summaries: summaries,
		Code:      code,
		Audit:     s.opts.AuditLogger,
	}, s.config.RunMaxAge)

	var limiter *middleware.RateLimiter
	if s.config.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst)
	}

	routes.SetupRoutes(s.router, routes.Dependencies{
		Host:        s.github,
		Summaries:   summaries,
		Code:        code,
		Registry:    s.registry,
		Metrics:     s.metrics,
		Gatherer:    s.promRegistry,
		RateLimiter: limiter,
		Backend:     s.config.LLM.Backend,
	}, s.opts)
}

func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
	if err := s.opts.AuditLogger.Flush(context.Background()); err != nil {
		slog.Warn("Failed to flush audit log", "error", err)
	}
}
