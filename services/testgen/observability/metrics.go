// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability defines the Prometheus metrics of the test
// generator service.
//
// # Metrics
//
//   - testgen_synthesis_total{stage, source, reason}: one per synthesis;
//     source is "ai" or "fallback", reason is the fallback cause or "none".
//   - testgen_synthesis_duration_seconds{stage, source}
//   - testgen_publish_total{outcome}: pull request attempts.
//   - testgen_runs_active: live pipeline runs.
//   - testgen_http_requests_total{route, status}: API requests by route
//     template and status class.
package observability

import (
	"time"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "testgen"

// Metrics holds the service collectors.
type Metrics struct {
	SynthesisTotal           *prometheus.CounterVec
	SynthesisDurationSeconds *prometheus.HistogramVec
	PublishTotal             *prometheus.CounterVec
	RunsActive               prometheus.Gauge
	HTTPRequestsTotal        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SynthesisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "synthesis_total",
				Help:      "Summary and code syntheses by stage, path taken and fallback reason",
			},
			[]string{"stage", "source", "reason"},
		),
		SynthesisDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "synthesis_duration_seconds",
				Help:      "Synthesis latency including the model call",
				Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage", "source"},
		),
		PublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publish_total",
				Help:      "Pull request creation attempts by outcome",
			},
			[]string{"outcome"},
		),
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "runs_active",
				Help:      "Pipeline runs currently held in memory",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "API requests by route template and status class",
			},
			[]string{"route", "status"},
		),
	}
}

// ObserveSynthesis implements generator.Observer.
func (m *Metrics) ObserveSynthesis(stage string, source generator.Source, reason string, elapsed time.Duration) {
	if reason == "" {
		reason = "none"
	}
	m.SynthesisTotal.WithLabelValues(stage, string(source), reason).Inc()
	m.SynthesisDurationSeconds.WithLabelValues(stage, string(source)).Observe(elapsed.Seconds())
}

// RecordPublish counts a pull request attempt.
func (m *Metrics) RecordPublish(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.PublishTotal.WithLabelValues(outcome).Inc()
}

// RecordRequest counts a finished API request. status is collapsed to its
// class ("2xx", "4xx", ...).
func (m *Metrics) RecordRequest(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	class := string(rune('0'+status/100)) + "xx"
	m.HTTPRequestsTotal.WithLabelValues(route, class).Inc()
}

var _ generator.Observer = (*Metrics)(nil)
