// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/testgen/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAuthProvider struct {
	authInfo *extensions.AuthInfo
	err      error
}

func (m *mockAuthProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.authInfo, nil
}

func serve(router *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Auth
// =============================================================================

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing", "", ""},
		{"no scheme", "abc123", ""},
		{"basic auth", "Basic abc123", ""},
		{"empty bearer", "Bearer ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

func TestAuthMiddleware_SetsAuthInfo(t *testing.T) {
	provider := &mockAuthProvider{authInfo: &extensions.AuthInfo{UserID: "dev", Roles: []string{"user"}}}
	router := gin.New()
	router.Use(AuthMiddleware(provider))
	router.GET("/", func(c *gin.Context) {
		info := GetAuthInfo(c)
		require.NotNil(t, info)
		c.String(http.StatusOK, info.UserID)
	})

	w := serve(router, http.MethodGet, "/", map[string]string{"Authorization": "Bearer k"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev", w.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	for _, providerErr := range []error{extensions.ErrUnauthorized, errors.New("backend down")} {
		router := gin.New()
		router.Use(AuthMiddleware(&mockAuthProvider{err: providerErr}))
		called := false
		router.GET("/", func(c *gin.Context) { called = true })

		w := serve(router, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
	}
}

func TestAuthMiddleware_StaticKey(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware(extensions.NewStaticKeyAuthProvider("s3cret")))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/", map[string]string{"Authorization": "Bearer s3cret"}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/", map[string]string{"Authorization": "Bearer nope"}).Code)
}

func TestGetAuthInfo_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/", nil).Code)
	w := serve(router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	fixed = fixed.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/", nil).Code)
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	rl.limiterFor("a")
	fixed = fixed.Add(visitorTTL + time.Second)
	rl.limiterFor("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}

// =============================================================================
// CORS
// =============================================================================

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS("http://localhost:3000/"))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(router, http.MethodGet, "/", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS_Wildcard(t *testing.T) {
	router := gin.New()
	router.Use(CORS(""))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/", map[string]string{"Origin": "http://anything"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// Request metrics
// =============================================================================

func TestRequestMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	router := gin.New()
	router.Use(RequestMetrics(metrics))
	router.GET("/v1/runs/:runId", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(router, http.MethodGet, "/v1/runs/abc", nil)
	serve(router, http.MethodGet, "/v1/runs/def", nil)
	serve(router, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("/v1/runs/:runId", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("unmatched", "4xx")))
}
