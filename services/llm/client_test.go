// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// OpenAI-compatible backend
// =============================================================================

func TestOpenAIClient_Generate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summaries\":[]}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "list tests", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, `{"summaries":[]}`, out)
	assert.Equal(t, "gpt-test", gotBody["model"])
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	assert.Error(t, err)
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API call failed")
}

// =============================================================================
// Anthropic backend
// =============================================================================

func TestAnthropicClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, defaultAnthropicTokens, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "write tests", req.Messages[0].Content)
		}

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "part one "}, {Type: "text", Text: "part two"}},
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "key-1", Model: "claude-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "write tests", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
}

func TestAnthropicClient_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAnthropicClient_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"}]}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	assert.Error(t, err)
}

// =============================================================================
// Ollama and llama.cpp backends
// =============================================================================

func TestOllamaClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "coder", req.Model)
		_, _ = w.Write([]byte(`{"model":"coder","response":"def test_x(): pass","done":true}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL+"/", "coder")
	require.NoError(t, err)
	out, err := client.Generate(context.Background(), "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "def test_x(): pass", out)
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'coder' not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "coder")
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull coder")
}

func TestLocalLlamaCppClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completion", r.URL.Path)
		_, _ = w.Write([]byte(`{"content":"test('x', () => {})"}`))
	}))
	defer server.Close()

	client, err := NewLocalLlamaCppClient(server.URL)
	require.NoError(t, err)
	out, err := client.Generate(context.Background(), "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "test('x', () => {})", out)
}

// =============================================================================
// Factory
// =============================================================================

func TestNewClient(t *testing.T) {
	c, err := NewClient(BackendConfig{Backend: "ollama", OllamaURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)

	c, err = NewClient(BackendConfig{Backend: "Gemini", GeminiAPIKey: "g"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(BackendConfig{Backend: "claude", AnthropicAPIKey: "a"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewClient(BackendConfig{Backend: "ollama"})
	assert.Error(t, err, "missing base URL")

	_, err = NewClient(BackendConfig{Backend: "palm"})
	assert.Error(t, err)
}
