// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// BackendConfig carries the settings for every supported backend. Only the
// fields relevant to Backend are read.
type BackendConfig struct {
	Backend string `yaml:"backend"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIURL    string `yaml:"openai_base_url"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`

	OllamaURL   string `yaml:"ollama_base_url"`
	OllamaModel string `yaml:"ollama_model"`

	LocalURL string `yaml:"local_base_url"`
}

// NewClient builds the LLMClient selected by cfg.Backend.
//
// # Description
//
// Mirrors the backend switch of the service bootstrap: "openai", "gemini",
// "claude"/"anthropic", "ollama" and "local" (llama.cpp). An empty or
// unknown backend is an error; callers that want to run without a model
// should not construct a client at all and let synthesis fall back.
func NewClient(cfg BackendConfig) (LLMClient, error) {
	switch strings.ToLower(cfg.Backend) {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIURL,
		})
	case "gemini":
		slog.Info("Using Gemini LLM backend")
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	case "claude", "anthropic":
		slog.Info("Using Anthropic (Claude) LLM backend")
		return NewAnthropicClient(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
	case "local":
		slog.Info("Using Local Llama.cpp LLM backend")
		return NewLocalLlamaCppClient(cfg.LocalURL)
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
}
