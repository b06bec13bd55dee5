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
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GeminiOpenAIBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const defaultSystemPrompt = "You are a senior software engineer who writes precise, runnable automated tests."

// OpenAIConfig configures an OpenAI-protocol client.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string // empty means api.openai.com
	SystemPrompt string
	// SecretName is the /run/secrets file consulted when APIKey is empty.
	SecretName string
}

type OpenAIClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.SecretName == "" {
		cfg.SecretName = "openai_api_key"
	}
	apiKey := resolveSecret(cfg.APIKey, cfg.SecretName)
	if apiKey == "" {
		slog.Error("API key not set and secret not found", "secret", cfg.SecretName)
		return nil, fmt.Errorf("API key for OpenAI-compatible backend is not set")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		slog.Warn("model not set, defaulting", "model", cfg.Model)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	slog.Info("Initializing OpenAI-compatible client", "model", cfg.Model, "custom_base_url", cfg.BaseURL != "")
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(config),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// NewGeminiClient builds an OpenAIClient pointed at the Gemini endpoint.
func NewGeminiClient(apiKey, model string) (*OpenAIClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return NewOpenAIClient(OpenAIConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    GeminiOpenAIBaseURL,
		SecretName: "gemini_api_key",
	})
}

// Generate implements the LLMClient interface
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
