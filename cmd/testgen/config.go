// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianTestGen/services/testgen"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// applyEnv overlays the environment variables that are set onto cfg.
func applyEnv(cfg *testgen.Config, getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("TESTGEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TESTGEN_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	setString(&cfg.Host, "TESTGEN_HOST")
	setString(&cfg.LLM.Backend, "LLM_BACKEND_TYPE")
	setString(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.LLM.OpenAIURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.LLM.AnthropicModel, "CLAUDE_MODEL")
	setString(&cfg.LLM.OllamaURL, "OLLAMA_BASE_URL")
	setString(&cfg.LLM.OllamaModel, "OLLAMA_MODEL")
	setString(&cfg.LLM.LocalURL, "LLAMA_SERVER_URL")
	setString(&cfg.OTelEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.GitHubAPIURL, "GITHUB_API_URL")
	setString(&cfg.FrontendURI, "FRONTEND_URI")
	setString(&cfg.APIKey, "TESTGEN_API_KEY")
	setString(&cfg.PolicyFile, "TESTGEN_POLICY_FILE")
	return nil
}

// applyFile overlays the keys present in the YAML file at path onto cfg.
func applyFile(cfg *testgen.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// flagBinding copies one flag onto cfg when the user set it.
type flagBinding struct {
	name  string
	apply func(cfg *testgen.Config, cmd *cobra.Command) error
}

func stringFlag(name string, dst func(*testgen.Config) *string) flagBinding {
	return flagBinding{name: name, apply: func(cfg *testgen.Config, cmd *cobra.Command) error {
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		*dst(cfg) = v
		return nil
	}}
}

func intFlag(name string, dst func(*testgen.Config) *int) flagBinding {
	return flagBinding{name: name, apply: func(cfg *testgen.Config, cmd *cobra.Command) error {
		v, err := cmd.Flags().GetInt(name)
		if err != nil {
			return err
		}
		*dst(cfg) = v
		return nil
	}}
}

func floatFlag(name string, dst func(*testgen.Config) *float64) flagBinding {
	return flagBinding{name: name, apply: func(cfg *testgen.Config, cmd *cobra.Command) error {
		v, err := cmd.Flags().GetFloat64(name)
		if err != nil {
			return err
		}
		*dst(cfg) = v
		return nil
	}}
}

// configFlags are the flags that map onto testgen.Config. Commands register
// the subset they use; unregistered names are skipped.
var configFlags = []flagBinding{
	intFlag("port", func(c *testgen.Config) *int { return &c.Port }),
	stringFlag("host", func(c *testgen.Config) *string { return &c.Host }),
	stringFlag("backend", func(c *testgen.Config) *string { return &c.LLM.Backend }),
	stringFlag("model", func(c *testgen.Config) *string { return modelField(c) }),
	stringFlag("github-api-url", func(c *testgen.Config) *string { return &c.GitHubAPIURL }),
	stringFlag("frontend-uri", func(c *testgen.Config) *string { return &c.FrontendURI }),
	stringFlag("api-key", func(c *testgen.Config) *string { return &c.APIKey }),
	stringFlag("policy-file", func(c *testgen.Config) *string { return &c.PolicyFile }),
	stringFlag("otel-endpoint", func(c *testgen.Config) *string { return &c.OTelEndpoint }),
	floatFlag("rate-limit", func(c *testgen.Config) *float64 { return &c.RateLimit }),
	intFlag("fetch-concurrency", func(c *testgen.Config) *int { return &c.FetchConcurrency }),
}

// modelField returns the model setting of the selected backend. The local
// llama.cpp backend serves a single model and has none; its URL is used.
func modelField(c *testgen.Config) *string {
	switch strings.ToLower(c.LLM.Backend) {
	case "gemini":
		return &c.LLM.GeminiModel
	case "claude", "anthropic":
		return &c.LLM.AnthropicModel
	case "ollama":
		return &c.LLM.OllamaModel
	case "local":
		return &c.LLM.LocalURL
	default:
		return &c.LLM.OpenAIModel
	}
}

// applyFlags overlays the flags the user explicitly set onto cfg. The
// backend is applied first so --model lands on the right field.
func applyFlags(cfg *testgen.Config, cmd *cobra.Command) error {
	for _, b := range configFlags {
		if cmd.Flags().Lookup(b.name) == nil || !cmd.Flags().Changed(b.name) {
			continue
		}
		if err := b.apply(cfg, cmd); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig builds the configuration: defaults < env < file < flags.
func loadConfig(cmd *cobra.Command, configPath string, getenv func(string) string) (testgen.Config, error) {
	var cfg testgen.Config
	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return cfg, err
		}
	}
	if err := applyFlags(&cfg, cmd); err != nil {
		return cfg, err
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
