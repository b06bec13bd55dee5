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
	"log/slog"

	"github.com/AleutianAI/AleutianTestGen/pkg/extensions"
	"github.com/AleutianAI/AleutianTestGen/services/testgen"
	"github.com/spf13/cobra"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the test generator HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, c.configPath, c.getenv)
			if err != nil {
				return err
			}

			opts := extensions.DefaultOptions().WithAudit(extensions.NewSlogAuditLogger(slog.Default()))
			if cfg.APIKey != "" {
				opts = opts.WithAuth(extensions.NewStaticKeyAuthProvider(cfg.APIKey))
			}

			slog.Info("Starting testgen",
				"port", cfg.Port,
				"llm_backend", cfg.LLM.Backend,
				"api_key_set", cfg.APIKey != "",
			)
			svc, err := testgen.New(cfg, &opts)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			return svc.Run()
		},
	}

	f := cmd.Flags()
	f.Int("port", 8080, "listen port")
	f.String("host", "", "listen address")
	f.String("github-api-url", "", "GitHub REST API root, for GitHub Enterprise")
	f.String("frontend-uri", "", "browser origin allowed by CORS")
	f.String("api-key", "", "bearer key required on /api and /v1")
	f.String("otel-endpoint", "", "OTLP gRPC collector for traces")
	f.Float64("rate-limit", 5, "requests per second per client, negative disables")
	f.Int("fetch-concurrency", 4, "parallel GitHub content requests")
	addModelFlags(cmd)
	return cmd
}
