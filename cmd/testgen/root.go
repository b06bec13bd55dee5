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
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianTestGen/pkg/logging"
	"github.com/AleutianAI/AleutianTestGen/pkg/ux"
	"github.com/spf13/cobra"
)

// cli holds the state shared by all commands.
type cli struct {
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string
	plain      bool

	logger *logging.Logger
	// printer writes results to stdout; progress writes spinners and status
	// lines to stderr so --json output stays clean. progress is plain unless
	// stderr is a terminal.
	printer  ux.Printer
	progress ux.Printer
	getenv   func(string) string
}

func newRootCmd() *cobra.Command {
	c := &cli{getenv: os.Getenv}

	root := &cobra.Command{
		Use:           "testgen",
		Short:         "Generate unit tests for a repository with an LLM",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(c.logLevel)
			if err != nil {
				return err
			}
			c.logger = logging.New(logging.Config{
				Level:   level,
				Service: "testgen",
				JSON:    c.logJSON,
				LogDir:  c.logDir,
				Output:  cmd.ErrOrStderr(),
			})
			slog.SetDefault(c.logger.Slog())
			c.printer = ux.Printer{W: cmd.OutOrStdout(), Plain: c.plain}
			stderr := cmd.ErrOrStderr()
			c.progress = ux.Printer{W: stderr, Plain: c.plain || !ux.IsTerminal(stderr)}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logger != nil {
				return c.logger.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&c.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.BoolVar(&c.logJSON, "log-json", false, "write logs as JSON")
	pf.StringVar(&c.logDir, "log-dir", "", "also write JSON logs to a daily file in this directory")
	pf.BoolVar(&c.plain, "plain", false, "undecorated output for scripts")

	root.AddCommand(c.newServeCmd(), c.newSummarizeCmd(), c.newGenerateCmd())
	return root
}

// addModelFlags registers the flags that select the model backend.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("backend", "", "LLM backend: openai, gemini, claude, ollama, local or none")
	f.String("model", "", "model name for the selected backend")
	f.String("policy-file", "", "YAML secret-detection rules replacing the built-in set")
}
