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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/github"
	"github.com/AleutianAI/AleutianTestGen/services/llm"
	"github.com/AleutianAI/AleutianTestGen/services/policy_engine"
	"github.com/spf13/cobra"
)

// maxLocalFileBytes matches the largest file the HTTP API accepts.
const maxLocalFileBytes = 512 * 1024

// collectFiles reads the code files named by paths. Directories are walked
// with the same exclusions as repository listings; files named explicitly
// are always read.
func collectFiles(paths []string) ([]generator.FileDescriptor, error) {
	var files []generator.FileDescriptor
	seen := map[string]bool{}

	add := func(p string) error {
		rel := filepath.ToSlash(filepath.Clean(p))
		if seen[rel] {
			return nil
		}
		seen[rel] = true

		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.Size() > maxLocalFileBytes {
			slog.Warn("Skipping large file", "path", rel, "bytes", info.Size())
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		lang, ok := github.DetectLanguage(rel)
		if !ok {
			lang = generator.LanguageOther
		}
		files = append(files, generator.FileDescriptor{Path: rel, Language: lang, Content: string(data)})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if rel != "." && github.Skipped(rel+"/x") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := github.DetectLanguage(rel); !ok {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no code files found")
	}
	return files, nil
}

// localSynthesizers builds both synthesizers for backend. A backend that cannot
// be constructed leaves the client nil, so synthesis uses the fallbacks.
func localSynthesizers(backend llm.BackendConfig, policyFile string) (*generator.SummarySynthesizer, *generator.CodeSynthesizer, error) {
	var engine *policy_engine.PolicyEngine
	var err error
	if policyFile == "" {
		engine, err = policy_engine.NewPolicyEngine()
	} else {
		var data []byte
		data, err = os.ReadFile(policyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		engine, err = policy_engine.NewPolicyEngineFromYAML(data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load policy rules: %w", err)
	}

	var client llm.LLMClient
	switch strings.ToLower(backend.Backend) {
	case "", "none":
		slog.Info("No LLM backend configured, using templates")
	default:
		client, err = llm.NewClient(backend)
		if err != nil {
			slog.Warn("LLM backend unavailable, using templates", "backend", backend.Backend, "error", err)
			client = nil
		}
	}

	opts := []generator.Option{generator.WithPolicy(engine), generator.WithLogger(slog.Default())}
	return generator.NewSummarySynthesizer(client, opts...), generator.NewCodeSynthesizer(client, opts...), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) newSummarizeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summarize [paths...]",
		Short: "Propose test summaries for local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, c.configPath, c.getenv)
			if err != nil {
				return err
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			summaries, _, err := localSynthesizers(cfg.LLM, cfg.PolicyFile)
			if err != nil {
				return err
			}

			var batch generator.SummaryBatch
			err = c.progress.WithSpinner(fmt.Sprintf("Summarizing %d files", len(files)), func() error {
				batch, err = summaries.Synthesize(cmd.Context(), files)
				return err
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), batch)
			}
			c.printer.Summaries(batch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary batch as JSON")
	addModelFlags(cmd)
	return cmd
}

func (c *cli) newGenerateCmd() *cobra.Command {
	var (
		asJSON    bool
		summaryID int
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Write test code for one summary of local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, c.configPath, c.getenv)
			if err != nil {
				return err
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			summaries, code, err := localSynthesizers(cfg.LLM, cfg.PolicyFile)
			if err != nil {
				return err
			}

			var (
				batch generator.SummaryBatch
				out   generator.GeneratedTestCode
			)
			err = c.progress.WithSpinner("Generating tests", func() error {
				batch, err = summaries.Synthesize(cmd.Context(), files)
				if err != nil {
					return err
				}
				for _, s := range batch.Summaries {
					if s.ID == summaryID {
						out, err = code.Synthesize(cmd.Context(), s, files)
						return err
					}
				}
				return fmt.Errorf("no summary with id %d, have %d summaries", summaryID, len(batch.Summaries))
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(out.SourceText), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outPath, err)
				}
				c.progress.Success("Wrote " + outPath)
			}
			switch {
			case asJSON:
				return writeJSON(cmd.OutOrStdout(), out)
			case outPath == "":
				c.printer.Code(out)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&summaryID, "summary", 1, "id of the summary to generate tests for")
	f.StringVarP(&outPath, "out", "o", "", "write the test file here")
	f.BoolVar(&asJSON, "json", false, "print the generated code as JSON")
	addModelFlags(cmd)
	return cmd
}
