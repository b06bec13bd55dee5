// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command testgen serves the AI test case generator API and runs the
// summary and code synthesizers against local files.
//
// # Usage
//
//	testgen serve --port 8080 --backend ollama
//	testgen summarize ./src
//	testgen generate --summary 2 --out tests/test_api.py ./api
//
// # Configuration
//
// Settings come from, in increasing precedence: built-in defaults,
// environment variables, the YAML file named by --config, and flags.
//
//   - TESTGEN_PORT, TESTGEN_HOST: listen address
//   - LLM_BACKEND_TYPE: openai, gemini, claude, ollama, local or none
//   - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL
//   - GEMINI_API_KEY, GEMINI_MODEL
//   - ANTHROPIC_API_KEY, CLAUDE_MODEL
//   - OLLAMA_BASE_URL, OLLAMA_MODEL
//   - LLAMA_SERVER_URL: llama.cpp server for the "local" backend
//   - GITHUB_API_URL, FRONTEND_URI, TESTGEN_API_KEY, TESTGEN_POLICY_FILE
//   - OTEL_EXPORTER_OTLP_ENDPOINT: enables trace export
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
