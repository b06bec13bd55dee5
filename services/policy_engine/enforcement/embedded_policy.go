// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package enforcement embeds the content classification rules into the binary
// so the rules used to gate model prompts travel with the executable.
package enforcement

import (
	_ "embed"
)

// SecretPatterns is the raw YAML of secret_patterns.yaml.
//
//go:embed secret_patterns.yaml
var SecretPatterns []byte
