// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package enforcement

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEmbeddedDataIntegrity(t *testing.T) {
	require.NotEmpty(t, SecretPatterns, "secret_patterns.yaml was not embedded")

	var dump map[string]any
	require.NoError(t, yaml.Unmarshal(SecretPatterns, &dump))
	assert.Contains(t, dump, "classifications")

	hash := sha256.Sum256(SecretPatterns)
	t.Logf("Current policy hash: %x", hash)
}
