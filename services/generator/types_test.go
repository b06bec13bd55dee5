// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"javascript", LanguageJavaScript},
		{" JavaScript ", LanguageJavaScript},
		{"python", LanguagePython},
		{"PYTHON", LanguagePython},
		{"typescript", LanguageOther},
		{"", LanguageOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLanguage(tt.in), "input %q", tt.in)
	}
}

func TestFileDescriptor_LanguageNormalizedFromJSON(t *testing.T) {
	var fd FileDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"path":"a.rb","language":"Ruby","content":"x"}`), &fd))
	assert.Equal(t, LanguageOther, fd.Language)

	require.Error(t, json.Unmarshal([]byte(`{"path":"a.py","language":3}`), &fd))
}

func TestPaths(t *testing.T) {
	files := []FileDescriptor{{Path: "b.py"}, {Path: "a.js"}}
	assert.Equal(t, []string{"b.py", "a.js"}, Paths(files))
	assert.Empty(t, Paths(nil))
}
