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
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("```[a-zA-Z]*\n?")

// ExtractJSONObject returns the first balanced {...} substring of text.
//
// # Description
//
// Models frequently wrap JSON in prose or markdown fences. Starting at each
// '{' in turn, the scanner tracks brace depth while skipping over JSON
// string literals (including escaped quotes), and returns the first span
// that closes back to depth zero. Braces inside strings do not count.
//
// # Outputs
//
//   - string: The object text, including its outer braces.
//   - bool: False when no balanced object exists anywhere in text.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchObject(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchObject returns the index of the brace closing the object opened at
// text[start].
func matchObject(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// StripCodeFences removes every markdown fence marker (``` with an optional
// language tag and trailing newline) and trims surrounding whitespace.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
}
