// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package github

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"go.opentelemetry.io/otel/attribute"
)

// codeExtensions maps supported source extensions to a language family.
var codeExtensions = map[string]generator.Language{
	".js":    generator.LanguageJavaScript,
	".jsx":   generator.LanguageJavaScript,
	".ts":    generator.LanguageJavaScript,
	".tsx":   generator.LanguageJavaScript,
	".mjs":   generator.LanguageJavaScript,
	".cjs":   generator.LanguageJavaScript,
	".py":    generator.LanguagePython,
	".java":  generator.LanguageOther,
	".go":    generator.LanguageOther,
	".rb":    generator.LanguageOther,
	".cs":    generator.LanguageOther,
	".cpp":   generator.LanguageOther,
	".c":     generator.LanguageOther,
	".php":   generator.LanguageOther,
	".kt":    generator.LanguageOther,
	".swift": generator.LanguageOther,
	".rs":    generator.LanguageOther,
}

// skippedDirs are never listed, at any depth.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// DetectLanguage returns the language family for path and whether the
// extension is a supported code file.
func DetectLanguage(p string) (generator.Language, bool) {
	lang, ok := codeExtensions[strings.ToLower(path.Ext(p))]
	return lang, ok
}

// Skipped reports whether any directory of p is excluded from listings:
// node_modules, vendor, dist, build and dot-directories.
func Skipped(p string) bool {
	dirs := strings.Split(p, "/")
	for _, dir := range dirs[:len(dirs)-1] {
		if skippedDirs[dir] || strings.HasPrefix(dir, ".") {
			return true
		}
	}
	return false
}

// Connect resolves locator and lists the code files of its default branch.
func (c *Client) Connect(ctx context.Context, token, locator string) (pipeline.Listing, error) {
	ctx, span := tracer.Start(ctx, "github.Client.Connect")
	defer span.End()

	owner, name, err := ParseLocator(locator)
	if err != nil {
		return pipeline.Listing{}, err
	}
	span.SetAttributes(attribute.String("github.repository", owner+"/"+name))
	identity, err := c.Repository(ctx, token, owner, name)
	if err != nil {
		span.RecordError(err)
		return pipeline.Listing{}, err
	}

	tree, _, err := c.api(token).Git.GetTree(ctx, identity.Owner, identity.Repo, identity.DefaultBranch, true)
	if err != nil {
		span.RecordError(err)
		return pipeline.Listing{}, wrapAPIError("list repository tree", err)
	}
	if tree.GetTruncated() {
		slog.Warn("Repository tree truncated by GitHub, listing is partial",
			"repository", identity.FullName())
	}

	files := []pipeline.FileEntry{}
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		p := entry.GetPath()
		if Skipped(p) {
			continue
		}
		lang, ok := DetectLanguage(p)
		if !ok {
			continue
		}
		files = append(files, pipeline.FileEntry{Path: p, Language: lang})
	}
	span.SetAttributes(attribute.Int("files.count", len(files)))
	return pipeline.Listing{Repository: identity, Files: files}, nil
}

// Repository reads the identity and default branch of owner/name.
func (c *Client) Repository(ctx context.Context, token, owner, name string) (pipeline.Repository, error) {
	repo, _, err := c.api(token).Repositories.Get(ctx, owner, name)
	if err != nil {
		return pipeline.Repository{}, wrapAPIError("get repository", err)
	}
	identity := pipeline.Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Repo:          repo.GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
		HTMLURL:       repo.GetHTMLURL(),
	}
	if identity.Owner == "" {
		identity.Owner = owner
	}
	if identity.Repo == "" {
		identity.Repo = name
	}
	if identity.DefaultBranch == "" {
		identity.DefaultBranch = "main"
	}
	return identity, nil
}
