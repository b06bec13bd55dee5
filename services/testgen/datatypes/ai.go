// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "github.com/AleutianAI/AleutianTestGen/services/generator"

// UploadedFile is a FileDescriptor as sent by clients. Content is size
// checked; Language accepts any string.
type UploadedFile struct {
	Path     string             `json:"path" validate:"required"`
	Language generator.Language `json:"language"`
	Content  string             `json:"content" validate:"maxbytes"`
}

func toDescriptors(files []UploadedFile) []generator.FileDescriptor {
	out := make([]generator.FileDescriptor, len(files))
	for i, f := range files {
		out[i] = generator.FileDescriptor{Path: f.Path, Language: f.Language, Content: f.Content}
	}
	return out
}

// GenerateSummariesRequest is the body of POST /api/ai/generate-summaries.
type GenerateSummariesRequest struct {
	FileContents []UploadedFile `json:"fileContents" validate:"required,min=1,max=200,dive"`
}

func (r *GenerateSummariesRequest) Validate() error { return validate.Struct(r) }

// Files converts the uploaded files for the synthesizer.
func (r *GenerateSummariesRequest) Files() []generator.FileDescriptor {
	return toDescriptors(r.FileContents)
}

// GenerateSummariesResponse is a SummaryBatch on the wire.
type GenerateSummariesResponse struct {
	Summaries []generator.TestSummary `json:"summaries"`
	Source    generator.Source        `json:"source"`
}

// GenerateTestCodeRequest is the body of POST /api/ai/generate-test-code.
//
// Summary is not validated here; CodeSynthesizer rejects a summary without a
// title or framework and accepts everything else.
type GenerateTestCodeRequest struct {
	Summary      generator.TestSummary `json:"summary" validate:"-"`
	FileContents []UploadedFile        `json:"fileContents" validate:"max=200,dive"`
}

func (r *GenerateTestCodeRequest) Validate() error { return validate.Struct(r) }

// Files converts the uploaded files for the synthesizer.
func (r *GenerateTestCodeRequest) Files() []generator.FileDescriptor {
	return toDescriptors(r.FileContents)
}

// GenerateTestCodeResponse carries generated test source.
type GenerateTestCodeResponse struct {
	TestCode string           `json:"testCode"`
	Source   generator.Source `json:"source"`
}
