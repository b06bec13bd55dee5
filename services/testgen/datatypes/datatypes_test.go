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

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianTestGen/services/generator"
	"github.com/AleutianAI/AleutianTestGen/services/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ConnectRequest{RepoURL: "o/r"}).Validate())
	assert.Error(t, (&ConnectRequest{Token: "t"}).Validate())
}

func TestFileContentRequest_Validate(t *testing.T) {
	valid := FileContentRequest{Owner: "o", Repo: "r", Files: []FileRef{{Path: "a.js"}}}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, []string{"a.js"}, valid.Paths())

	tests := []struct {
		name string
		req  FileContentRequest
	}{
		{"missing owner", FileContentRequest{Repo: "r", Files: []FileRef{{Path: "a.js"}}}},
		{"missing repo", FileContentRequest{Owner: "o", Files: []FileRef{{Path: "a.js"}}}},
		{"no files", FileContentRequest{Owner: "o", Repo: "r"}},
		{"empty path", FileContentRequest{Owner: "o", Repo: "r", Files: []FileRef{{Path: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.req.Validate())
		})
	}
}

func TestFileContentRequest_TooManyFiles(t *testing.T) {
	req := FileContentRequest{Owner: "o", Repo: "r"}
	for i := 0; i <= MaxFilesPerRequest; i++ {
		req.Files = append(req.Files, FileRef{Path: "f.js"})
	}
	assert.Error(t, req.Validate())
}

func TestCreatePRRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CreatePRRequest{Owner: "o", Repo: "r", TestCode: "x"}).Validate())
	assert.Error(t, (&CreatePRRequest{Owner: "o", Repo: "r"}).Validate())
}

func TestGenerateSummariesRequest_DecodesLanguageLoosely(t *testing.T) {
	body := `{"fileContents":[{"path":"src/a.js","language":"JavaScript","content":"x"},{"path":"b.rb","language":"ruby","content":""}]}`
	var req GenerateSummariesRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NoError(t, req.Validate())

	files := req.Files()
	require.Len(t, files, 2)
	assert.Equal(t, generator.LanguageJavaScript, files[0].Language)
	assert.Equal(t, generator.LanguageOther, files[1].Language)
	assert.Equal(t, "x", files[0].Content)
}

func TestGenerateSummariesRequest_Validate(t *testing.T) {
	assert.Error(t, (&GenerateSummariesRequest{}).Validate(), "empty list")
	assert.Error(t, (&GenerateSummariesRequest{FileContents: []UploadedFile{{Path: ""}}}).Validate())

	big := UploadedFile{Path: "big.py", Content: strings.Repeat("a", MaxFileContentBytes+1)}
	assert.Error(t, (&GenerateSummariesRequest{FileContents: []UploadedFile{big}}).Validate())

	atLimit := UploadedFile{Path: "ok.py", Content: strings.Repeat("a", MaxFileContentBytes)}
	assert.NoError(t, (&GenerateSummariesRequest{FileContents: []UploadedFile{atLimit}}).Validate())
}

func TestGenerateTestCodeRequest_SummaryRulesLeftToSynthesizer(t *testing.T) {
	req := GenerateTestCodeRequest{Summary: generator.TestSummary{Title: "T", Framework: "Jest", Coverage: []string{}}}
	assert.NoError(t, req.Validate(), "empty coverage is accepted")

	req = GenerateTestCodeRequest{Summary: generator.TestSummary{}}
	assert.NoError(t, req.Validate(), "title and framework are checked by the synthesizer")
}

func TestCreatePRRequest_PartialSummary(t *testing.T) {
	req := CreatePRRequest{
		Owner: "o", Repo: "r", TestCode: "x",
		Summary: generator.TestSummary{Title: "T", Framework: "Jest"},
	}
	assert.NoError(t, req.Validate())
}

func TestGenerateTestCodeRequest_AllowsNoFiles(t *testing.T) {
	req := GenerateTestCodeRequest{Summary: generator.TestSummary{Title: "T", Framework: "Jest"}}
	assert.NoError(t, req.Validate())
	assert.Empty(t, req.Files())
}

func TestSelectFilesRequest_Validate(t *testing.T) {
	assert.NoError(t, (&SelectFilesRequest{Paths: []string{"a.js"}}).Validate())
	assert.Error(t, (&SelectFilesRequest{}).Validate())
	assert.Error(t, (&SelectFilesRequest{Paths: []string{""}}).Validate())
}

func TestRunResponse_FlattensSnapshot(t *testing.T) {
	resp := RunResponse{RunID: "abc", Snapshot: pipeline.Snapshot{State: pipeline.FilesListed}}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["runId"])
	assert.Equal(t, "files_listed", decoded["state"])
}
