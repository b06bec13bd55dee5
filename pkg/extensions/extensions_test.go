// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// ServiceOptions Tests
// ============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	_, ok := opts.AuthProvider.(*NopAuthProvider)
	assert.True(t, ok, "AuthProvider should be *NopAuthProvider")
	_, ok = opts.AuditLogger.(*NopAuditLogger)
	assert.True(t, ok, "AuditLogger should be *NopAuditLogger")
}

func TestServiceOptions_WithIsCopy(t *testing.T) {
	original := DefaultOptions()
	auth := NewStaticKeyAuthProvider("k")
	audit := NewSlogAuditLogger(nil)

	updated := original.WithAuth(auth).WithAudit(audit)

	assert.Same(t, auth, updated.AuthProvider)
	assert.Same(t, audit, updated.AuditLogger)
	_, ok := original.AuthProvider.(*NopAuthProvider)
	assert.True(t, ok, "original options must be unchanged")
}

// ============================================================================
// Auth Tests
// ============================================================================

func TestNopAuthProvider_Validate(t *testing.T) {
	info, err := (&NopAuthProvider{}).Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole("admin"))
	assert.False(t, info.HasRole("viewer"))
}

func TestStaticKeyAuthProvider_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		token   string
		wantErr bool
	}{
		{"matching key", "s3cret", "s3cret", false},
		{"wrong key", "s3cret", "s3creT", true},
		{"prefix of key", "s3cret", "s3c", true},
		{"empty token", "s3cret", "", true},
		{"unconfigured key rejects everything", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := NewStaticKeyAuthProvider(tt.key).Validate(context.Background(), tt.token)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnauthorized))
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "api-key", info.UserID)
		})
	}
}

// ============================================================================
// Audit Tests
// ============================================================================

func TestNopAuditLogger(t *testing.T) {
	l := &NopAuditLogger{}
	ctx := context.Background()
	assert.NoError(t, l.Log(ctx, AuditEvent{EventType: "repo.publish"}))
	events, err := l.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.NoError(t, l.Flush(ctx))
}

func TestSlogAuditLogger_LogAndQuery(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	require.NoError(t, l.Log(ctx, AuditEvent{
		EventType:  "repo.publish",
		Action:     "create",
		ResourceID: "octo/app#1",
		Outcome:    "success",
		Metadata:   map[string]any{"branch": "testgen/x-1"},
	}))
	require.NoError(t, l.Log(ctx, AuditEvent{EventType: "repo.publish", ResourceID: "octo/app", Outcome: "failure"}))
	require.NoError(t, l.Log(ctx, AuditEvent{EventType: "run.create", UserID: "u1", Outcome: "success"}))

	var record map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &record))
	assert.Equal(t, "audit", record["msg"])
	assert.Equal(t, "repo.publish", record["event_type"])
	assert.Equal(t, "anonymous", record["user_id"])
	assert.Equal(t, "testgen/x-1", record["meta_branch"])

	all, err := l.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[0].Timestamp.IsZero())

	failures, err := l.Query(ctx, AuditFilter{EventTypes: []string{"repo.publish"}, Outcome: "failure"})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "octo/app", failures[0].ResourceID)

	limited, err := l.Query(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSlogAuditLogger_RetainsMostRecent(t *testing.T) {
	l := NewSlogAuditLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	l.capacity = 3
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Log(ctx, AuditEvent{EventType: "run.create", ResourceID: fmt.Sprint(i)}))
	}
	events, err := l.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "2", events[0].ResourceID)
	assert.Equal(t, "4", events[2].ResourceID)
}

func TestSlogAuditLogger_Concurrent(t *testing.T) {
	l := NewSlogAuditLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Log(ctx, AuditEvent{EventType: "run.create"})
			_, _ = l.Query(ctx, AuditFilter{})
		}()
	}
	wg.Wait()
	events, err := l.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 20)
}
