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
	"context"
	"log/slog"
	"sync"
	"time"
)

// AuditEvent records one security-relevant action.
//
// # Event Types
//
// Events use "category.action" names:
//   - "run.create", "run.delete": pipeline run lifecycle
//   - "repo.connect": repository listing with a user credential
//   - "repo.publish": branch, commit and pull request creation
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "repo.publish",
//	    UserID:       authInfo.UserID,
//	    Action:       "create",
//	    ResourceType: "pull_request",
//	    ResourceID:   "octo/app#12",
//	    Outcome:      "success",
//	}
type AuditEvent struct {
	EventType string

	// Timestamp defaults to time.Now().UTC() when zero.
	Timestamp time.Time

	// UserID is "system" for automated actions and "anonymous" if unknown.
	UserID string

	Action       string
	ResourceType string
	ResourceID   string

	// Outcome is one of "success", "failure", "blocked".
	Outcome string

	// Metadata holds event-specific details such as "error" or
	// "duration_ms". Never put credentials here.
	Metadata map[string]any
}

// AuditFilter selects events in Query. Zero fields match everything.
type AuditFilter struct {
	EventTypes []string
	ResourceID string
	Outcome    string

	// Limit caps the result size. Zero means no cap.
	Limit int
}

func (f AuditFilter) matches(e AuditEvent) bool {
	if len(f.EventTypes) > 0 {
		found := false
		for _, t := range f.EventTypes {
			if t == e.EventType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ResourceID != "" && f.ResourceID != e.ResourceID {
		return false
	}
	if f.Outcome != "" && f.Outcome != e.Outcome {
		return false
	}
	return true
}

// AuditLogger persists audit events.
//
// Log must return quickly; implementations that ship events remotely should
// buffer and drain on Flush. Implementations must be safe for concurrent use.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	Flush(ctx context.Context) error
}

// NopAuditLogger discards everything.
type NopAuditLogger struct{}

func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error { return nil }

func (l *NopAuditLogger) Query(_ context.Context, _ AuditFilter) ([]AuditEvent, error) {
	return []AuditEvent{}, nil
}

func (l *NopAuditLogger) Flush(_ context.Context) error { return nil }

// SlogAuditLogger writes each event as one structured log record and keeps
// the most recent events in memory for Query.
type SlogAuditLogger struct {
	logger   *slog.Logger
	capacity int

	mu     sync.Mutex
	events []AuditEvent
}

// DefaultAuditCapacity is the number of events SlogAuditLogger retains.
const DefaultAuditCapacity = 1000

// NewSlogAuditLogger returns a logger writing to logger, or slog.Default()
// when nil.
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger, capacity: DefaultAuditCapacity}
}

// Log records event.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.UserID == "" {
		event.UserID = "anonymous"
	}

	attrs := []any{
		"event_type", event.EventType,
		"user_id", event.UserID,
		"action", event.Action,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"outcome", event.Outcome,
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, "meta_"+k, v)
	}
	l.logger.InfoContext(ctx, "audit", attrs...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	if over := len(l.events) - l.capacity; over > 0 {
		l.events = append([]AuditEvent(nil), l.events[over:]...)
	}
	return nil
}

// Query returns retained events matching filter, oldest first.
func (l *SlogAuditLogger) Query(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []AuditEvent{}
	for _, e := range l.events {
		if !filter.matches(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Flush is a no-op; records are written synchronously.
func (l *SlogAuditLogger) Flush(_ context.Context) error { return nil }

var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
