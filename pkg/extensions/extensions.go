// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions defines the pluggable hooks of the test generator
// service.
//
// # Description
//
// The service runs fully without any of these: every hook has a no-op
// default. Deployments that need access control or a durable audit trail
// inject concrete implementations through ServiceOptions.
//
//   - auth.go: API access control (AuthProvider)
//   - audit.go: audit trail for repository writes and runs (AuditLogger)
//
// # Usage
//
//	opts := extensions.DefaultOptions().
//	    WithAuth(extensions.NewStaticKeyAuthProvider(apiKey)).
//	    WithAudit(extensions.NewSlogAuditLogger(logger))
package extensions

// ServiceOptions bundles the hooks handed to the HTTP service.
type ServiceOptions struct {
	// AuthProvider validates the bearer token of API requests.
	AuthProvider AuthProvider

	// AuditLogger records run lifecycle and publish events.
	AuditLogger AuditLogger
}

// DefaultOptions returns options with no-op hooks.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
	}
}

// WithAuth returns a copy with provider installed.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy with logger installed.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
