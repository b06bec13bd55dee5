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
	"crypto/subtle"
	"errors"
)

// ErrUnauthorized is returned by AuthProvider implementations for missing or
// invalid tokens.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo identifies the caller of an API request.
type AuthInfo struct {
	// UserID is never empty for a successful validation.
	UserID string

	// Roles contains role memberships. The service itself does not check
	// roles; they are recorded in audit events.
	Roles []string
}

// HasRole reports whether the caller has role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates API tokens.
//
// Implementations must be safe for concurrent use. The token passed in is
// the raw bearer value without the "Bearer " prefix and may be empty.
type AuthProvider interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as "local-user".
type NopAuthProvider struct{}

// Validate always succeeds.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{UserID: "local-user", Roles: []string{"admin"}}, nil
}

// StaticKeyAuthProvider accepts exactly one shared API key.
type StaticKeyAuthProvider struct {
	key []byte
}

// NewStaticKeyAuthProvider returns a provider for key. An empty key makes
// every request unauthorized.
func NewStaticKeyAuthProvider(key string) *StaticKeyAuthProvider {
	return &StaticKeyAuthProvider{key: []byte(key)}
}

// Validate compares token to the configured key in constant time.
func (p *StaticKeyAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if len(p.key) == 0 || subtle.ConstantTimeCompare([]byte(token), p.key) != 1 {
		return nil, ErrUnauthorized
	}
	return &AuthInfo{UserID: "api-key", Roles: []string{"client"}}, nil
}

var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticKeyAuthProvider)(nil)
)
