// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry maps run ids to independent Controllers. Runs share nothing but
// their Dependencies.
type Registry struct {
	deps   Dependencies
	maxAge time.Duration
	now    func() time.Time

	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	controller *Controller
	lastUsed   time.Time
}

// NewRegistry returns a registry creating Controllers from deps. Runs idle
// for longer than maxAge are dropped on the next Create; zero keeps runs
// until Delete.
func NewRegistry(deps Dependencies, maxAge time.Duration) *Registry {
	return &Registry{
		deps:   deps,
		maxAge: maxAge,
		now:    time.Now,
		runs:   make(map[string]*run),
	}
}

// Create starts a new run in the Disconnected state.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	c := NewController(r.deps)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.runs[id] = &run{controller: c, lastUsed: r.now()}
	return id, c
}

// Get returns the run with id and marks it used.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	entry.lastUsed = r.now()
	return entry.controller, nil
}

// Delete abandons a run. A run with an operation in flight cannot be
// deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	if err := entry.controller.Reset(); err != nil {
		return err
	}
	delete(r.runs, id)
	return nil
}

// Len returns the number of live runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// sweepLocked drops expired idle runs. Caller holds r.mu.
func (r *Registry) sweepLocked() {
	if r.maxAge <= 0 {
		return
	}
	cutoff := r.now().Add(-r.maxAge)
	for id, entry := range r.runs {
		if entry.lastUsed.Before(cutoff) && entry.controller.Reset() == nil {
			delete(r.runs, id)
		}
	}
}
