// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_PlainPrintsNothing(t *testing.T) {
	var buf syncBuffer
	s := Printer{W: &buf, Plain: true}.NewSpinner("working")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.Empty(t, buf.String())
}

func TestSpinner_AnimatesAndClears(t *testing.T) {
	var buf syncBuffer
	s := Printer{W: &buf}.NewSpinner("working")
	s.Start()
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "working")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"))
}

func TestWithSpinner(t *testing.T) {
	var buf syncBuffer
	p := Printer{W: &buf, Plain: true}

	assert.NoError(t, p.WithSpinner("summarize", func() error { return nil }))
	err := p.WithSpinner("publish", func() error { return errors.New("denied") })
	assert.EqualError(t, err, "denied")

	assert.Equal(t, "OK: summarize\nERROR: publish: denied\n", buf.String())
}
