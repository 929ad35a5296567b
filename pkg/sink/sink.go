// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink implements destinations for decoded frames.
//
// A Publisher is best-effort: the decoder calls Publish once per frame and
// never retries. Connection handling and retry policy belong to the
// implementation.
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNotConnected is returned when a publisher has no usable connection
var ErrNotConnected = errors.New("publisher not connected")

// Publisher consumes (topic, payload) pairs
type Publisher interface {
	Publish(topic, payload string) error
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(topic, payload string) error

// Publish calls f(topic, payload)
func (f PublisherFunc) Publish(topic, payload string) error {
	return f(topic, payload)
}

// WriterPublisher writes one "topic payload" line per frame
type WriterPublisher struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPublisher creates a publisher writing to w
func NewWriterPublisher(w io.Writer) *WriterPublisher {
	return &WriterPublisher{w: w}
}

// Publish writes the line
func (p *WriterPublisher) Publish(topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "%s %s\n", topic, payload)
	return err
}

// MultiPublisher fans out to several publishers and returns the first error
type MultiPublisher []Publisher

// Publish calls every publisher even if an earlier one fails
func (m MultiPublisher) Publish(topic, payload string) error {
	var first error
	for _, p := range m {
		if err := p.Publish(topic, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
