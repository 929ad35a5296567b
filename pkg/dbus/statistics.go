// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import (
	"fmt"
	"time"
)

// Statistics tracks decoder counters, publish outcomes and rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	Decoder Counters

	Published     uint64
	PublishErrors uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ByteRate  float64 // bytes/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update replaces the decoder counters with a newer snapshot
func (s *Statistics) Update(c Counters) {
	s.Decoder = c
	s.LastUpdateTime = time.Now()
}

// RecordPublish counts the outcome of one publish call
func (s *Statistics) RecordPublish(err error) {
	if err != nil {
		s.PublishErrors++
		return
	}
	s.Published++
}

// CalculateRates calculates frame and byte rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.Decoder.Frames) / elapsed
		s.ByteRate = float64(s.Decoder.BytesReceived) / elapsed
	}
}

// FrameYield returns the share of received bytes not yet known to be lost.
// Bytes still buffered count as yield until they are pruned.
func (s *Statistics) FrameYield() float64 {
	if s.Decoder.BytesReceived == 0 {
		return 0
	}
	c := s.Decoder
	lost := c.BytesDropped + c.BytesExpired + c.BytesTruncated + c.BytesSkipped
	if lost > s.Decoder.BytesReceived {
		return 0
	}
	return float64(s.Decoder.BytesReceived-lost) * 100.0 / float64(s.Decoder.BytesReceived)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	elapsed := time.Since(s.StartTime)
	c := s.Decoder

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Received:  %8d\n", c.BytesReceived)
	result += fmt.Sprintf("Frames:          %8d (%d acked)\n", c.Frames, c.AckBytes)
	if c.BytesDropped > 0 {
		result += fmt.Sprintf("Overflow Drops:  %8d bytes\n", c.BytesDropped)
	}
	if c.TimeoutResets > 0 {
		result += fmt.Sprintf("Timeout Resets:  %8d (%d bytes)\n", c.TimeoutResets, c.BytesExpired)
	}
	if c.Truncations > 0 {
		result += fmt.Sprintf("Truncations:     %8d (%d bytes)\n", c.Truncations, c.BytesTruncated)
	}
	if c.BytesSkipped > 0 {
		result += fmt.Sprintf("Skipped Noise:   %8d bytes\n", c.BytesSkipped)
	}
	result += fmt.Sprintf("Rejected Pos:    %8d\n", c.Rejected)
	result += fmt.Sprintf("Published:       %8d\n", s.Published)
	if s.PublishErrors > 0 {
		result += fmt.Sprintf("Publish Errors:  %8d\n", s.PublishErrors)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Byte Rate:       %8.1f bytes/sec\n", s.ByteRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.Decoder = Counters{}
	s.Published = 0
	s.PublishErrors = 0
	s.FrameRate = 0
	s.ByteRate = 0
}
