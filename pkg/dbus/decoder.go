// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import "fmt"

// Config holds the tunable decoder parameters
type Config struct {
	MinFrameLength int
	MaxFrameLength int
	ReadTimeout    uint32 // milliseconds
	BufferSize     int
	CRC            CRCParams
}

// DefaultConfig returns the parameters of the D-Bus as found on BSH appliances
func DefaultConfig() Config {
	return Config{
		MinFrameLength: DefaultMinFrameLength,
		MaxFrameLength: DefaultMaxFrameLength,
		ReadTimeout:    DefaultReadTimeout,
		BufferSize:     DefaultBufferSize,
		CRC:            CRCXModem,
	}
}

// Validate checks that the parameters describe a usable decoder
func (c Config) Validate() error {
	if c.MinFrameLength < FrameOverhead {
		return fmt.Errorf("min frame length %d is below frame overhead %d", c.MinFrameLength, FrameOverhead)
	}
	if c.MaxFrameLength < c.MinFrameLength {
		return fmt.Errorf("max frame length %d is below min frame length %d", c.MaxFrameLength, c.MinFrameLength)
	}
	if c.MaxFrameLength > MaxFrameLengthLimit {
		return fmt.Errorf("max frame length %d exceeds %d", c.MaxFrameLength, MaxFrameLengthLimit)
	}
	if c.BufferSize < c.MaxFrameLength {
		return fmt.Errorf("buffer size %d cannot hold a %d byte frame", c.BufferSize, c.MaxFrameLength)
	}
	if c.ReadTimeout == 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	return nil
}

// Counters accumulate decoder activity since creation or the last Reset
type Counters struct {
	BytesReceived  uint64
	BytesDropped   uint64 // did not fit in the buffer
	BytesExpired   uint64 // discarded by a read timeout
	TimeoutResets  uint64
	Frames         uint64
	AckBytes       uint64
	Rejected       uint64
	BytesSkipped   uint64 // noise removed in front of accepted frames
	Truncations    uint64
	BytesTruncated uint64
}

// Decoder turns a D-Bus byte stream into frames. It is not safe for
// concurrent use; one goroutine must own it.
type Decoder struct {
	config   Config
	buffer   *FrameBuffer
	scanner  *Scanner
	counters Counters
}

// NewDecoder creates a decoder with DefaultConfig
func NewDecoder() *Decoder {
	d, _ := NewDecoderWithConfig(DefaultConfig())
	return d
}

// NewDecoderWithConfig creates a decoder with custom parameters
func NewDecoderWithConfig(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decoder config: %w", err)
	}
	return &Decoder{
		config:  cfg,
		buffer:  NewFrameBuffer(cfg.BufferSize, cfg.ReadTimeout),
		scanner: NewScanner(cfg.MinFrameLength, cfg.MaxFrameLength, cfg.CRC),
	}, nil
}

// Config returns the decoder parameters
func (d *Decoder) Config() Config {
	return d.config
}

// Decode appends bytes read at time now (milliseconds, wrapping) and returns
// every frame found by one scan pass. An empty read still runs a pass but
// does not count as a read for the timeout.
func (d *Decoder) Decode(data []byte, now uint32) []Frame {
	if len(data) > 0 {
		dropped, expired := d.buffer.Append(data, now)
		d.counters.BytesReceived += uint64(len(data))
		d.counters.BytesDropped += uint64(dropped)
		if expired > 0 {
			d.counters.BytesExpired += uint64(expired)
			d.counters.TimeoutResets++
		}
	}

	res := d.scanner.Scan(d.buffer, now)
	d.counters.Frames += uint64(len(res.Frames))
	d.counters.AckBytes += uint64(res.AckBytes)
	d.counters.Rejected += uint64(res.Rejected)
	skipped := res.Consumed - res.AckBytes
	for _, f := range res.Frames {
		skipped -= f.Len()
	}
	d.counters.BytesSkipped += uint64(skipped)
	if res.Truncated > 0 {
		d.counters.Truncations++
		d.counters.BytesTruncated += uint64(res.Truncated)
	}
	return res.Frames
}

// Buffered returns the bytes retained for the next pass
func (d *Decoder) Buffered() []byte {
	return d.buffer.Bytes()
}

// Counters returns a snapshot of the decoder counters
func (d *Decoder) Counters() Counters {
	return d.counters
}

// Reset clears the buffer and counters
func (d *Decoder) Reset() {
	d.buffer.Reset()
	d.counters = Counters{}
}
