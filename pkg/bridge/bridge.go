// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects a byte source, the D-Bus decoder and a publisher.
//
// All decoder work happens on the goroutine calling Run (or Step). Reads are
// done on a helper goroutine so a blocking source does not prevent shutdown.
// Publishing is synchronous from the decoder's point of view: a publisher
// that blocks stalls ingestion of the following bytes.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

// Clock returns a wrapping millisecond reading
type Clock func() uint32

// MonotonicClock returns a clock counting milliseconds since its creation,
// truncated to 32 bits
func MonotonicClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// Options configures a Bridge
type Options struct {
	Decoder   dbus.Config
	Topic     string
	Publisher sink.Publisher
	Clock     Clock
	Logger    *zap.Logger

	// OnFrame is called for every accepted frame after publishing
	OnFrame func(dbus.Frame, error)

	// ReadBufferSize is the size of a single read from the source
	ReadBufferSize int
}

// Bridge runs the decode-and-publish loop
type Bridge struct {
	decoder *dbus.Decoder
	topic   string
	pub     sink.Publisher
	clock   Clock
	log     *zap.Logger
	stats   *dbus.Statistics
	onFrame func(dbus.Frame, error)
	readBuf int
}

type chunk struct {
	data []byte
	now  uint32
}

// New creates a bridge
func New(opts Options) (*Bridge, error) {
	decoder, err := dbus.NewDecoderWithConfig(opts.Decoder)
	if err != nil {
		return nil, err
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("bridge requires a publisher")
	}
	if opts.Topic == "" {
		opts.Topic = dbus.DefaultTopic
	}
	if opts.Clock == nil {
		opts.Clock = MonotonicClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = opts.Decoder.BufferSize
	}

	return &Bridge{
		decoder: decoder,
		topic:   opts.Topic,
		pub:     opts.Publisher,
		clock:   opts.Clock,
		log:     opts.Logger,
		stats:   dbus.NewStatistics(),
		onFrame: opts.OnFrame,
		readBuf: opts.ReadBufferSize,
	}, nil
}

// Statistics returns the live statistics. Only read it from the goroutine
// running the bridge, or after Run returned.
func (b *Bridge) Statistics() *dbus.Statistics {
	return b.stats
}

// Decoder returns the underlying decoder
func (b *Bridge) Decoder() *dbus.Decoder {
	return b.decoder
}

// Step decodes bytes read at time now and publishes every accepted frame
func (b *Bridge) Step(data []byte, now uint32) []dbus.Frame {
	logging.LogRawBytes(b.log, "Bytes received", data)

	frames := b.decoder.Decode(data, now)
	for _, f := range frames {
		err := b.pub.Publish(b.topic, f.Hex())
		b.stats.RecordPublish(err)
		if err != nil {
			b.log.Debug("Publish failed", zap.String("topic", b.topic), zap.Error(err))
		}
		logging.LogFrame(b.log, f)
		if b.onFrame != nil {
			b.onFrame(f, err)
		}
	}
	b.stats.Update(b.decoder.Counters())
	return frames
}

// Run reads from r until ctx is cancelled, r reports io.EOF or a read fails.
// It returns nil on cancellation and EOF.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	return b.RunWithStats(ctx, r, 0, nil)
}

// RunWithStats is Run with a periodic callback receiving the statistics on
// the bridge goroutine. A zero interval disables the callback.
func (b *Bridge) RunWithStats(ctx context.Context, r io.Reader, interval time.Duration, report func(*dbus.Statistics)) error {
	chunks := make(chan chunk, 16)
	readErr := make(chan error, 1)

	go func() {
		buf := make([]byte, b.readBuf)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case chunks <- chunk{data: data, now: b.clock()}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	var tick <-chan time.Time
	if interval > 0 && report != nil {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-chunks:
			b.Step(c.data, c.now)
		case err := <-readErr:
			// Chunks read before the error are already queued
		drain:
			for {
				select {
				case c := <-chunks:
					b.Step(c.data, c.now)
				default:
					break drain
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		case <-tick:
			b.stats.CalculateRates()
			report(b.stats)
		}
	}
}
