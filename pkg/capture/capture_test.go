// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

func TestCapture_ReplayThroughDecoder(t *testing.T) {
	frame := dbus.MustEncodeFrame(0x15, []byte{0x10, 0x20, 0x30, 0x40, 0x50})

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{Started: time.Unix(1700000000, 0).UTC(), Source: "/dev/ttyUSB0", BaudRate: 9600})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	// First session is cut off by a gap, second one completes
	chunks := []Chunk{
		{Millis: 100, Data: frame[:5]},
		{Millis: 300, Data: frame[:4]},
		{Millis: 310, Data: frame[4:]},
	}
	for _, c := range chunks {
		if err := w.WriteChunk(c.Millis, c.Data); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	if w.Chunks() != 3 || w.Bytes() != 5+len(frame) {
		t.Errorf("Chunks=%d Bytes=%d", w.Chunks(), w.Bytes())
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if h := r.Header(); h.Version != FormatVersion || h.Source != "/dev/ttyUSB0" || h.BaudRate != 9600 {
		t.Errorf("header = %+v", h)
	}

	d := dbus.NewDecoder()
	var frames []dbus.Frame
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		frames = append(frames, d.Decode(c.Data, c.Millis)...)
	}

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Data, frame) {
		t.Errorf("frame = % X", frames[0].Data)
	}
	if d.Counters().TimeoutResets != 1 {
		t.Errorf("TimeoutResets = %d, want 1", d.Counters().TimeoutResets)
	}
}

func TestNewReader_RejectsUnknownVersion(t *testing.T) {
	data, err := cbor.Marshal(Header{Version: 99})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(bytes.NewReader(data)); err == nil {
		t.Error("expected version error")
	}
}

func TestNewReader_Empty(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty stream")
	}
}
