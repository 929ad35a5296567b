// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture stores raw D-Bus reads with their clock readings so a
// session can be replayed through the decoder with identical timing.
//
// A capture file is a header record followed by a stream of CBOR-encoded
// chunk records.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is written into every capture header
const FormatVersion = 1

// Header describes a capture session
type Header struct {
	Version  int       `cbor:"1,keyasint"`
	Started  time.Time `cbor:"2,keyasint"`
	Source   string    `cbor:"3,keyasint"`
	BaudRate int       `cbor:"4,keyasint,omitempty"`
}

// Chunk is one read from the byte source
type Chunk struct {
	Millis uint32 `cbor:"1,keyasint"`
	Data   []byte `cbor:"2,keyasint"`
}

// Writer appends chunks to a capture stream
type Writer struct {
	enc    *cbor.Encoder
	chunks int
	bytes  int
}

// NewWriter writes the header and returns a Writer
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.Version == 0 {
		h.Version = FormatVersion
	}
	enc := cbor.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// WriteChunk stores data read at time millis
func (w *Writer) WriteChunk(millis uint32, data []byte) error {
	if err := w.enc.Encode(Chunk{Millis: millis, Data: data}); err != nil {
		return fmt.Errorf("failed to write capture chunk: %w", err)
	}
	w.chunks++
	w.bytes += len(data)
	return nil
}

// Chunks returns the number of chunks written
func (w *Writer) Chunks() int {
	return w.chunks
}

// Bytes returns the number of payload bytes written
func (w *Writer) Bytes() int {
	return w.bytes
}

// Reader iterates over a capture stream
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported capture version %d (want %d)", h.Version, FormatVersion)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the session header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next chunk, or io.EOF at the end of the stream
func (r *Reader) Next() (Chunk, error) {
	var c Chunk
	if err := r.dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Chunk{}, io.EOF
		}
		return Chunk{}, fmt.Errorf("failed to read capture chunk: %w", err)
	}
	return c, nil
}
