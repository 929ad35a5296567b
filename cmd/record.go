// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/capture"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Record raw bus reads to a capture file",
	Long: `Store every read from the connection together with its millisecond
timestamp in a CBOR capture file.

Frames are decoded while recording so the frame count can be checked,
but nothing is published. Use "replay" to feed the capture through the
decoder again.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

// recordingReader stores every read in a capture before handing it on
type recordingReader struct {
	src    Connection
	clock  bridge.Clock
	mu     sync.Mutex
	w      *capture.Writer
	err    error
	closed bool
}

func (r *recordingReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.mu.Lock()
		if !r.closed && r.err == nil {
			r.err = r.w.WriteChunk(r.clock(), p[:n])
		}
		r.mu.Unlock()
	}
	return n, err
}

// stop prevents further writes and returns the first write error
func (r *recordingReader) stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.err
}

func runRecord(cmd *cobra.Command, args []string) error {
	path := args[0]

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	w, err := capture.NewWriter(f, capture.Header{
		Started:  time.Now(),
		Source:   connInfo,
		BaudRate: cfg.Serial.Baud,
	})
	if err != nil {
		return err
	}

	clock := bridge.MonotonicClock()
	rec := &recordingReader{src: conn, clock: clock, w: w}

	b, err := bridge.New(bridge.Options{
		Decoder:   cfg.DecoderParams(),
		Publisher: sink.PublisherFunc(func(topic, payload string) error { return nil }),
		Clock:     clock,
		Logger:    logging.L(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("dbusbridge - Record\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Capture: %s\n", path)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signalContext()
	defer stop()

	runErr := b.RunWithStats(ctx, rec, 5*time.Second, func(s *dbus.Statistics) {
		fmt.Printf("\r%d bytes, %d frames", s.Decoder.BytesReceived, s.Decoder.Frames)
	})
	writeErr := rec.stop()

	fmt.Printf("\nRecorded %d chunks (%d bytes), %d frames decoded\n",
		w.Chunks(), w.Bytes(), b.Statistics().Decoder.Frames)

	if runErr != nil && !isClosed(runErr) {
		return runErr
	}
	return writeErr
}
