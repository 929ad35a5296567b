// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/capture"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

var replayPublish bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a capture file",
	Long: `Feed a capture written by "record" through the decoder.

The recorded timestamps drive the decoder clock, so read timeouts and
buffer resets happen exactly as they did live. Frames are printed in the
raw_log format. With --publish they are also sent to the MQTT broker.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayPublish, "publish", false, "Publish replayed frames to MQTT")
}

// replayCapture steps every chunk of a capture through b
func replayCapture(r *capture.Reader, b *bridge.Bridge) (int, error) {
	chunks := 0
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		b.Step(c.Data, c.Millis)
		chunks++
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}

	var pub sink.Publisher = sink.PublisherFunc(func(topic, payload string) error { return nil })
	if replayPublish {
		ctx, stop := signalContext()
		defer stop()

		mqttPub, closePub, err := openPublisher(ctx, logging.L())
		if err != nil {
			return err
		}
		defer closePub()
		pub = mqttPub
	}

	b, err := bridge.New(bridge.Options{
		Decoder:   cfg.DecoderParams(),
		Topic:     cfg.MQTT.Topic,
		Publisher: pub,
		Logger:    logging.L(),
		OnFrame: func(f dbus.Frame, _ error) {
			fmt.Print(dbus.FormatFrame(f))
		},
	})
	if err != nil {
		return err
	}

	h := r.Header()
	fmt.Printf("dbusbridge - Replay\n")
	fmt.Printf("Capture: %s (recorded %s from %s)\n\n", args[0], h.Started.Format("2006-01-02 15:04:05"), h.Source)

	chunks, err := replayCapture(r, b)
	if err != nil {
		return err
	}

	fmt.Printf("\nReplayed %d chunks\n", chunks)
	fmt.Print(b.Statistics().String())
	return nil
}
