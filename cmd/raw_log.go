// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display D-Bus frames as they arrive.

Each line shows the receive time in milliseconds, the frame length, the
header byte, the acknowledge byte (if one followed the frame), the CRC and
the payload bytes. Nothing is published.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("dbusbridge - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signalContext()
	defer stop()

	discard := sink.PublisherFunc(func(topic, payload string) error { return nil })
	b, err := bridge.New(bridge.Options{
		Decoder:   cfg.DecoderParams(),
		Publisher: discard,
		Logger:    logging.L(),
		OnFrame: func(f dbus.Frame, _ error) {
			fmt.Print(dbus.FormatFrame(f))
		},
	})
	if err != nil {
		return err
	}

	if err := b.Run(ctx, conn); err != nil && !isClosed(err) {
		return err
	}
	fmt.Println("Connection closed")
	return nil
}
