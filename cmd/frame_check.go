// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

var (
	frameCheckTimeout int
)

var frameCheckCmd = &cobra.Command{
	Use:   "frame_check",
	Short: "Test connection by waiting for a valid D-Bus frame",
	Long: `Wait for a valid D-Bus frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
CRC-valid frame. Noise and partial frames are ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the wiring and baud rate before running the bridge.`,
	RunE: runFrameCheck,
}

func init() {
	rootCmd.AddCommand(frameCheckCmd)
	frameCheckCmd.Flags().IntVar(&frameCheckTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameCheck(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("dbusbridge - Frame Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameCheckTimeout)
	fmt.Printf("Waiting for valid D-Bus frame...\n\n")

	code := waitForFrame(conn, time.Duration(frameCheckTimeout)*time.Second)
	os.Exit(code)
	return nil
}

// waitForFrame reads until a frame arrives (0), the timeout passes (1)
// or the source fails (2)
func waitForFrame(conn Connection, timeout time.Duration) int {
	decoder, err := dbus.NewDecoderWithConfig(cfg.DecoderParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 2
	}
	clock := bridge.MonotonicClock()

	frameChan := make(chan dbus.Frame, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		buf := make([]byte, decoder.Config().BufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if frames := decoder.Decode(buf[:n], clock()); len(frames) > 0 {
					frameChan <- frames[0]
					return
				}
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Header: 0x%02X\n", f.Header())
		fmt.Printf("  Length: %d bytes\n", f.Len())
		fmt.Printf("  CRC: 0x%04X\n", f.CRC())
		fmt.Printf("  Hex: %s\n", f.Hex())
		if c := decoder.Counters(); c.Rejected > 0 {
			fmt.Printf("  (%d positions rejected before sync)\n", c.Rejected)
		}
		return 0

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		return 2

	case <-time.After(timeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %s\n", timeout)
		return 1
	}
}
