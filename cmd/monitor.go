// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch decoder health and bus statistics",
	Long: `Track frame throughput and decoder anomalies with live statistics.

This command decodes the bus without publishing and reports:
  - Frames and acknowledge bytes
  - Buffer overflows and read timeout resets
  - Truncations when no frame could be found
  - Frame and byte rates, and the share of bytes that formed frames

By default, only anomalies are displayed. Use --show-all to display frames too.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just anomalies)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds, text mode)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// counterEvents describes what changed between two counter snapshots
func counterEvents(prev, cur dbus.Counters) []string {
	var events []string
	if n := cur.BytesDropped - prev.BytesDropped; n > 0 {
		events = append(events, fmt.Sprintf("Buffer overflow: %d bytes dropped", n))
	}
	if n := cur.TimeoutResets - prev.TimeoutResets; n > 0 {
		events = append(events, fmt.Sprintf("Read timeout: buffer reset %d times (%d bytes)", n, cur.BytesExpired-prev.BytesExpired))
	}
	if n := cur.Truncations - prev.Truncations; n > 0 {
		events = append(events, fmt.Sprintf("No frame found: truncated %d times (%d bytes)", n, cur.BytesTruncated-prev.BytesTruncated))
	}
	return events
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// newMonitorBridge builds a bridge that decodes without publishing
func newMonitorBridge(onFrame func(dbus.Frame, error)) (*bridge.Bridge, error) {
	return bridge.New(bridge.Options{
		Decoder:   cfg.DecoderParams(),
		Publisher: sink.PublisherFunc(func(topic, payload string) error { return nil }),
		Logger:    logging.L(),
		OnFrame:   onFrame,
	})
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(conn Connection, connInfo string) error {
	m := initialModel(connInfo, showAll)
	p := tea.NewProgram(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := newMonitorBridge(func(f dbus.Frame, _ error) {
		p.Send(frameMsg{frame: f})
	})
	if err != nil {
		return err
	}

	// Bridge goroutine
	go func() {
		report := func(s *dbus.Statistics) {
			p.Send(statsMsg{stats: *s})
		}
		err := b.RunWithStats(ctx, conn, 500*time.Millisecond, report)
		p.Send(sourceDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("dbusbridge - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Anomalies only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signalContext()
	defer stop()

	synchronized := false
	var b *bridge.Bridge
	var prev dbus.Counters

	b, err := newMonitorBridge(func(f dbus.Frame, _ error) {
		if !synchronized {
			synchronized = true
			fmt.Printf("[SYNC] First frame after %d bytes\n\n", b.Decoder().Counters().BytesReceived)
		}
		if showAll {
			fmt.Print(dbus.FormatFrame(f))
		}
	})
	if err != nil {
		return err
	}

	// Anomalies are checked every second, the summary at the configured interval
	lastSummary := time.Now()
	report := func(s *dbus.Statistics) {
		for _, e := range counterEvents(prev, s.Decoder) {
			fmt.Printf("[%s] \033[1;33m%s\033[0m\n", time.Now().Format("15:04:05.000"), e)
		}
		prev = s.Decoder

		if time.Since(lastSummary) >= time.Duration(statsInterval)*time.Second {
			lastSummary = time.Now()
			fmt.Println()
			fmt.Print(s.String())
			fmt.Println()
		}
	}

	err = b.RunWithStats(ctx, conn, time.Second, report)
	if err != nil && !isClosed(err) {
		return err
	}
	return nil
}
