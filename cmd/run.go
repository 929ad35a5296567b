// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/dbusbridge/pkg/bridge"
	"github.com/Thermoquad/dbusbridge/pkg/dbus"
	"github.com/Thermoquad/dbusbridge/pkg/discovery"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
	"github.com/Thermoquad/dbusbridge/pkg/sink"
)

var (
	dryRun           bool
	runStatsInterval int
	discoverTimeout  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode the bus and publish frames to MQTT",
	Long: `Read the D-Bus, extract CRC-validated frames and publish each one as an
uppercase hex string to the configured MQTT topic.

The broker is taken from the configuration file. When none is set and
mqtt.discover is enabled, the first broker announcing _mqtt._tcp via mDNS
is used. The broker password may be supplied with DBUSBRIDGE_MQTT_PASSWORD.

Use --dry-run to print "topic payload" lines to stdout instead of
connecting to a broker.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print frames to stdout instead of publishing")
	runCmd.Flags().IntVar(&runStatsInterval, "stats-interval", 60, "Statistics log interval in seconds (0 disables)")
	runCmd.Flags().IntVar(&discoverTimeout, "discover-timeout", 5, "mDNS broker discovery timeout in seconds")
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openPublisher returns the frame sink selected by the configuration
func openPublisher(ctx context.Context, log *zap.Logger) (sink.Publisher, func() error, error) {
	if dryRun {
		return sink.NewWriterPublisher(os.Stdout), func() error { return nil }, nil
	}

	broker := cfg.MQTT.Broker
	if broker == "" {
		if !cfg.MQTT.Discover {
			return nil, nil, fmt.Errorf("no MQTT broker configured and discovery disabled")
		}
		fmt.Fprintf(os.Stderr, "Looking for an MQTT broker via mDNS...\n")
		found, err := discovery.FindBroker(ctx, time.Duration(discoverTimeout)*time.Second)
		if err != nil {
			return nil, nil, err
		}
		broker = found.Address()
		log.Info("Discovered MQTT broker",
			zap.String("instance", found.Instance),
			zap.String("address", broker))
	}

	pub := sink.NewMQTTPublisher(sink.MQTTOptions{
		Broker:   broker,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID,
		QoS:      cfg.MQTT.QoS,
		Retained: cfg.MQTT.Retained,
	}, log)

	if err := pub.Connect(ctx); err != nil {
		return nil, nil, err
	}
	state := "connected"
	if !pub.IsConnected() {
		state = "not reachable yet, frames are dropped until it is"
	}
	fmt.Fprintf(os.Stderr, "MQTT: %s (client %s, %s)\n", sink.BrokerURL(broker), pub.ClientID(), state)

	return pub, pub.Close, nil
}

// statsFields renders statistics as structured log fields
func statsFields(s *dbus.Statistics) []zap.Field {
	c := s.Decoder
	return []zap.Field{
		zap.Uint64("bytes", c.BytesReceived),
		zap.Uint64("frames", c.Frames),
		zap.Uint64("acks", c.AckBytes),
		zap.Uint64("rejected", c.Rejected),
		zap.Uint64("dropped", c.BytesDropped),
		zap.Uint64("timeout_resets", c.TimeoutResets),
		zap.Uint64("truncations", c.Truncations),
		zap.Uint64("published", s.Published),
		zap.Uint64("publish_errors", s.PublishErrors),
		zap.Float64("frame_rate", s.FrameRate),
		zap.Float64("yield_pct", s.FrameYield()),
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	log := logging.L()

	ctx, stop := signalContext()
	defer stop()

	pub, closePub, err := openPublisher(ctx, log)
	if err != nil {
		return err
	}
	defer closePub()

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	b, err := bridge.New(bridge.Options{
		Decoder:   cfg.DecoderParams(),
		Topic:     cfg.MQTT.Topic,
		Publisher: pub,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "dbusbridge - Bridge\n")
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)
	fmt.Fprintf(os.Stderr, "Topic: %s\n", cfg.MQTT.Topic)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to exit\n\n")

	report := func(s *dbus.Statistics) {
		log.Info("Statistics", statsFields(s)...)
	}

	err = b.RunWithStats(ctx, conn, time.Duration(runStatsInterval)*time.Second, report)
	if err != nil && !isClosed(err) {
		return err
	}

	fmt.Fprint(os.Stderr, "\n", b.Statistics().String())
	return nil
}
