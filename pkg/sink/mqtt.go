// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientIDPrefix is prepended to generated MQTT client ids
const ClientIDPrefix = "dbusbridge-"

// MQTTOptions configures an MQTT publisher
type MQTTOptions struct {
	Broker   string // host:port or URL
	Username string
	Password string
	ClientID string
	QoS      byte
	Retained bool

	ConnectTimeout time.Duration
}

// MQTTStats contains publisher statistics
type MQTTStats struct {
	Connected bool
	Published uint64
	Dropped   uint64 // not connected when Publish was called
	Failed    uint64 // broker or network rejected the publish
}

// MQTTPublisher publishes frames to an MQTT broker without waiting for
// delivery. Reconnection is handled by the paho client.
type MQTTPublisher struct {
	opts   MQTTOptions
	client mqtt.Client
	log    *zap.Logger

	mu        sync.RWMutex
	connected bool
	stats     MQTTStats
}

// NewClientID returns a unique client id for this bridge instance
func NewClientID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ClientIDPrefix + id[:8]
}

// BrokerURL normalizes host, host:port or a URL into a paho broker URL
func BrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	if !strings.Contains(broker, ":") {
		broker += ":1883"
	}
	return "tcp://" + broker
}

// NewMQTTPublisher creates a publisher; call Connect before publishing
func NewMQTTPublisher(opts MQTTOptions, log *zap.Logger) *MQTTPublisher {
	if opts.ClientID == "" {
		opts.ClientID = NewClientID()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTPublisher{opts: opts, log: log}
}

// ClientID returns the client id used for the broker session
func (p *MQTTPublisher) ClientID() string {
	return p.opts.ClientID
}

// Connect starts the broker connection and waits up to ConnectTimeout for
// it. An unreachable broker is not an error: the client keeps retrying in the
// background and Publish returns ErrNotConnected until it succeeds.
// Cancelling ctx while waiting stops the client and returns ctx.Err().
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(p.opts.Broker))
	opts.SetClientID(p.opts.ClientID)
	if p.opts.Username != "" {
		opts.SetUsername(p.opts.Username)
		opts.SetPassword(p.opts.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(3 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		p.log.Info("MQTT connection established",
			zap.String("broker", p.opts.Broker),
			zap.String("client_id", p.opts.ClientID))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.log.Warn("MQTT connection lost, will auto-reconnect",
			zap.String("broker", p.opts.Broker),
			zap.Error(err))
	}

	p.client = mqtt.NewClient(opts)
	p.log.Info("Connecting to MQTT broker", zap.String("broker", p.opts.Broker))

	token := p.client.Connect()
	timer := time.NewTimer(p.opts.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connection failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		p.client.Disconnect(0)
		return ctx.Err()
	case <-timer.C:
		p.log.Warn("MQTT broker not reachable yet, retrying in the background",
			zap.String("broker", p.opts.Broker),
			zap.Duration("waited", p.opts.ConnectTimeout))
		return nil
	}
}

// Publish hands the payload to the client and returns immediately. Delivery
// failures are counted when the token completes.
func (p *MQTTPublisher) Publish(topic, payload string) error {
	if p.client == nil || !p.IsConnected() {
		p.mu.Lock()
		p.stats.Dropped++
		p.mu.Unlock()
		return ErrNotConnected
	}

	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retained, payload)
	go func() {
		<-token.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := token.Error(); err != nil {
			p.stats.Failed++
			p.log.Debug("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		p.stats.Published++
	}()
	return nil
}

// IsConnected reports the last known connection state
func (p *MQTTPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Stats returns a snapshot of the publisher statistics
func (p *MQTTPublisher) Stats() MQTTStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.stats
	s.Connected = p.connected
	return s
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	if p.client != nil {
		// Also stops a connect retry still in progress
		p.client.Disconnect(250)
		p.log.Info("MQTT disconnected")
	}
	p.setConnected(false)
	return nil
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
