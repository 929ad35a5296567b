// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the bridge configuration from a YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

// MQTTPasswordEnvVar overrides mqtt.password when set
const MQTTPasswordEnvVar = "DBUSBRIDGE_MQTT_PASSWORD"

// Config is the complete bridge configuration
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Decoder   DecoderConfig   `yaml:"decoder"`
}

// SerialConfig selects the serial port carrying the D-Bus
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// WebSocketConfig selects a serial-over-WebSocket bridge instead of a local port
type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// MQTTConfig contains broker settings
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // host[:port] or URL
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"` // generated when empty
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
	Discover bool   `yaml:"discover"` // look up _mqtt._tcp via mDNS when broker is empty
}

// DecoderConfig holds the frame decoder parameters
type DecoderConfig struct {
	MinFrameLength int    `yaml:"min_frame_length"`
	MaxFrameLength int    `yaml:"max_frame_length"`
	ReadTimeoutMs  uint32 `yaml:"read_timeout_ms"`
	BufferSize     int    `yaml:"buffer_size"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel: "",
		Serial: SerialConfig{
			Baud: dbus.DefaultBaudRate,
		},
		MQTT: MQTTConfig{
			Topic:    dbus.DefaultTopic,
			Discover: true,
		},
		Decoder: DecoderConfig{
			MinFrameLength: dbus.DefaultMinFrameLength,
			MaxFrameLength: dbus.DefaultMaxFrameLength,
			ReadTimeoutMs:  dbus.DefaultReadTimeout,
			BufferSize:     dbus.DefaultBufferSize,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if pw := os.Getenv(MQTTPasswordEnvVar); pw != "" {
		cfg.MQTT.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	// The file may hold the broker password
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DecoderParams converts the decoder section to dbus.Config
func (c *Config) DecoderParams() dbus.Config {
	return dbus.Config{
		MinFrameLength: c.Decoder.MinFrameLength,
		MaxFrameLength: c.Decoder.MaxFrameLength,
		ReadTimeout:    c.Decoder.ReadTimeoutMs,
		BufferSize:     c.Decoder.BufferSize,
		CRC:            dbus.CRCXModem,
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic must not be empty")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if err := c.DecoderParams().Validate(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	return nil
}
