// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DecoderParams() != dbus.DefaultConfig() {
		t.Errorf("decoder params %+v differ from dbus defaults", cfg.DecoderParams())
	}
	if cfg.Serial.Baud != 9600 || cfg.MQTT.Topic != "washingmachine/dbus" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(MQTTPasswordEnvVar, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Decoder.BufferSize != dbus.DefaultBufferSize {
		t.Errorf("BufferSize = %d", cfg.Decoder.BufferSize)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv(MQTTPasswordEnvVar, "")
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	content := `
serial:
  port: /dev/ttyUSB1
mqtt:
  broker: 192.168.178.99:1883
  username: washer
  topic: laundry/dbus
  qos: 1
decoder:
  read_timeout_ms: 80
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" || cfg.Serial.Baud != 9600 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.MQTT.Broker != "192.168.178.99:1883" || cfg.MQTT.Topic != "laundry/dbus" || cfg.MQTT.QoS != 1 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Decoder.ReadTimeoutMs != 80 || cfg.Decoder.MaxFrameLength != dbus.DefaultMaxFrameLength {
		t.Errorf("decoder = %+v", cfg.Decoder)
	}
}

func TestLoad_PasswordFromEnv(t *testing.T) {
	t.Setenv(MQTTPasswordEnvVar, "s3cret")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Password != "s3cret" {
		t.Errorf("password = %q", cfg.MQTT.Password)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mqtt: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("decoder:\n  buffer_size: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(MQTTPasswordEnvVar, "")
	path := filepath.Join(t.TempDir(), "nested", "bridge.yaml")
	cfg := Default()
	cfg.MQTT.Broker = "broker.local"
	cfg.MQTT.Password = "pw"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MQTT.Broker != "broker.local" || loaded.MQTT.Password != "pw" {
		t.Errorf("round trip lost values: %+v", loaded.MQTT)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"empty topic", func(c *Config) { c.MQTT.Topic = "" }},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"bad decoder", func(c *Config) { c.Decoder.MinFrameLength = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
