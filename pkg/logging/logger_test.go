// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if L().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "debug")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer SetLogger(nil)
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	frame := dbus.Frame{Data: dbus.MustEncodeFrame(0x0F, []byte{0x01, 0x02}), Ack: 0x1A, HasAck: true}
	LogFrame(l, frame)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != frame.Hex() {
		t.Errorf("hex field = %v, want %s", fields["hex"], frame.Hex())
	}
	if fields["ack"] != "0x1A" {
		t.Errorf("ack field = %v", fields["ack"])
	}
}

func TestLogRawBytes_SkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogRawBytes(zap.New(core), "read", []byte{1, 2, 3})
	if logs.Len() != 0 {
		t.Error("raw bytes should only be logged at debug level")
	}
}
