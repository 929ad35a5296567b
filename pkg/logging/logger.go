// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging provides the zap logger shared by the bridge and the CLI.
//
// Logging is silent unless a level is passed to Initialize or set in the
// DBUSBRIDGE_LOG_LEVEL environment variable. User-facing output of the CLI
// commands does not go through this package.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "DBUSBRIDGE_LOG_LEVEL"

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize creates the global logger with the specified level.
// If level is empty, DBUSBRIDGE_LOG_LEVEL is used; if that is empty too,
// logging is disabled.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// SetLogger replaces the global logger (used by tests)
func SetLogger(l *zap.Logger) {
	logger = l
}

// L returns the global logger instance
func L() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Sync flushes buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// FrameFields returns the structured fields describing a frame
func FrameFields(f dbus.Frame) []zap.Field {
	fields := []zap.Field{
		zap.Int("length", f.Len()),
		zap.String("header", fmt.Sprintf("0x%02X", f.Header())),
		zap.String("hex", f.Hex()),
		zap.Uint32("received_ms", f.Received),
	}
	if f.HasAck {
		fields = append(fields, zap.String("ack", fmt.Sprintf("0x%02X", f.Ack)))
	}
	return fields
}

// LogFrame logs an accepted frame at debug level
func LogFrame(l *zap.Logger, f dbus.Frame) {
	l.Debug("Frame accepted", FrameFields(f)...)
}

// LogRawBytes logs raw bytes (useful for debugging line noise)
func LogRawBytes(l *zap.Logger, label string, data []byte) {
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", dbus.EncodeHex(truncate(data, 256))),
	)
}

func truncate(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}
