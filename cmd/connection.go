// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/Thermoquad/dbusbridge/pkg/config"
	"github.com/Thermoquad/dbusbridge/pkg/logging"
)

// Connection is a byte source for the decoder
type Connection interface {
	io.Reader
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// OpenSerialConnection opens the bus adapter read-only in 8N1. The appliance
// sends 8N2; the second stop bit reads as idle line.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenConnection opens the WebSocket source when a URL is configured and
// the serial port otherwise. The second return value describes the source.
func OpenConnection(c *config.Config) (Connection, string, error) {
	switch {
	case c.WebSocket.URL != "":
		opts := WebSocketOptions{
			URL:           c.WebSocket.URL,
			Username:      c.WebSocket.Username,
			SkipTLSVerify: c.WebSocket.NoSSLVerify,
		}
		if opts.Username != "" {
			pw, err := readPassword(WSPasswordEnvVar)
			if err != nil {
				return nil, "", err
			}
			opts.Password = pw
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		conn, err := DialWebSocket(ctx, opts, logging.L())
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", opts.URL), nil

	case c.Serial.Port != "":
		conn, err := OpenSerialConnection(c.Serial.Port, c.Serial.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", c.Serial.Port, c.Serial.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// isClosed reports whether err means the source ended for good
func isClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF)
}
