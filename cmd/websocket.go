// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

// WSPasswordEnvVar holds the WebSocket Basic auth password
const WSPasswordEnvVar = "DBUSBRIDGE_WS_PASSWORD"

// ErrConnectionClosed is returned once the WebSocket peer has gone away
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketOptions selects a serial-over-WebSocket bridge
type WebSocketOptions struct {
	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool

	HandshakeTimeout time.Duration
}

// WebSocketConnection turns WebSocket messages into a byte stream. Binary
// messages carry raw bus bytes. Text messages carry the same bytes as hex.
type WebSocketConnection struct {
	conn    *websocket.Conn
	log     *zap.Logger
	pending []byte
	err     error
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		if w.err != nil {
			return 0, w.err
		}
		w.pending, w.err = w.nextPayload()
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// nextPayload reads one message and returns its bus bytes. Text that is not
// hex is logged and yields no bytes.
func (w *WebSocketConnection) nextPayload() ([]byte, error) {
	messageType, data, err := w.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("websocket read failed: %w", err)
	}

	switch messageType {
	case websocket.BinaryMessage:
		return data, nil
	case websocket.TextMessage:
		decoded, err := dbus.DecodeHex(string(data))
		if err != nil {
			w.log.Debug("Ignoring non-hex text message", zap.Error(err))
			return nil, nil
		}
		return decoded, nil
	}
	return nil, nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// basicAuthHeader returns request headers carrying HTTP Basic credentials
// when both parts are set
func basicAuthHeader(username, password string) http.Header {
	headers := http.Header{}
	if username != "" && password != "" {
		req := http.Request{Header: headers}
		req.SetBasicAuth(username, password)
	}
	return headers
}

// DialWebSocket connects to a ws:// or wss:// bridge
func DialWebSocket(ctx context.Context, opts WebSocketOptions, log *zap.Logger) (*WebSocketConnection, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.SkipTLSVerify}
	}

	conn, resp, err := dialer.DialContext(ctx, opts.URL, basicAuthHeader(opts.Username, opts.Password))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("WebSocket connected", zap.String("url", opts.URL))
	return &WebSocketConnection{conn: conn, log: log}, nil
}

// readPassword takes the password from envVar, or prompts on the terminal
func readPassword(envVar string) (string, error) {
	if pw := os.Getenv(envVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	// Piped input
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
