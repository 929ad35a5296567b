// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newBridgeServer starts a WebSocket server that sends msgs and then closes
func newBridgeServer(t *testing.T, msgs []wsMessage) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bridge" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(m.kind, m.data); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client to acknowledge the close
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type wsMessage struct {
	kind int
	data []byte
}

func TestWebSocketConnection_BinaryAndHexText(t *testing.T) {
	url := newBridgeServer(t, []wsMessage{
		{websocket.BinaryMessage, []byte{0x02, 0x0F}},
		{websocket.TextMessage, []byte("01 02")},
		{websocket.TextMessage, []byte("hello")},
		{websocket.BinaryMessage, nil},
		{websocket.TextMessage, []byte("d22a\n")},
	})

	conn, err := DialWebSocket(context.Background(), WebSocketOptions{
		URL:      url,
		Username: "bridge",
		Password: "secret",
	}, nil)
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer conn.Close()

	var got []byte
	buf := make([]byte, 1)
	for {
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			if !errors.Is(err, ErrConnectionClosed) {
				t.Errorf("Read error = %v, want ErrConnectionClosed", err)
			}
			break
		}
	}

	want := []byte{0x02, 0x0F, 0x01, 0x02, 0xD2, 0x2A}
	if !bytes.Equal(got, want) {
		t.Errorf("read % X, want % X", got, want)
	}
}

func TestDialWebSocket_Errors(t *testing.T) {
	url := newBridgeServer(t, nil)

	tests := []struct {
		name string
		opts WebSocketOptions
		want string
	}{
		{"bad scheme", WebSocketOptions{URL: "http://localhost/ws"}, "unsupported URL scheme"},
		{"wrong password", WebSocketOptions{URL: url, Username: "bridge", Password: "nope"}, "HTTP 401"},
		{"no credentials", WebSocketOptions{URL: url}, "HTTP 401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DialWebSocket(context.Background(), tt.opts, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestBasicAuthHeader(t *testing.T) {
	h := basicAuthHeader("bridge", "secret")
	if got := h.Get("Authorization"); got != "Basic YnJpZGdlOnNlY3JldA==" {
		t.Errorf("Authorization = %q", got)
	}
	if h := basicAuthHeader("bridge", ""); h.Get("Authorization") != "" {
		t.Error("header set without password")
	}
}

func TestReadPassword_FromEnvironment(t *testing.T) {
	t.Setenv(WSPasswordEnvVar, "from-env")
	pw, err := readPassword(WSPasswordEnvVar)
	if err != nil || pw != "from-env" {
		t.Errorf("readPassword = %q, %v", pw, err)
	}
}
