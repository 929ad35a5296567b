// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWriterPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterPublisher(&buf)

	if err := p.Publish("washingmachine/dbus", "020F0102D22A"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := buf.String(); got != "washingmachine/dbus 020F0102D22A\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPublisherFunc(t *testing.T) {
	var gotTopic, gotPayload string
	p := PublisherFunc(func(topic, payload string) error {
		gotTopic, gotPayload = topic, payload
		return nil
	})
	_ = p.Publish("a/b", "FF")
	if gotTopic != "a/b" || gotPayload != "FF" {
		t.Errorf("got %q %q", gotTopic, gotPayload)
	}
}

func TestMultiPublisher_CallsAllAndReturnsFirstError(t *testing.T) {
	calls := 0
	errA := errors.New("a failed")
	m := MultiPublisher{
		PublisherFunc(func(string, string) error { calls++; return errA }),
		PublisherFunc(func(string, string) error { calls++; return errors.New("b failed") }),
		PublisherFunc(func(string, string) error { calls++; return nil }),
	}
	if err := m.Publish("t", "p"); !errors.Is(err, errA) {
		t.Errorf("expected first error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestMQTTPublisher_DropsWhenNotConnected(t *testing.T) {
	p := NewMQTTPublisher(MQTTOptions{Broker: "localhost"}, nil)
	err := p.Publish("t", "00")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if s := p.Stats(); s.Dropped != 1 || s.Connected {
		t.Errorf("stats = %+v", s)
	}
}

func TestMQTTPublisher_UnreachableBrokerKeepsRetrying(t *testing.T) {
	// Nothing listens on port 1
	p := NewMQTTPublisher(MQTTOptions{
		Broker:         "127.0.0.1:1",
		ConnectTimeout: 200 * time.Millisecond,
	}, nil)
	defer p.Close()

	start := time.Now()
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned %v, want nil while retrying", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Connect took %s", elapsed)
	}

	if err := p.Publish("t", "00"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish returned %v, want ErrNotConnected", err)
	}
	if s := p.Stats(); s.Connected || s.Dropped != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMQTTPublisher_ConnectHonoursContext(t *testing.T) {
	p := NewMQTTPublisher(MQTTOptions{
		Broker:         "127.0.0.1:1",
		ConnectTimeout: 10 * time.Second,
	}, nil)
	defer p.Close()

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Connect(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Connect returned %v, want context.Canceled", err)
		}
	})

	t.Run("deadline already passed", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		start := time.Now()
		if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Connect returned %v, want context.DeadlineExceeded", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Connect took %s", elapsed)
		}
	})
}

func TestNewClientID(t *testing.T) {
	a, b := NewClientID(), NewClientID()
	if !strings.HasPrefix(a, ClientIDPrefix) || len(a) != len(ClientIDPrefix)+8 {
		t.Errorf("unexpected client id %q", a)
	}
	if a == b {
		t.Error("client ids should be unique")
	}
}

func TestBrokerURL(t *testing.T) {
	tests := map[string]string{
		"192.168.178.99":       "tcp://192.168.178.99:1883",
		"broker.local:1884":    "tcp://broker.local:1884",
		"ssl://broker:8883":    "ssl://broker:8883",
		"tcp://127.0.0.1:1883": "tcp://127.0.0.1:1883",
	}
	for in, want := range tests {
		if got := BrokerURL(in); got != want {
			t.Errorf("BrokerURL(%q) = %q, want %q", in, got, want)
		}
	}
}
