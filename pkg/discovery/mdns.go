// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package discovery finds an MQTT broker on the local network via mDNS
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type advertised by MQTT brokers
	ServiceType = "_mqtt._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout bounds a broker lookup
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries no port
	DefaultPort = 1883
)

// ErrNoBroker is returned when no broker answered before the timeout
var ErrNoBroker = errors.New("no MQTT broker found via mDNS")

// Broker is a discovered MQTT broker
type Broker struct {
	Instance string
	HostName string
	IP       string
	Port     int
}

// Address returns host:port suitable for the MQTT client
func (b *Broker) Address() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// FindBroker returns the first broker announcing _mqtt._tcp
func FindBroker(ctx context.Context, timeout time.Duration) (*Broker, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Broker, 1)
	go func() {
		for entry := range entries {
			if b := parseServiceEntry(entry); b != nil {
				select {
				case found <- b:
					cancel()
				default:
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case b := <-found:
		return b, nil
	case <-ctx.Done():
		select {
		case b := <-found:
			return b, nil
		default:
		}
		return nil, ErrNoBroker
	}
}

// parseServiceEntry converts a zeroconf entry, preferring IPv4.
// Returns nil if the entry has no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Broker {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Broker{
		Instance: entry.Instance,
		HostName: entry.HostName,
		IP:       ip,
		Port:     port,
	}
}
