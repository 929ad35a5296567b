// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dbus decodes the appliance serial bus ("D-Bus") used by BSH washing
// machines and dryers. It is unrelated to the desktop IPC bus of the same name.
//
// A frame on the wire is a length byte L, L+1 header and payload bytes, and a
// big-endian CRC-16/XMODEM over everything before it. The bus answers most
// frames with a single ACK byte. The decoder scans a bounded buffer for
// candidate frames, validates them by CRC residue and resynchronizes one byte
// at a time after noise.
package dbus

// Frame size limits
const (
	DefaultMinFrameLength = 6
	DefaultMaxFrameLength = 32
	FrameOverhead         = 4 // length byte + header byte + 2 CRC bytes
	MaxFrameLengthLimit   = 0xFF + FrameOverhead
)

// Buffer and timing defaults
const (
	DefaultBufferSize  = 128
	DefaultReadTimeout = 50 // milliseconds
	DefaultBaudRate    = 9600
	DefaultTopic       = "washingmachine/dbus"
)

// ACK byte encoding
const (
	ackLowNibble   = 0x0A
	ackHighMask    = 0xF0
	ackSpecialHdr  = 0x0F
	ackSpecialByte = 0x1A
)
