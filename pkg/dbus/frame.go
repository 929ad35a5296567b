// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

// Frame is a CRC-validated D-Bus frame
type Frame struct {
	// Data holds the complete frame: length byte, header, payload and CRC.
	// It is a private copy and never aliases the decoder buffer.
	Data []byte

	// Ack is the acknowledgement byte consumed after the frame, if HasAck.
	Ack    byte
	HasAck bool

	// Received is the clock reading (ms) of the read that completed the frame
	Received uint32
}

// Len returns the total frame length in bytes
func (f Frame) Len() int {
	return len(f.Data)
}

// Header returns the byte following the length byte
func (f Frame) Header() byte {
	if len(f.Data) < 2 {
		return 0
	}
	return f.Data[1]
}

// Payload returns the bytes between the header byte and the CRC
func (f Frame) Payload() []byte {
	if len(f.Data) < FrameOverhead {
		return nil
	}
	return f.Data[2 : len(f.Data)-2]
}

// CRC returns the transmitted big-endian CRC
func (f Frame) CRC() uint16 {
	n := len(f.Data)
	if n < 2 {
		return 0
	}
	return uint16(f.Data[n-2])<<8 | uint16(f.Data[n-1])
}

// Hex returns the uppercase hex encoding of the whole frame
func (f Frame) Hex() string {
	return EncodeHex(f.Data)
}

// isAck reports whether b acknowledges a frame with the given header byte
func isAck(header, b byte) bool {
	if b == ExpectedAck(header) {
		return true
	}
	return header == ackSpecialHdr && b == ackSpecialByte
}

// ExpectedAck returns the ACK byte the bus sends after a frame with this header
func ExpectedAck(header byte) byte {
	return (header & ackHighMask) | ackLowNibble
}
