// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a single human-readable line
func FormatFrame(f Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%10d] len=%-2d hdr=0x%02X", f.Received, f.Len(), f.Header())
	if f.HasAck {
		fmt.Fprintf(&b, " ack=0x%02X", f.Ack)
	} else {
		b.WriteString(" ack=--  ")
	}
	fmt.Fprintf(&b, " crc=0x%04X  %s\n", f.CRC(), FormatBytes(f.Payload()))
	return b.String()
}

// FormatBytes renders bytes as space separated uppercase hex pairs
func FormatBytes(data []byte) string {
	if len(data) == 0 {
		return "(no payload)"
	}
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
