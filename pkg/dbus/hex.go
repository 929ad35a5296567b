// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeHex returns two uppercase hex digits per byte with no separators.
// The result is always exactly 2*len(data) characters long.
func EncodeHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return fmt.Sprintf("%X", data)
}

// DecodeHex parses hex digits of either case. Whitespace between digits is
// ignored, so "02 0F 01" and "020f01" decode alike.
func DecodeHex(s string) ([]byte, error) {
	digits := strings.Join(strings.Fields(s), "")
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return data, nil
}
