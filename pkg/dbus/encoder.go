// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import "fmt"

// EncodeFrame builds a wire frame from a header byte and payload.
// The length byte counts the payload only; the CRC is appended big-endian.
func EncodeFrame(header byte, payload []byte) ([]byte, error) {
	return EncodeFrameWithConfig(DefaultConfig(), header, payload)
}

// EncodeFrameWithConfig builds a wire frame checked against cfg's length
// limits and CRC profile
func EncodeFrameWithConfig(cfg Config, header byte, payload []byte) ([]byte, error) {
	frameLen := len(payload) + FrameOverhead
	if frameLen < cfg.MinFrameLength {
		return nil, fmt.Errorf("frame too short: %d bytes (min %d)", frameLen, cfg.MinFrameLength)
	}
	if frameLen > cfg.MaxFrameLength {
		return nil, fmt.Errorf("frame too long: %d bytes (max %d)", frameLen, cfg.MaxFrameLength)
	}

	frame := make([]byte, 0, frameLen)
	frame = append(frame, uint8(len(payload)), header)
	frame = append(frame, payload...)

	crc := ChecksumCRC16(cfg.CRC, frame)
	frame = append(frame, byte(crc>>8), byte(crc&0xFF))
	return frame, nil
}

// MustEncodeFrame is like EncodeFrame but panics on error
func MustEncodeFrame(header byte, payload []byte) []byte {
	frame, err := EncodeFrame(header, payload)
	if err != nil {
		panic(fmt.Sprintf("dbus: encode error: %v", err))
	}
	return frame
}
