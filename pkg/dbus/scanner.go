// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

// ScanResult describes one scanner pass
type ScanResult struct {
	Frames []Frame

	// Rejected counts candidate positions skipped by length or CRC checks
	Rejected int

	// AckBytes counts ACK bytes consumed after accepted frames
	AckBytes int

	// Consumed is the number of bytes removed after accepted frames
	Consumed int

	// Truncated is the number of bytes removed because no frame was found
	// and the buffer exceeded the maximum frame length
	Truncated int
}

// Scanner locates CRC-valid frames in a FrameBuffer
type Scanner struct {
	minLen int
	maxLen int
	crc    *CRC16
}

// NewScanner creates a scanner for frames of minLen..maxLen bytes
func NewScanner(minLen, maxLen int, params CRCParams) *Scanner {
	return &Scanner{
		minLen: minLen,
		maxLen: maxLen,
		crc:    NewCRC16(params),
	}
}

// Scan runs a single left-to-right pass over buf and prunes it afterwards.
// Every rejection advances the position by one byte, so a pass over n bytes
// takes at most n steps.
func (s *Scanner) Scan(buf *FrameBuffer, now uint32) ScanResult {
	var res ScanResult
	data := buf.Bytes()
	n := len(data)
	lastEnd := 0

	for pos := 0; pos < n; {
		frameLen := int(data[pos]) + FrameOverhead
		if frameLen < s.minLen || frameLen > s.maxLen || frameLen > n-pos {
			pos++
			res.Rejected++
			continue
		}

		// A valid frame leaves a zero residue when its CRC bytes are included
		s.crc.Restart()
		s.crc.AddBytes(data[pos : pos+frameLen])
		if s.crc.Calc() != 0 {
			pos++
			res.Rejected++
			continue
		}

		frame := Frame{
			Data:     append([]byte(nil), data[pos:pos+frameLen]...),
			Received: now,
		}
		pos += frameLen

		if pos < n && isAck(frame.Header(), data[pos]) {
			frame.Ack = data[pos]
			frame.HasAck = true
			res.AckBytes++
			pos++
		}

		lastEnd = pos
		res.Frames = append(res.Frames, frame)
	}

	if lastEnd > 0 {
		buf.Discard(lastEnd)
		res.Consumed = lastEnd
	} else if n > s.maxLen {
		res.Truncated = n - s.maxLen
		buf.KeepLast(s.maxLen)
	}

	return res
}
