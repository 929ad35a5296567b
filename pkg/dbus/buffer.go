// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

// Elapsed returns now-since on a wrapping 32-bit millisecond clock
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// FrameBuffer is a bounded byte queue that forgets its contents when the
// gap between two reads exceeds the read timeout
type FrameBuffer struct {
	data     []byte
	capacity int
	timeout  uint32
	lastRead uint32
}

// NewFrameBuffer creates an empty buffer
func NewFrameBuffer(capacity int, timeout uint32) *FrameBuffer {
	return &FrameBuffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
		timeout:  timeout,
	}
}

// Append stores incoming bytes read at time now. If more than the read timeout
// has passed since the previous read, buffered bytes are discarded first.
// Bytes that do not fit are dropped. Returns the number of dropped bytes and
// the number of bytes discarded by the timeout.
func (b *FrameBuffer) Append(data []byte, now uint32) (dropped, expired int) {
	if Elapsed(now, b.lastRead) > b.timeout {
		expired = len(b.data)
		b.data = b.data[:0]
	}
	b.lastRead = now

	free := b.capacity - len(b.data)
	if free < 0 {
		free = 0
	}
	if len(data) > free {
		dropped = len(data) - free
		data = data[:free]
	}
	b.data = append(b.data, data...)
	return dropped, expired
}

// Bytes returns the buffered bytes. The slice is only valid until the next
// call that modifies the buffer.
func (b *FrameBuffer) Bytes() []byte {
	return b.data
}

// Len returns the number of buffered bytes
func (b *FrameBuffer) Len() int {
	return len(b.data)
}

// Cap returns the buffer capacity
func (b *FrameBuffer) Cap() int {
	return b.capacity
}

// LastRead returns the clock reading of the most recent Append
func (b *FrameBuffer) LastRead() uint32 {
	return b.lastRead
}

// Discard removes the first n bytes
func (b *FrameBuffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	rest := copy(b.data, b.data[n:])
	b.data = b.data[:rest]
}

// KeepLast removes bytes from the front until at most n remain
func (b *FrameBuffer) KeepLast(n int) {
	if len(b.data) > n {
		b.Discard(len(b.data) - n)
	}
}

// Reset empties the buffer and forgets the last read time
func (b *FrameBuffer) Reset() {
	b.data = b.data[:0]
	b.lastRead = 0
}
