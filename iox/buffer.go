// SPDX-License-Identifier: GPL-2.0-or-later

package iox

import "github.com/smallnest/ringbuffer"

// Buffer is the receive ring USART and TWI fill from inbound IOX DATA_IN
// payloads and drain into RHR or through their PDC channel; SPI allocates
// and resets one but never reads or writes it. It is non-blocking: a full write or an
// empty read simply reports zero bytes moved, leaving flow control to the
// caller's own status-register bits.
type Buffer struct {
	rb *ringbuffer.RingBuffer
}

// NewBuffer allocates a ring of the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{rb: ringbuffer.New(capacity)}
}

// PutByte appends one byte, returning false if the ring was full.
func (b *Buffer) PutByte(v byte) bool {
	n, err := b.rb.Write([]byte{v})
	return err == nil && n == 1
}

// GetByte pops one byte, returning false if the ring was empty.
func (b *Buffer) GetByte() (byte, bool) {
	buf := make([]byte, 1)
	n, err := b.rb.Read(buf)
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

// Len reports the number of buffered bytes.
func (b *Buffer) Len() int { return b.rb.Length() }

// IsEmpty reports whether the ring currently holds no bytes.
func (b *Buffer) IsEmpty() bool { return b.rb.IsEmpty() }

// IsFull reports whether the ring is at capacity.
func (b *Buffer) IsFull() bool { return b.rb.IsFull() }

// Reset discards all buffered bytes.
func (b *Buffer) Reset() { b.rb.Reset() }
