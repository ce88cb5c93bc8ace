// SPDX-License-Identifier: GPL-2.0-or-later

package test

import "fmt"

// CappedWriter is an io.Writer that stops buffering once size bytes have
// been written, instead of growing forever. Useful for capturing a DBGU or
// IOX byte stream in a test without risking an unbounded buffer if the
// peripheral under test runs away.
type CappedWriter struct {
	buffer []byte
	size   int
}

// NewCappedWriter is the preferred method of initialisation for CappedWriter.
func NewCappedWriter(size int) (*CappedWriter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size for CappedWriter (%d)", size)
	}
	return &CappedWriter{size: size, buffer: make([]byte, 0, size)}, nil
}

func (w *CappedWriter) String() string {
	return string(w.buffer)
}

// Reset empties the writer's buffer.
func (w *CappedWriter) Reset() {
	w.buffer = w.buffer[:0]
}

// Write implements io.Writer.
func (w *CappedWriter) Write(p []byte) (int, error) {
	remaining := w.size - len(w.buffer)
	if remaining == 0 {
		return 0, nil
	}
	if len(p) < remaining {
		w.buffer = append(w.buffer, p...)
		return len(p), nil
	}
	w.buffer = append(w.buffer, p[:remaining]...)
	return remaining, nil
}
