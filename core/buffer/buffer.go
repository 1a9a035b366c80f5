// File: core/buffer/buffer.go
// Package buffer implements the growable byte sequence carried by every
// inbound and outbound message.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Buffer owns its storage. Its logical size (Len) is tracked separately
// from the allocated capacity (Cap), so consumers can reuse the backing
// array across Reset/Consume without reallocating.

package buffer

import (
	"bytes"
	"io"
)

// minGrow is the smallest growth step once a buffer has to reallocate.
const minGrow = 64

// Buffer is a growable, owned byte sequence. The zero value is an empty buffer.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte
}

// New returns an empty buffer with at least capacity bytes reserved.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, 0, capacity)}
}

// From returns a buffer holding a private copy of p.
func From(p []byte) *Buffer {
	b := New(len(p))
	b.data = append(b.data, p...)
	return b
}

// Wrap takes ownership of p without copying. The caller must not touch p afterwards.
func Wrap(p []byte) *Buffer {
	return &Buffer{data: p}
}

// Len returns the logical size.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the allocated capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Bytes returns the live region. The slice aliases the buffer until the next mutation.
func (b *Buffer) Bytes() []byte { return b.data }

// String returns the live region as text.
func (b *Buffer) String() string {
	if b == nil {
		return "<nil>"
	}
	return string(b.data)
}

// Grow guarantees room for another n bytes without reallocation.
func (b *Buffer) Grow(n int) {
	if n <= cap(b.data)-len(b.data) {
		return
	}
	need := len(b.data) + n
	newCap := 2 * cap(b.data)
	if newCap < need {
		newCap = need
	}
	if newCap < minGrow {
		newCap = minGrow
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Write appends p, growing as needed. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Grow(len(p))
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) (int, error) {
	b.Grow(len(s))
	b.data = append(b.data, s...)
	return len(s), nil
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.Grow(1)
	b.data = append(b.data, c)
	return nil
}

// ReadFrom appends everything r yields until EOF.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		b.Grow(minGrow * 8)
		n, err := r.Read(b.data[len(b.data):cap(b.data)])
		b.data = b.data[:len(b.data)+n]
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Consume drops the first n bytes, shifting the remainder to the front.
// Consuming more than Len empties the buffer.
func (b *Buffer) Consume(n int) {
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

// Truncate keeps the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.data) {
		panic("buffer: truncation out of range")
	}
	b.data = b.data[:n]
}

// Reset empties the buffer and keeps its capacity.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Detach hands the live region to the caller and leaves b empty with no storage.
func (b *Buffer) Detach() []byte {
	out := b.data
	b.data = nil
	return out
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	return From(b.data)
}

// Equal reports whether both buffers hold the same bytes.
func (b *Buffer) Equal(other *Buffer) bool {
	return bytes.Equal(b.data, other.data)
}
