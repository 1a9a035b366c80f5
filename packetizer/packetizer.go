// File: packetizer/packetizer.go
// Package packetizer splits outbound payloads into bounded writes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A message no larger than the chunk limit, or any message when splitting is
// disabled, leaves as exactly one write. Larger messages leave as
// ceil(len/max) contiguous writes, the last one carrying the remainder.
// Writes are submitted back to back without waiting for completions.

package packetizer

import (
	"sync"

	"github.com/pkg/errors"
)

// Writer accepts one write submission. SubmitWrite must return without
// waiting for the write or for queue space; Send holds the packetizer lock
// across it.
type Writer interface {
	SubmitWrite(chunk []byte) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(chunk []byte) error

func (f WriterFunc) SubmitWrite(chunk []byte) error { return f(chunk) }

// Count returns how many writes a message of size n produces.
func Count(n, maxChunk int, split bool) int {
	if n == 0 {
		return 0
	}
	if !split || maxChunk <= 0 || n <= maxChunk {
		return 1
	}
	return (n + maxChunk - 1) / maxChunk
}

// Split slices msg into write-sized chunks. Chunks alias msg.
func Split(msg []byte, maxChunk int, split bool) [][]byte {
	count := Count(len(msg), maxChunk, split)
	if count <= 1 {
		if count == 0 {
			return nil
		}
		return [][]byte{msg}
	}
	chunks := make([][]byte, 0, count)
	for off := 0; off < len(msg); off += maxChunk {
		end := off + maxChunk
		if end > len(msg) {
			end = len(msg)
		}
		chunks = append(chunks, msg[off:end:end])
	}
	return chunks
}

// Packetizer serializes concurrent sends so chunks of different messages never interleave.
type Packetizer struct {
	mu       sync.Mutex
	maxChunk int
	split    bool
}

// New returns a packetizer with the given limit and split mode.
func New(maxChunk int, split bool) *Packetizer {
	return &Packetizer{maxChunk: maxChunk, split: split}
}

// MaxChunk returns the configured chunk limit.
func (p *Packetizer) MaxChunk() int { return p.maxChunk }

// SplitEnabled reports whether oversized messages are split.
func (p *Packetizer) SplitEnabled() bool { return p.split }

// Send submits msg to w as one or more writes, in slice order. It returns
// the number of writes submitted. The first submission error stops the
// remaining chunks.
func (p *Packetizer) Send(w Writer, msg []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return submit(w, Split(msg, p.maxChunk, p.split))
}

// SendChunks submits pre-framed chunks, one write each, under the same
// serialization as Send.
func (p *Packetizer) SendChunks(w Writer, chunks [][]byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return submit(w, chunks)
}

func submit(w Writer, chunks [][]byte) (int, error) {
	for i, c := range chunks {
		if err := w.SubmitWrite(c); err != nil {
			return i, errors.Wrapf(err, "submit chunk %d/%d", i+1, len(chunks))
		}
	}
	return len(chunks), nil
}
