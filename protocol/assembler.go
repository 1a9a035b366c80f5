// File: protocol/assembler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stream-to-message reassembly for the client read path.

package protocol

import (
	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/core/buffer"
)

var (
	ErrUnexpectedContinuation = errors.New("continuation frame without a message in progress")
	ErrInterleavedMessage     = errors.New("new data frame while a fragmented message is in progress")
	ErrMessageTooLarge        = errors.New("reassembled message exceeds limit")
	ErrMaskedServerFrame      = errors.New("server frame is masked")
)

// Event is one unit handed to the application: a complete data message
// (Text or Binary) or a single control frame.
type Event struct {
	Opcode  byte
	Payload []byte
}

// Assembler accumulates raw bytes, decodes whole frames and joins
// fragments. It is not safe for concurrent use.
type Assembler struct {
	in         *buffer.Buffer
	msg        *buffer.Buffer
	msgOp      byte
	inMessage  bool
	maxMessage int
}

// NewAssembler returns an assembler; maxMessage <= 0 disables the limit.
func NewAssembler(maxMessage int) *Assembler {
	return &Assembler{
		in:         buffer.New(4096),
		msg:        buffer.New(0),
		maxMessage: maxMessage,
	}
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (a *Assembler) Buffered() int { return a.in.Len() }

// Reset drops all partial state.
func (a *Assembler) Reset() {
	a.in.Reset()
	a.msg.Reset()
	a.inMessage = false
}

// Feed appends p and returns every event it completes, in stream order.
// After an error the assembler must be Reset.
func (a *Assembler) Feed(p []byte) ([]Event, error) {
	_, _ = a.in.Write(p)
	var events []Event
	for {
		f, n, err := DecodeFrame(a.in.Bytes())
		if err != nil {
			return events, err
		}
		if f == nil {
			return events, nil
		}
		a.in.Consume(n)
		if f.Masked {
			return events, ErrMaskedServerFrame
		}

		if IsControl(f.Opcode) {
			events = append(events, Event{Opcode: f.Opcode, Payload: f.Payload})
			continue
		}
		ev, done, err := a.data(f)
		if err != nil {
			return events, err
		}
		if done {
			events = append(events, ev)
		}
	}
}

func (a *Assembler) data(f *Frame) (Event, bool, error) {
	switch {
	case f.Opcode == OpcodeContinuation && !a.inMessage:
		return Event{}, false, ErrUnexpectedContinuation
	case f.Opcode != OpcodeContinuation && a.inMessage:
		return Event{}, false, ErrInterleavedMessage
	}
	if f.Opcode != OpcodeContinuation {
		if f.IsFinal {
			return Event{Opcode: f.Opcode, Payload: f.Payload}, true, nil
		}
		a.msgOp = f.Opcode
		a.inMessage = true
		a.msg.Reset()
	}
	if a.maxMessage > 0 && a.msg.Len()+len(f.Payload) > a.maxMessage {
		return Event{}, false, ErrMessageTooLarge
	}
	_, _ = a.msg.Write(f.Payload)
	if !f.IsFinal {
		return Event{}, false, nil
	}
	a.inMessage = false
	return Event{Opcode: a.msgOp, Payload: a.msg.Detach()}, true, nil
}
