// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RFC 6455 frame encoding and decoding. Client frames are always masked
// with a fresh random key.

package protocol

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrFrameTooLarge     = errors.New("frame payload exceeds maximum allowed size")
	ErrControlTooLarge   = errors.New("control frame payload exceeds 125 bytes")
	ErrFragmentedControl = errors.New("control frame is fragmented")
	ErrReservedBits      = errors.New("reserved bits set without extension")
	ErrUnknownOpcode     = errors.New("unknown opcode")
)

// Frame is one decoded WebSocket frame. Payload is already unmasked.
type Frame struct {
	IsFinal bool
	Opcode  byte
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// DecodeFrame parses one frame from the front of raw.
// It returns the frame and the bytes consumed; an incomplete frame yields
// (nil, 0, nil).
func DecodeFrame(raw []byte) (*Frame, int, error) {
	if len(raw) < 2 {
		return nil, 0, nil
	}
	if raw[0]&0x70 != 0 {
		return nil, 0, ErrReservedBits
	}
	fin := raw[0]&FinBit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := uint64(raw[1] & 0x7F)
	offset := 2

	switch opcode {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
	default:
		return nil, 0, errors.Wrapf(ErrUnknownOpcode, "opcode 0x%x", opcode)
	}
	if IsControl(opcode) {
		if !fin {
			return nil, 0, ErrFragmentedControl
		}
		if length > MaxControlPayloadLen {
			return nil, 0, ErrControlTooLarge
		}
	}

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil
		}
		length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil
		}
		length = binary.BigEndian.Uint64(raw[offset:])
		offset += 8
	}
	if length > MaxFramePayload {
		return nil, 0, errors.Wrapf(ErrFrameTooLarge, "%d bytes", length)
	}

	var key [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil
		}
		copy(key[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return nil, 0, nil
	}
	payload := make([]byte, length)
	copy(payload, raw[offset:total])
	if masked {
		maskBytes(payload, key, 0)
	}
	return &Frame{
		IsFinal: fin,
		Opcode:  opcode,
		Masked:  masked,
		MaskKey: key,
		Payload: payload,
	}, total, nil
}

// AppendFrame appends one encoded frame to dst. When mask is set a random
// key is drawn for this frame. payload is not modified.
func AppendFrame(dst []byte, fin bool, opcode byte, payload []byte, mask bool) ([]byte, error) {
	if IsControl(opcode) && len(payload) > MaxControlPayloadLen {
		return dst, ErrControlTooLarge
	}
	var b0 byte
	if fin {
		b0 = FinBit
	}
	b0 |= opcode & 0x0F

	var maskBit byte
	if mask {
		maskBit = MaskBit
	}
	plen := len(payload)
	switch {
	case plen <= 125:
		dst = append(dst, b0, byte(plen)|maskBit)
	case plen <= 0xFFFF:
		dst = append(dst, b0, 126|maskBit)
		dst = binary.BigEndian.AppendUint16(dst, uint16(plen))
	default:
		dst = append(dst, b0, 127|maskBit)
		dst = binary.BigEndian.AppendUint64(dst, uint64(plen))
	}

	if !mask {
		return append(dst, payload...), nil
	}
	key, err := NewMaskKey()
	if err != nil {
		return dst, err
	}
	dst = append(dst, key[:]...)
	start := len(dst)
	dst = append(dst, payload...)
	maskBytes(dst[start:], key, 0)
	return dst, nil
}

// EncodeMessage frames a whole message. With maxPayload > 0 and a longer
// payload the message is fragmented: the first frame carries opcode, the
// rest are continuations, and only the last has FIN. Each returned slice is
// one frame.
func EncodeMessage(opcode byte, payload []byte, maxPayload int, mask bool) ([][]byte, error) {
	if maxPayload <= 0 || len(payload) <= maxPayload || IsControl(opcode) {
		frame, err := AppendFrame(make([]byte, 0, len(payload)+MaxFrameHeaderLen), true, opcode, payload, mask)
		if err != nil {
			return nil, err
		}
		return [][]byte{frame}, nil
	}

	frames := make([][]byte, 0, (len(payload)+maxPayload-1)/maxPayload)
	op := opcode
	for off := 0; off < len(payload); off += maxPayload {
		end := off + maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		frame, err := AppendFrame(make([]byte, 0, end-off+MaxFrameHeaderLen), end == len(payload), op, payload[off:end], mask)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
		op = OpcodeContinuation
	}
	return frames, nil
}

// NewMaskKey draws a masking key from crypto/rand.
func NewMaskKey() ([4]byte, error) {
	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, errors.Wrap(err, "mask key")
	}
	return key, nil
}

// maskBytes XORs buf with key, starting at key position pos.
func maskBytes(buf []byte, key [4]byte, pos int) int {
	for i := range buf {
		buf[i] ^= key[(pos+i)&3]
	}
	return (pos + len(buf)) & 3
}
