// File: protocol/close.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var ErrClosePayload = errors.New("malformed close payload")

// ClosePayload builds the body of a CLOSE frame. A zero code yields an empty
// body; the reason is cut to fit a control frame.
func ClosePayload(code uint16, reason string) []byte {
	if code == 0 {
		return nil
	}
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
		for !utf8.ValidString(reason) {
			reason = reason[:len(reason)-1]
		}
	}
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, code)
	return append(p, reason...)
}

// ParseClosePayload splits a CLOSE body into code and reason. An empty body
// reports CloseNoStatusRcvd.
func ParseClosePayload(p []byte) (uint16, string, error) {
	switch {
	case len(p) == 0:
		return CloseNoStatusRcvd, "", nil
	case len(p) == 1:
		return 0, "", ErrClosePayload
	}
	reason := p[2:]
	if !utf8.Valid(reason) {
		return 0, "", errors.Wrap(ErrClosePayload, "reason is not utf-8")
	}
	return binary.BigEndian.Uint16(p), string(reason), nil
}
