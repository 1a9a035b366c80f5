// File: protocol/handshake.go
// Package protocol
// Client side of the RFC 6455 opening handshake: build the upgrade request,
// read and validate the 101 response, compute Sec-WebSocket-Accept.
package protocol

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/core/buffer"
)

const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	MaxHandshakeHeadersSize  = 8192
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	HeaderSecWebSocketProto  = "Sec-WebSocket-Protocol"
	RequiredWebSocketVersion = "13"
)

var (
	ErrInvalidUpgradeHeaders = errors.New("invalid WebSocket upgrade headers")
	ErrBadHandshakeStatus    = errors.New("handshake response is not 101 Switching Protocols")
	ErrBadAcceptKey          = errors.New("Sec-WebSocket-Accept does not match key")
	ErrUnexpectedSubprotocol = errors.New("server selected a subprotocol that was not offered")
	ErrHandshakeTooLarge     = errors.New("handshake headers too large")
)

// Handshake describes the client upgrade request.
type Handshake struct {
	Host      string // Host header, host[:port]
	Path      string
	Origin    string
	Protocols []string
	Version   string
	Header    http.Header
}

// NewChallengeKey returns a random base64 Sec-WebSocket-Key.
func NewChallengeKey() (string, error) {
	var p [16]byte
	if _, err := rand.Read(p[:]); err != nil {
		return "", errors.Wrap(err, "challenge key")
	}
	return base64.StdEncoding.EncodeToString(p[:]), nil
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// Request renders the upgrade request for key.
func (h Handshake) Request(key string) []byte {
	path := h.Path
	if path == "" {
		path = "/"
	}
	version := h.Version
	if version == "" {
		version = RequiredWebSocketVersion
	}
	var b bytes.Buffer
	b.WriteString("GET " + path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + h.Host + "\r\n")
	b.WriteString(HeaderUpgrade + ": websocket\r\n")
	b.WriteString(HeaderConnection + ": Upgrade\r\n")
	b.WriteString(HeaderSecWebSocketKey + ": " + key + "\r\n")
	b.WriteString(HeaderSecWebSocketVer + ": " + version + "\r\n")
	if h.Origin != "" {
		b.WriteString("Origin: " + h.Origin + "\r\n")
	}
	if len(h.Protocols) > 0 {
		b.WriteString(HeaderSecWebSocketProto + ": " + strings.Join(h.Protocols, ", ") + "\r\n")
	}
	_ = h.Header.Write(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}

// ReadResponse reads the response head from r, validates it against key and
// returns the bytes that arrived after the head.
func (h Handshake) ReadResponse(r io.Reader, key string) (*http.Response, []byte, error) {
	acc := buffer.New(512)
	chunk := make([]byte, 512)
	end := -1
	for end < 0 {
		n, err := r.Read(chunk)
		if n > 0 {
			_, _ = acc.Write(chunk[:n])
			end = bytes.Index(acc.Bytes(), []byte("\r\n\r\n"))
		}
		if end >= 0 {
			break
		}
		if acc.Len() > MaxHandshakeHeadersSize {
			return nil, nil, ErrHandshakeTooLarge
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "handshake read response")
		}
	}
	head := acc.Bytes()[:end+4]
	leftover := append([]byte(nil), acc.Bytes()[end+4:]...)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(head)), nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "handshake parse response")
	}
	if err := h.validate(resp, key); err != nil {
		return resp, nil, err
	}
	return resp, leftover, nil
}

func (h Handshake) validate(resp *http.Response, key string) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return errors.Wrapf(ErrBadHandshakeStatus, "status %d", resp.StatusCode)
	}
	if !headerContainsToken(resp.Header, HeaderConnection, "upgrade") ||
		!headerContainsToken(resp.Header, HeaderUpgrade, "websocket") {
		return ErrInvalidUpgradeHeaders
	}
	if resp.Header.Get(HeaderSecWebSocketAccept) != ComputeAcceptKey(key) {
		return ErrBadAcceptKey
	}
	if proto := resp.Header.Get(HeaderSecWebSocketProto); proto != "" {
		for _, p := range h.Protocols {
			if p == proto {
				return nil
			}
		}
		return errors.Wrapf(ErrUnexpectedSubprotocol, "%q", proto)
	}
	return nil
}

// headerContainsToken reports whether the comma-separated header carries token.
func headerContainsToken(h http.Header, headerName, token string) bool {
	for _, v := range h.Values(headerName) {
		for _, p := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(p), token) {
				return true
			}
		}
	}
	return false
}
