// File: client/tcp.go
// Package client provides the user-facing TCP, UDP, WebSocket and HTTP
// clients over the shared transport session.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

// TCPClient is a stream client, optionally over TLS when Config.TLS is set.
type TCPClient struct {
	*base
}

// NewTCPClient builds an idle client. Connect starts it.
func NewTCPClient(cfg Config, opts ...Option) *TCPClient {
	c := &TCPClient{base: newBase("tcp", cfg, opts)}
	c.log = c.log.With().Str("client", "tcp").Logger()
	c.open(c.cb, nil)
	return c
}

// Send queues text. It returns false when not connected or text is empty.
func (c *TCPClient) Send(text string) bool {
	return c.sess.Send([]byte(text))
}

// SendRaw queues p. It returns false when not connected or p is empty.
func (c *TCPClient) SendRaw(p []byte) bool {
	return c.sess.Send(p)
}
