// File: client/udp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

// UDPClient is a connected datagram client: Connect fixes the default peer
// and only datagrams from that peer are delivered. Each read delivers one
// datagram; a split send leaves as several datagrams.
type UDPClient struct {
	*base
}

// NewUDPClient builds an idle client; start from DefaultUDPConfig.
func NewUDPClient(cfg Config, opts ...Option) *UDPClient {
	c := &UDPClient{base: newBase("udp", cfg, opts)}
	c.log = c.log.With().Str("client", "udp").Logger()
	c.open(c.cb, nil)
	return c
}

func (c *UDPClient) Send(text string) bool { return c.sess.Send([]byte(text)) }

func (c *UDPClient) SendRaw(p []byte) bool { return c.sess.Send(p) }
