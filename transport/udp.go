// File: transport/udp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
)

// UDPSocket is a connected datagram socket: Connect fixes the default peer
// and the kernel then drops datagrams from any other source.
type UDPSocket struct {
	netConn
	opts Options
}

// NewUDP returns an unconnected UDP socket.
func NewUDP(opts Options) *UDPSocket {
	return &UDPSocket{opts: opts}
}

// UDPFactory returns a SocketFactory producing UDP sockets.
func UDPFactory(opts Options) api.SocketFactory {
	return func() api.Socket { return NewUDP(opts) }
}

// Connect binds an ephemeral local port and sets ep as the default peer.
func (s *UDPSocket) Connect(ctx context.Context, ep api.Endpoint) error {
	c, err := s.opts.dialer(false).DialContext(ctx, ep.Family.Network("udp"), ep.String())
	if err != nil {
		return errors.Wrapf(err, "connect %s", ep)
	}
	s.set(c)
	return nil
}

// Shutdown has nothing to tear down on a datagram socket.
func (s *UDPSocket) Shutdown() error {
	if !s.IsOpen() {
		return api.ErrSocketClosed
	}
	return nil
}

var _ api.Socket = (*UDPSocket)(nil)
