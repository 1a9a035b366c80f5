// File: transport/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"net"
	"syscall"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
)

// TCPSocket is a stream socket.
type TCPSocket struct {
	netConn
	opts Options
}

// NewTCP returns an unconnected TCP socket.
func NewTCP(opts Options) *TCPSocket {
	return &TCPSocket{opts: opts}
}

// TCPFactory returns a SocketFactory producing TCP sockets.
func TCPFactory(opts Options) api.SocketFactory {
	return func() api.Socket { return NewTCP(opts) }
}

// Connect dials ep.
func (s *TCPSocket) Connect(ctx context.Context, ep api.Endpoint) error {
	c, err := s.opts.dialer(true).DialContext(ctx, ep.Family.Network("tcp"), ep.String())
	if err != nil {
		return errors.Wrapf(err, "connect %s", ep)
	}
	s.set(c)
	return nil
}

// Shutdown half-closes both directions.
func (s *TCPSocket) Shutdown() error {
	c, ok := s.get().(*net.TCPConn)
	if !ok {
		return api.ErrSocketClosed
	}
	werr := c.CloseWrite()
	rerr := c.CloseRead()
	if werr != nil {
		return errors.Wrap(werr, "shutdown send")
	}
	return errors.Wrap(rerr, "shutdown receive")
}

// RecvBufferSize reports the effective SO_RCVBUF.
func (s *TCPSocket) RecvBufferSize() (int, error) {
	c, ok := s.get().(syscall.Conn)
	if !ok {
		return 0, api.ErrSocketClosed
	}
	return recvBufferSize(c)
}

var _ api.Socket = (*TCPSocket)(nil)
