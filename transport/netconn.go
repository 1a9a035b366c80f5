// File: transport/netconn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
)

// netConn holds the live connection shared by every socket flavour.
// Read and Write run without the lock so Close can interrupt them.
type netConn struct {
	mu   sync.RWMutex
	conn net.Conn
}

func (n *netConn) set(c net.Conn) {
	n.mu.Lock()
	n.conn = c
	n.mu.Unlock()
}

func (n *netConn) get() net.Conn {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn
}

// Read fills p with whatever is available, at least one byte.
func (n *netConn) Read(p []byte) (int, error) {
	c := n.get()
	if c == nil {
		return 0, api.ErrSocketClosed
	}
	return c.Read(p)
}

// Write writes all of p.
func (n *netConn) Write(p []byte) (int, error) {
	c := n.get()
	if c == nil {
		return 0, api.ErrSocketClosed
	}
	return c.Write(p)
}

// Close releases the connection. Closing an unopened socket reports ErrSocketClosed.
func (n *netConn) Close() error {
	n.mu.Lock()
	c := n.conn
	n.conn = nil
	n.mu.Unlock()
	if c == nil {
		return api.ErrSocketClosed
	}
	return errors.Wrap(c.Close(), "close")
}

// IsOpen reports whether a connection is held.
func (n *netConn) IsOpen() bool {
	return n.get() != nil
}

// LocalAddr returns the local address of the live connection.
func (n *netConn) LocalAddr() net.Addr {
	if c := n.get(); c != nil {
		return c.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the peer address of the live connection.
func (n *netConn) RemoteAddr() net.Addr {
	if c := n.get(); c != nil {
		return c.RemoteAddr()
	}
	return nil
}
