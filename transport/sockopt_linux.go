//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// control applies Options to the raw descriptor before connect.
func (o Options) control(stream bool) func(network, address string, c syscall.RawConn) error {
	if o.RecvBufferBytes <= 0 && o.SendBufferBytes <= 0 && !(stream && o.NoDelay) {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			if o.RecvBufferBytes > 0 {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, o.RecvBufferBytes); e != nil {
					serr = errors.Wrap(e, "set SO_RCVBUF")
					return
				}
			}
			if o.SendBufferBytes > 0 {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, o.SendBufferBytes); e != nil {
					serr = errors.Wrap(e, "set SO_SNDBUF")
					return
				}
			}
			if stream && o.NoDelay {
				if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
					serr = errors.Wrap(e, "set TCP_NODELAY")
				}
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}

// recvBufferSize reads back SO_RCVBUF of a connected socket.
func recvBufferSize(c syscall.Conn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}
	var size int
	var serr error
	if err := raw.Control(func(fd uintptr) {
		size, serr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
	}); err != nil {
		return 0, err
	}
	return size, serr
}
