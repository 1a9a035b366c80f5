//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"syscall"

	"github.com/momentics/hioload-net/api"
)

// control is a no-op outside Linux; the OS defaults apply.
func (o Options) control(stream bool) func(network, address string, c syscall.RawConn) error {
	return nil
}

func recvBufferSize(c syscall.Conn) (int, error) {
	return 0, api.ErrNotSupported
}
