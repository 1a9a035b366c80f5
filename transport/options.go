// File: transport/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"time"
)

// Options tune the OS socket. Zero values keep the OS defaults.
type Options struct {
	// DialTimeout bounds a single connect attempt.
	DialTimeout time.Duration `toml:"dial_timeout"`
	// RecvBufferBytes sets SO_RCVBUF.
	RecvBufferBytes int `toml:"recv_buffer_bytes"`
	// SendBufferBytes sets SO_SNDBUF.
	SendBufferBytes int `toml:"send_buffer_bytes"`
	// NoDelay sets TCP_NODELAY on stream sockets.
	NoDelay bool `toml:"no_delay"`
}

// DefaultDialTimeout applies when Options.DialTimeout is zero.
const DefaultDialTimeout = 10 * time.Second

func (o Options) dialer(stream bool) *net.Dialer {
	timeout := o.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &net.Dialer{
		Timeout: timeout,
		Control: o.control(stream),
	}
}
