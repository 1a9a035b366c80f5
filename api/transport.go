// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Socket capability set shared by every transport session. Methods block;
// sessions run them off their reactor context and post the completions back.

package api

import "context"

// Socket is the minimal capability set a session drives.
type Socket interface {
	// Connect opens the socket towards ep. For datagram sockets this only
	// fixes the default peer.
	Connect(ctx context.Context, ep Endpoint) error

	// Read returns once at least one byte (or one datagram) is available.
	Read(p []byte) (int, error)

	// Write writes all of p or fails.
	Write(p []byte) (int, error)

	// Shutdown disables further sends and receives.
	Shutdown() error

	// Close releases the socket; blocked Read/Write calls return an error.
	Close() error

	// IsOpen reports whether Connect succeeded and Close has not been called.
	IsOpen() bool
}

// SocketFactory creates a fresh unconnected socket per connection attempt.
type SocketFactory func() Socket
