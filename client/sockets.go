// File: client/sockets.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"

	"github.com/momentics/hioload-net/api"
)

// failedSocket reports a socket that could not be built, such as a TLS
// configuration error, as a failed connect.
type failedSocket struct{ err error }

func (f failedSocket) Connect(context.Context, api.Endpoint) error { return f.err }
func (f failedSocket) Read([]byte) (int, error)                    { return 0, api.ErrSocketClosed }
func (f failedSocket) Write([]byte) (int, error)                   { return 0, api.ErrSocketClosed }
func (f failedSocket) Shutdown() error                             { return nil }
func (f failedSocket) Close() error                                { return nil }
func (f failedSocket) IsOpen() bool                                { return false }
