// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
)

// Factory hands out one fresh Socket per connection attempt and remembers
// every socket it made.
type Factory struct {
	// Setup, if set, scripts each socket before it is returned.
	Setup func(attempt int, s *Socket)

	mu      sync.Mutex
	sockets []*Socket
}

// New is an api.SocketFactory.
func (f *Factory) New() api.Socket {
	s := NewSocket()
	f.mu.Lock()
	f.sockets = append(f.sockets, s)
	attempt := len(f.sockets)
	f.mu.Unlock()
	if f.Setup != nil {
		f.Setup(attempt, s)
	}
	return s
}

// Sockets returns every socket created so far.
func (f *Factory) Sockets() []*Socket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Socket(nil), f.sockets...)
}

// Last returns the most recent socket or nil.
func (f *Factory) Last() *Socket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sockets) == 0 {
		return nil
	}
	return f.sockets[len(f.sockets)-1]
}

// Resolver returns a fixed answer and counts calls.
type Resolver struct {
	Endpoints []api.Endpoint
	Err       error
	calls     atomic.Int32
}

func (r *Resolver) Resolve(ctx context.Context, host, service string, family api.Family) ([]api.Endpoint, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Endpoints, r.Err
}

// Calls returns how many times Resolve ran.
func (r *Resolver) Calls() int { return int(r.calls.Load()) }
