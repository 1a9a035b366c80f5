// Package fake
// Author: momentics <momentics@gmail.com>
//
// Instrumented in-memory sockets and resolvers for session tests.

package fake

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
)

// Socket is a scripted api.Socket. Inbound data is fed by the test; writes
// are recorded.
type Socket struct {
	mu          sync.Mutex
	connectErr  error
	writeErr    error
	shutdownErr error
	closeErr    error
	open        bool
	peer        api.Endpoint
	writes      [][]byte
	pending     []byte
	shutdowns   int
	closes      int

	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	reading    atomic.Int32
	maxReading atomic.Int32
}

// NewSocket returns an unconnected socket.
func NewSocket() *Socket {
	return &Socket{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

// FailConnect makes Connect return err.
func (s *Socket) FailConnect(err error) *Socket {
	s.mu.Lock()
	s.connectErr = err
	s.mu.Unlock()
	return s
}

// FailWrites makes every Write return err until called with nil.
func (s *Socket) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// FailShutdown and FailClose script the teardown steps.
func (s *Socket) FailShutdown(err error) { s.mu.Lock(); s.shutdownErr = err; s.mu.Unlock() }
func (s *Socket) FailClose(err error)    { s.mu.Lock(); s.closeErr = err; s.mu.Unlock() }

// Feed delivers p to the next reads.
func (s *Socket) Feed(p []byte) {
	s.inbound <- append([]byte(nil), p...)
}

// Hangup makes reads return io.EOF once fed data is consumed.
func (s *Socket) Hangup() { close(s.inbound) }

func (s *Socket) Connect(_ context.Context, ep api.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.peer = ep
	s.open = true
	return nil
}

func (s *Socket) Read(p []byte) (int, error) {
	cur := s.reading.Add(1)
	defer s.reading.Add(-1)
	for {
		old := s.maxReading.Load()
		if cur <= old || s.maxReading.CompareAndSwap(old, cur) {
			break
		}
	}

	s.mu.Lock()
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	select {
	case data, ok := <-s.inbound:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, data)
		if n < len(data) {
			s.mu.Lock()
			s.pending = data[n:]
			s.mu.Unlock()
		}
		return n, nil
	case <-s.closed:
		return 0, api.ErrSocketClosed
	}
}

func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, api.ErrSocketClosed
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (s *Socket) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	return s.shutdownErr
}

func (s *Socket) Close() error {
	s.mu.Lock()
	s.closes++
	s.open = false
	err := s.closeErr
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return err
}

func (s *Socket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Peer returns the endpoint of the last successful Connect.
func (s *Socket) Peer() api.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Writes returns a copy of every recorded write, in write order.
func (s *Socket) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Written returns the concatenation of all recorded writes.
func (s *Socket) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, w := range s.writes {
		out = append(out, w...)
	}
	return out
}

// MaxConcurrentReads is the largest number of Read calls ever in flight at once.
func (s *Socket) MaxConcurrentReads() int { return int(s.maxReading.Load()) }

// Reading reports whether a Read is currently blocked.
func (s *Socket) Reading() bool { return s.reading.Load() > 0 }

func (s *Socket) Shutdowns() int { s.mu.Lock(); defer s.mu.Unlock(); return s.shutdowns }
func (s *Socket) Closes() int    { s.mu.Lock(); defer s.mu.Unlock(); return s.closes }

var _ api.Socket = (*Socket)(nil)
