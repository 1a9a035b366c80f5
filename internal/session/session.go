// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport session: one logical connection driven from resolution through
// teardown over any api.Socket.

package session

import (
	"context"
	"strconv"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/concurrency"
	"github.com/momentics/hioload-net/packetizer"
	"github.com/momentics/hioload-net/pool"
	"github.com/momentics/hioload-net/reactor"
	"github.com/momentics/hioload-net/resolver"
)

var serials atomix.Uint32

// Session owns one socket, one reactor context and the read path of a
// single logical connection.
type Session struct {
	id      uint32
	deps    Deps
	log     zerolog.Logger
	reactor *reactor.Context

	// ioMu guards everything below up to errMu.
	ioMu     sync.Mutex
	cfg      Config
	handler  api.EventHandler
	packer   *packetizer.Packetizer
	readPool *pool.BytePool
	state    api.SessionState
	epoch    uint32 // bumped by Connect and Close; stale completions compare against it
	attempts int
	sock     api.Socket
	dialing  api.Socket
	out      *outbound
	retry    api.Cancelable
	cancel   context.CancelFunc

	errMu   sync.Mutex
	lastErr *api.Error

	stats stats
}

// New creates an idle session. A nil handler ignores every event.
func New(cfg Config, deps Deps, handler api.EventHandler) *Session {
	if deps.Executor == nil {
		deps.Executor = concurrency.Default()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = concurrency.DefaultScheduler()
	}
	if deps.Network == "" {
		deps.Network = "tcp"
	}
	if deps.Resolver == nil {
		deps.Resolver = resolver.NewNet(deps.Network)
	}
	if handler == nil {
		handler = api.NopHandler{}
	}
	base := log.Logger
	if deps.Logger != nil {
		base = *deps.Logger
	}
	id := serials.Add(1)
	s := &Session{
		id:      id,
		deps:    deps,
		handler: handler,
		state:   api.SessionIdle,
	}
	s.log = base.With().Str("component", "session").Uint32("session", id).Str("network", deps.Network).Logger()
	s.reactor = reactor.New(deps.Executor, s.log)
	s.applyConfig(cfg)
	return s
}

func (s *Session) applyConfig(cfg Config) {
	s.cfg = cfg.normalized()
	s.packer = packetizer.New(s.cfg.MaxSendChunk, s.cfg.Split)
	s.readPool = pool.ForSize(s.cfg.MaxReceiveBuffer)
}

// ID returns the process-unique session serial.
func (s *Session) ID() uint32 { return s.id }

// Config returns the current configuration.
func (s *Session) Config() Config {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration. It fails while the session is active.
func (s *Session) SetConfig(cfg Config) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.state.Active() {
		return api.ErrSessionActive
	}
	s.applyConfig(cfg)
	return nil
}

// UpdateConfig applies fn to a copy of the configuration and stores the
// result. It fails while the session is active.
func (s *Session) UpdateConfig(fn func(*Config)) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.state.Active() {
		return api.ErrSessionActive
	}
	cfg := s.cfg
	fn(&cfg)
	s.applyConfig(cfg)
	return nil
}

// SetHandler replaces the event handler. It fails while the session is active.
func (s *Session) SetHandler(h api.EventHandler) error {
	if h == nil {
		h = api.NopHandler{}
	}
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.state.Active() {
		return api.ErrSessionActive
	}
	s.handler = h
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() api.SessionState {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.state
}

// IsConnected reports whether the session holds an open, connected socket.
func (s *Session) IsConnected() bool {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.state == api.SessionConnected && s.sock != nil && s.sock.IsOpen()
}

// Connect starts resolution and connection in the background. It returns
// false while a connection attempt or a live connection exists.
func (s *Session) Connect() bool {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.state.Active() {
		return false
	}
	s.epoch++
	epoch := s.epoch
	s.attempts = 0
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.setStateLocked(api.SessionResolving)
	if !s.reactor.Post(func() { s.resolve(ctx, epoch) }) {
		cancel()
		s.cancel = nil
		s.setStateLocked(api.SessionClosed)
		return false
	}
	return true
}

// Send queues p for packetization. It returns false unless connected or when p is empty.
// p is copied; the caller may reuse it immediately.
func (s *Session) Send(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	msg := append([]byte(nil), p...)
	return s.enqueueSend(func(out *outbound, packer *packetizer.Packetizer) (int, error) {
		return packer.Send(out, msg)
	})
}

// SendChunks queues pre-framed chunks, one write each, without re-splitting.
func (s *Session) SendChunks(chunks [][]byte) bool {
	if len(chunks) == 0 {
		return false
	}
	return s.enqueueSend(func(out *outbound, packer *packetizer.Packetizer) (int, error) {
		return packer.SendChunks(out, chunks)
	})
}

// enqueueSend runs fn on the caller's goroutine. The packetizer serializes
// concurrent senders and the outbound queue never blocks, so no send holds a
// worker.
func (s *Session) enqueueSend(fn func(*outbound, *packetizer.Packetizer) (int, error)) bool {
	s.ioMu.Lock()
	if s.state != api.SessionConnected || s.out == nil {
		s.ioMu.Unlock()
		return false
	}
	out, packer, epoch := s.out, s.packer, s.epoch
	s.ioMu.Unlock()

	if _, err := fn(out, packer); err != nil {
		s.stats.writeErrors.Add(1)
		if errors.Is(err, api.ErrSocketClosed) {
			return false
		}
		s.complete(epoch, func() { s.failWrite(err) })
	}
	return true
}

// Flush waits until every send accepted so far has been handed to the
// socket, or ctx ends. It does not need an executor worker, so handlers may
// call it.
func (s *Session) Flush(ctx context.Context) error {
	s.ioMu.Lock()
	out := s.out
	s.ioMu.Unlock()
	if out == nil {
		return api.ErrNotConnected
	}
	return out.drain(ctx)
}

// Close stops the reactor context, shuts the socket down and closes it,
// reporting each step's error, then raises OnClose. The session can be
// connected again afterwards. Close must not run concurrently with itself.
func (s *Session) Close() {
	s.ioMu.Lock()
	s.epoch++
	s.setStateLocked(api.SessionClosing)
	sock, dialing, out := s.sock, s.dialing, s.out
	retry, cancel := s.retry, s.cancel
	s.sock, s.dialing, s.out, s.retry, s.cancel = nil, nil, nil, nil, nil
	handler := s.handler
	s.ioMu.Unlock()

	s.reactor.Stop()
	if retry != nil {
		_ = s.deps.Scheduler.Cancel(retry)
	}
	if cancel != nil {
		cancel()
	}
	if out != nil {
		out.stop()
	}
	if dialing != nil {
		_ = dialing.Close()
	}
	if sock != nil {
		if err := sock.Shutdown(); err != nil {
			s.reportClose(handler, "shutdown", err)
		}
		if err := sock.Close(); err != nil {
			s.reportClose(handler, "close", err)
		}
	}

	s.ioMu.Lock()
	s.setStateLocked(api.SessionClosed)
	s.ioMu.Unlock()
	handler.OnClose()
	s.reactor.Restart()
}

func (s *Session) reportClose(h api.EventHandler, step string, err error) {
	rec := s.recordError(err)
	s.log.Debug().Err(err).Str("step", step).Msg("close step failed")
	h.OnError(rec.Code, err)
}

// ErrorCode returns the code of the last recorded error, 0 if none.
func (s *Session) ErrorCode() api.ErrorCode {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.lastErr == nil {
		return api.ErrCodeOK
	}
	return s.lastErr.Code
}

// ErrorMessage returns the text of the last recorded error.
func (s *Session) ErrorMessage() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.lastErr == nil {
		return ""
	}
	return s.lastErr.Message
}

// LastError returns the last recorded error or nil.
func (s *Session) LastError() *api.Error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *Session) recordError(err error) *api.Error {
	rec := api.WrapError(err)
	s.errMu.Lock()
	s.lastErr = rec
	s.errMu.Unlock()
	return rec
}

func (s *Session) recordErrorCode(code api.ErrorCode, err error) *api.Error {
	rec := api.WrapErrorCode(code, err)
	s.errMu.Lock()
	s.lastErr = rec
	s.errMu.Unlock()
	return rec
}

func (s *Session) clearError() {
	s.errMu.Lock()
	s.lastErr = nil
	s.errMu.Unlock()
}

// setStateLocked must be called with ioMu held.
func (s *Session) setStateLocked(st api.SessionState) {
	if s.state == st {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("state")
	s.state = st
	if s.deps.Metrics != nil {
		s.deps.Metrics.Set(s.metricKey("state"), st.String())
	}
}

func (s *Session) metricKey(name string) string {
	return "session." + strconv.FormatUint(uint64(s.id), 10) + "." + name
}

// current reports whether epoch still names the live connection attempt.
func (s *Session) current(epoch uint32) bool {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.epoch == epoch
}

// complete posts fn to the reactor, dropping it if the attempt went stale.
func (s *Session) complete(epoch uint32, fn func()) bool {
	return s.reactor.Post(func() {
		if s.current(epoch) {
			fn()
		}
	})
}

func (s *Session) handlerLocked() api.EventHandler {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.handler
}
