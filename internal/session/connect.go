// File: internal/session/connect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resolve → connect → retry. Every step below runs on the session's reactor
// context; blocking calls run on their own goroutines and post back.

package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/resolver"
)

func (s *Session) resolve(ctx context.Context, epoch uint32) {
	s.ioMu.Lock()
	if s.epoch != epoch {
		s.ioMu.Unlock()
		return
	}
	cfg := s.cfg
	s.setStateLocked(api.SessionResolving)
	s.ioMu.Unlock()

	s.clearError()
	resolver.ResolveAsync(ctx, s.deps.Resolver, cfg.Host, cfg.Service, cfg.Family, func(eps []api.Endpoint, err error) {
		s.complete(epoch, func() { s.onResolved(ctx, epoch, eps, err) })
	})
}

func (s *Session) onResolved(ctx context.Context, epoch uint32, eps []api.Endpoint, err error) {
	if err == nil && len(eps) == 0 {
		err = api.ErrResolveEmpty
	}
	if err != nil {
		rec := s.recordErrorCode(api.ErrCodeResolve, err)
		s.ioMu.Lock()
		s.setStateLocked(api.SessionClosed)
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		h := s.handler
		s.ioMu.Unlock()
		s.log.Warn().Err(err).Msg("resolve failed")
		h.OnError(rec.Code, err)
		return
	}

	s.ioMu.Lock()
	s.setStateLocked(api.SessionConnecting)
	s.ioMu.Unlock()

	go func() {
		sock, err := s.dial(ctx, epoch, eps)
		if !s.reactor.Post(func() { s.onDialed(ctx, epoch, sock, err) }) && sock != nil {
			_ = sock.Close()
		}
	}()
}

// dial tries each endpoint in order with a fresh socket and runs the upgrade
// on the first one that connects.
func (s *Session) dial(ctx context.Context, epoch uint32, eps []api.Endpoint) (api.Socket, error) {
	var lastErr error
	for _, ep := range eps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sock := s.deps.Sockets()
		if !s.trackDialing(epoch, sock) {
			return nil, context.Canceled
		}
		err := sock.Connect(ctx, ep)
		if err != nil {
			s.trackDialing(epoch, nil)
			s.log.Debug().Err(err).Stringer("endpoint", ep).Msg("endpoint failed")
			lastErr = err
			continue
		}
		if s.deps.Upgrade != nil {
			upgraded, uerr := s.deps.Upgrade(sock)
			if uerr != nil {
				s.trackDialing(epoch, nil)
				_ = sock.Close()
				return nil, errors.Wrap(uerr, "upgrade")
			}
			sock = upgraded
		}
		s.trackDialing(epoch, nil)
		return sock, nil
	}
	return nil, lastErr
}

// trackDialing records the socket being connected so Close can abort it.
func (s *Session) trackDialing(epoch uint32, sock api.Socket) bool {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.dialing = sock
	return true
}

func (s *Session) onDialed(ctx context.Context, epoch uint32, sock api.Socket, err error) {
	s.ioMu.Lock()
	if s.epoch != epoch {
		s.ioMu.Unlock()
		if sock != nil {
			_ = sock.Close()
		}
		return
	}
	h := s.handler

	if err != nil {
		rec := s.recordError(err)
		if s.attempts < s.cfg.MaxAttempts {
			s.attempts++
			attempt := s.attempts
			delay := s.cfg.RetryDelay
			timer, serr := s.deps.Scheduler.Schedule(delay, func() {
				s.complete(epoch, func() { s.retryAttempt(ctx, epoch, attempt) })
			})
			if serr != nil {
				s.setStateLocked(api.SessionClosed)
			} else {
				s.retry = timer
			}
			s.ioMu.Unlock()
			s.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("connect failed, retrying")
		} else {
			s.setStateLocked(api.SessionClosed)
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
			s.ioMu.Unlock()
			s.log.Warn().Err(err).Msg("connect failed, attempts exhausted")
		}
		h.OnError(rec.Code, err)
		return
	}

	out := newOutbound(s, sock, epoch)
	s.sock = sock
	s.out = out
	s.attempts = 0
	s.retry = nil
	s.setStateLocked(api.SessionConnected)
	cfg := s.cfg
	s.ioMu.Unlock()

	s.log.Info().Str("host", cfg.Host).Str("service", cfg.Service).Msg("connected")
	out.start()
	s.armRead(epoch, sock)
	h.OnConnected()
}

func (s *Session) retryAttempt(ctx context.Context, epoch uint32, attempt int) {
	s.stats.retries.Add(1)
	s.ioMu.Lock()
	s.retry = nil
	h := s.handler
	s.ioMu.Unlock()
	h.OnConnectionRetry(attempt)
	s.resolve(ctx, epoch)
}
