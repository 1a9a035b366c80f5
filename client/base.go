// File: client/base.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Configuration, callback slots and lifecycle shared by every client kind.

package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/session"
	"github.com/momentics/hioload-net/transport"
)

type base struct {
	network string
	opts    options
	log     zerolog.Logger
	cb      *dispatcher
	sess    *session.Session

	mu  sync.Mutex
	cfg Config
}

func newBase(network string, cfg Config, opts []Option) *base {
	b := &base{network: network, cfg: cfg, cb: &dispatcher{}}
	for _, o := range opts {
		o(&b.opts)
	}
	b.log = log.Logger
	if b.opts.logger != nil {
		b.log = *b.opts.logger
	}
	return b
}

// open creates the session with h receiving its events.
func (b *base) open(h api.EventHandler, upgrade session.UpgradeFunc) {
	logger := b.log
	deps := session.Deps{
		Sockets:   b.newSocket,
		Resolver:  b.opts.resolver,
		Network:   b.network,
		Executor:  b.opts.executor,
		Scheduler: b.opts.scheduler,
		Upgrade:   upgrade,
		Logger:    &logger,
	}
	if b.opts.metrics != nil {
		deps.Metrics = b.opts.metrics
	}
	b.sess = session.New(b.cfg.session(), deps, h)
}

func (b *base) newSocket() api.Socket {
	if b.opts.sockets != nil {
		return b.opts.sockets()
	}
	cfg := b.Config()
	switch {
	case b.network == "udp":
		return transport.NewUDP(cfg.Socket)
	case cfg.TLS != nil:
		tc, err := cfg.TLS.Build(cfg.Host)
		if err != nil {
			return failedSocket{err: err}
		}
		return transport.NewTLS(cfg.Socket, tc)
	default:
		return transport.NewTCP(cfg.Socket)
	}
}

// Config returns a copy of the current configuration.
func (b *base) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// SetConfig replaces the whole configuration. It fails with
// api.ErrSessionActive while connecting or connected.
func (b *base) SetConfig(cfg Config) error {
	return b.update(func(c *Config) { *c = cfg })
}

func (b *base) update(fn func(*Config)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.cfg
	fn(&next)
	if err := b.sess.SetConfig(next.session()); err != nil {
		return err
	}
	b.cfg = next
	return nil
}

// SetHost sets the remote host, port or service name, and address family.
func (b *base) SetHost(host, port string, family api.Family) error {
	return b.update(func(c *Config) {
		c.Host, c.Port, c.Family = host, port, family
	})
}

// SetTimeout sets the pause between connect attempts.
func (b *base) SetTimeout(d time.Duration) error {
	return b.update(func(c *Config) { c.Timeout = d })
}

// SetMaxAttempts bounds connect retries after the first failure.
func (b *base) SetMaxAttempts(n int) error {
	return b.update(func(c *Config) { c.MaxAttempts = n })
}

// SetMaxSendBufferSize sets the largest single write when splitting.
func (b *base) SetMaxSendBufferSize(n int) error {
	return b.update(func(c *Config) { c.MaxSendBufferSize = n })
}

// SetMaxReceiveBufferSize sets the most bytes delivered by one read.
func (b *base) SetMaxReceiveBufferSize(n int) error {
	return b.update(func(c *Config) { c.MaxReceiveBufferSize = n })
}

// SetSplitPackage toggles splitting of oversized sends.
func (b *base) SetSplitPackage(on bool) error {
	return b.update(func(c *Config) { c.SplitPackage = on })
}

// SetHandlers replaces every callback slot at once.
func (b *base) SetHandlers(h Handlers) { b.cb.set(func(cur *Handlers) { *cur = h }) }

func (b *base) OnConnected(fn func()) { b.cb.set(func(h *Handlers) { h.Connected = fn }) }
func (b *base) OnMessageReceived(fn func(api.Message)) {
	b.cb.set(func(h *Handlers) { h.MessageReceived = fn })
}
func (b *base) OnMessageSent(fn func(int, error)) { b.cb.set(func(h *Handlers) { h.MessageSent = fn }) }
func (b *base) OnConnectionRetry(fn func(int)) {
	b.cb.set(func(h *Handlers) { h.ConnectionRetry = fn })
}
func (b *base) OnError(fn func(api.ErrorCode, error)) { b.cb.set(func(h *Handlers) { h.Error = fn }) }
func (b *base) OnClose(fn func())                     { b.cb.set(func(h *Handlers) { h.Close = fn }) }

// Connect starts connecting in the background. It returns false while a
// connection attempt or live connection exists.
func (b *base) Connect() bool { return b.sess.Connect() }

// Close tears the connection down and raises the close callback.
func (b *base) Close() { b.sess.Close() }

// IsConnected reports whether a connection is live.
func (b *base) IsConnected() bool { return b.sess.IsConnected() }

// State returns the session lifecycle state.
func (b *base) State() api.SessionState { return b.sess.State() }

// ErrorCode returns the code of the last error, 0 if none.
func (b *base) ErrorCode() api.ErrorCode { return b.sess.ErrorCode() }

// ErrorMessage returns the text of the last error.
func (b *base) ErrorMessage() string { return b.sess.ErrorMessage() }

// Stats returns the session counters.
func (b *base) Stats() map[string]uint64 { return b.sess.Stats() }

// PublishStats pushes the counters into the metrics sink given WithMetrics.
func (b *base) PublishStats() { b.sess.PublishStats() }

// Flush waits until every accepted send has been handed to the socket.
func (b *base) Flush(ctx context.Context) error { return b.sess.Flush(ctx) }
