// File: internal/session/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/resolver"
)

// Config is the per-session connection configuration. It is read-only while
// the session is active.
type Config struct {
	Host    string
	Service string
	Family  api.Family

	// RetryDelay is the fixed pause between connect attempts.
	RetryDelay time.Duration
	// MaxAttempts bounds the retries after the first failed attempt.
	MaxAttempts int
	// MaxSendChunk is the largest single write when Split is on.
	MaxSendChunk int
	// MaxReceiveBuffer is the most bytes one read delivers.
	MaxReceiveBuffer int
	Split            bool
}

const (
	DefaultHost             = "localhost"
	DefaultService          = "3000"
	DefaultRetryDelay       = 3 * time.Second
	DefaultMaxAttempts      = 3
	DefaultMaxSendChunk     = 1400
	DefaultMaxReceiveBuffer = 8192
)

// DefaultConfig returns the stream defaults.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		Service:          DefaultService,
		Family:           api.FamilyV4,
		RetryDelay:       DefaultRetryDelay,
		MaxAttempts:      DefaultMaxAttempts,
		MaxSendChunk:     DefaultMaxSendChunk,
		MaxReceiveBuffer: DefaultMaxReceiveBuffer,
		Split:            true,
	}
}

func (c Config) normalized() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Service == "" {
		c.Service = DefaultService
	}
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.MaxReceiveBuffer <= 0 {
		c.MaxReceiveBuffer = DefaultMaxReceiveBuffer
	}
	return c
}

// MetricsSink receives published session metrics.
type MetricsSink interface {
	Set(key string, value any)
}

// UpgradeFunc runs after the socket connects and before the session reports
// Connected. It may wrap the socket; an error counts as a failed attempt.
type UpgradeFunc func(sock api.Socket) (api.Socket, error)

// Deps are the collaborators a session borrows.
type Deps struct {
	// Sockets creates one socket per connection attempt. Required.
	Sockets api.SocketFactory
	// Resolver defaults to the platform resolver for Network.
	Resolver resolver.Resolver
	// Network is "tcp" or "udp"; it selects the service namespace.
	Network string
	// Executor defaults to the process-wide worker pool.
	Executor api.Executor
	// Scheduler defaults to the process-wide timer scheduler.
	Scheduler api.Scheduler
	Upgrade   UpgradeFunc
	Metrics   MetricsSink
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}
