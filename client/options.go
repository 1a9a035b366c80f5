// File: client/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/resolver"
)

// MetricsSink receives published client metrics; control.MetricsRegistry
// satisfies it.
type MetricsSink interface {
	Set(key string, value any)
}

type options struct {
	logger    *zerolog.Logger
	executor  api.Executor
	scheduler api.Scheduler
	resolver  resolver.Resolver
	sockets   api.SocketFactory
	metrics   MetricsSink
}

// Option customizes a client at construction.
type Option func(*options)

// WithLogger sets the base logger; the global zerolog logger is the default.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithExecutor runs the client on exec instead of the process-wide pool.
func WithExecutor(exec api.Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithScheduler replaces the retry timer scheduler.
func WithScheduler(s api.Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithResolver replaces the platform resolver.
func WithResolver(r resolver.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithSocketFactory replaces the transport sockets. TLS and socket options
// from Config are ignored when set.
func WithSocketFactory(f api.SocketFactory) Option {
	return func(o *options) { o.sockets = f }
}

// WithMetrics publishes session state and counters into m.
func WithMetrics(m MetricsSink) Option {
	return func(o *options) { o.metrics = m }
}
