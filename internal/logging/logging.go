// File: internal/logging/logging.go
// Package logging
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide zerolog setup for binaries and examples.

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLevel  = "HIOLOAD_LOG_LEVEL"
	EnvFormat = "HIOLOAD_LOG_FORMAT"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects the log level and output format.
type Options struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// FromEnv overlays the environment onto o.
func (o Options) FromEnv() Options {
	if v := os.Getenv(EnvLevel); v != "" {
		o.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		o.Format = v
	}
	return o
}

// New builds a logger writing to w.
func New(w io.Writer, o Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if o.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "log level %q", o.Level)
		}
		level = l
	}

	switch strings.ToLower(o.Format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), errors.Errorf("log format %q", o.Format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Configure builds a stderr logger from o and the environment and installs
// it as log.Logger.
func Configure(app string, o Options) (zerolog.Logger, error) {
	logger, err := New(os.Stderr, o.FromEnv())
	if err != nil {
		return logger, err
	}
	logger = logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger, nil
}
