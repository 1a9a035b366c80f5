// File: client/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/session"
	"github.com/momentics/hioload-net/transport"
)

// Config holds the user-facing connection parameters shared by every client.
type Config struct {
	Host   string     `toml:"host"`
	Port   string     `toml:"port"`
	Family api.Family `toml:"family"`

	// Timeout is the pause between connect attempts.
	Timeout     time.Duration `toml:"timeout"`
	MaxAttempts int           `toml:"max_attempts"`

	MaxSendBufferSize    int  `toml:"max_send_buffer_size"`
	MaxReceiveBufferSize int  `toml:"max_receive_buffer_size"`
	SplitPackage         bool `toml:"split_package"`

	Socket transport.Options `toml:"socket"`
	// TLS, when set, wraps stream clients in TLS.
	TLS       *transport.TLSConfig `toml:"tls"`
	WebSocket WebSocketConfig      `toml:"websocket"`
}

// WebSocketConfig carries the upgrade request and framing options.
type WebSocketConfig struct {
	Path      string            `toml:"path"`
	Origin    string            `toml:"origin"`
	Protocols []string          `toml:"protocols"`
	Version   string            `toml:"version"`
	Headers   map[string]string `toml:"headers"`
	// Heartbeat sends a PING at this interval; zero disables it.
	Heartbeat time.Duration `toml:"heartbeat"`
	// MaxMessage bounds a reassembled inbound message; zero means unlimited.
	MaxMessage int `toml:"max_message"`
	// CloseTimeout bounds how long Close waits for the CLOSE frame to leave.
	CloseTimeout time.Duration `toml:"close_timeout"`
}

const (
	DefaultUDPSendBufferSize    = 1024
	DefaultUDPReceiveBufferSize = 1024
	DefaultCloseTimeout         = time.Second
)

// DefaultConfig returns the stream client defaults.
func DefaultConfig() Config {
	return Config{
		Host:                 session.DefaultHost,
		Port:                 session.DefaultService,
		Family:               api.FamilyV4,
		Timeout:              session.DefaultRetryDelay,
		MaxAttempts:          session.DefaultMaxAttempts,
		MaxSendBufferSize:    session.DefaultMaxSendChunk,
		MaxReceiveBufferSize: session.DefaultMaxReceiveBuffer,
		SplitPackage:         true,
		WebSocket: WebSocketConfig{
			Path:         "/",
			Version:      "13",
			CloseTimeout: DefaultCloseTimeout,
		},
	}
}

// DefaultUDPConfig returns the datagram client defaults.
func DefaultUDPConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxSendBufferSize = DefaultUDPSendBufferSize
	cfg.MaxReceiveBufferSize = DefaultUDPReceiveBufferSize
	return cfg
}

func (c Config) session() session.Config {
	return session.Config{
		Host:             c.Host,
		Service:          c.Port,
		Family:           c.Family,
		RetryDelay:       c.Timeout,
		MaxAttempts:      c.MaxAttempts,
		MaxSendChunk:     c.MaxSendBufferSize,
		MaxReceiveBuffer: c.MaxReceiveBufferSize,
		Split:            c.SplitPackage,
	}
}
