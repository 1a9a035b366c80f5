// File: transport/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS client sockets. Certificate policy is whatever crypto/tls enforces
// for the built configuration; no pinning.

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
)

// TLSConfig describes the client side of a TLS session.
type TLSConfig struct {
	// ServerName overrides SNI and verification name; empty uses the dialed host.
	ServerName string `toml:"server_name"`
	// CAFile is a PEM bundle of roots; empty uses the system pool.
	CAFile string `toml:"ca_file"`
	// CertFile and KeyFile enable client authentication.
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	// Verify enables peer verification.
	Verify bool `toml:"verify"`
}

// Build turns c into a crypto/tls configuration for host.
func (c TLSConfig) Build(host string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: !c.Verify,
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "read ca file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates in %s", c.CAFile)
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" || c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load client key pair")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// TLSSocket is a TLS stream over TCP.
type TLSSocket struct {
	netConn
	opts Options
	cfg  *tls.Config
}

// NewTLS returns an unconnected TLS socket.
func NewTLS(opts Options, cfg *tls.Config) *TLSSocket {
	return &TLSSocket{opts: opts, cfg: cfg}
}

// TLSFactory returns a SocketFactory producing TLS sockets.
func TLSFactory(opts Options, cfg *tls.Config) api.SocketFactory {
	return func() api.Socket { return NewTLS(opts, cfg) }
}

// Connect dials ep and completes the TLS handshake.
func (s *TLSSocket) Connect(ctx context.Context, ep api.Endpoint) error {
	raw, err := s.opts.dialer(true).DialContext(ctx, ep.Family.Network("tcp"), ep.String())
	if err != nil {
		return errors.Wrapf(err, "connect %s", ep)
	}
	cfg := s.cfg
	if cfg == nil {
		cfg = &tls.Config{InsecureSkipVerify: true}
	}
	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return errors.Wrapf(err, "tls handshake %s", ep)
	}
	s.set(conn)
	return nil
}

// Shutdown sends close_notify and half-closes the stream.
func (s *TLSSocket) Shutdown() error {
	c, ok := s.get().(*tls.Conn)
	if !ok {
		return api.ErrSocketClosed
	}
	return errors.Wrap(c.CloseWrite(), "tls shutdown")
}

// ConnectionState exposes the negotiated TLS parameters.
func (s *TLSSocket) ConnectionState() (tls.ConnectionState, bool) {
	c, ok := s.get().(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return c.ConnectionState(), true
}

var _ api.Socket = (*TLSSocket)(nil)
