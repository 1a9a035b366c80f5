// File: control/profile.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TOML client profiles overlaid onto the programmatic defaults.

package control

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/client"
	"github.com/momentics/hioload-net/internal/logging"
	"github.com/momentics/hioload-net/transport"
)

// Client kinds a profile can select.
const (
	KindTCP       = "tcp"
	KindUDP       = "udp"
	KindWebSocket = "ws"
	KindHTTP      = "http"
)

// Profile is a loaded client profile.
type Profile struct {
	Kind    string
	Client  client.Config
	Log     logging.Options
	Request RequestProfile
}

// RequestProfile is the request an http profile issues.
type RequestProfile struct {
	Method string
	Path   string
	Header map[string]string
	Body   string
}

// DefaultProfile is a TCP profile with client.DefaultConfig.
func DefaultProfile() Profile {
	return Profile{
		Kind:    KindTCP,
		Client:  client.DefaultConfig(),
		Request: RequestProfile{Method: "GET", Path: "/"},
	}
}

type fileConfig struct {
	Kind    string      `toml:"kind"`
	Log     fileLog     `toml:"log"`
	Client  fileClient  `toml:"client"`
	Request fileRequest `toml:"request"`
}

type fileLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type fileClient struct {
	Host                 string        `toml:"host"`
	Port                 string        `toml:"port"`
	Family               string        `toml:"family"`
	Timeout              string        `toml:"timeout"`
	MaxAttempts          int           `toml:"max_attempts"`
	MaxSendBufferSize    int           `toml:"max_send_buffer_size"`
	MaxReceiveBufferSize int           `toml:"max_receive_buffer_size"`
	SplitPackage         bool          `toml:"split_package"`
	Socket               fileSocket    `toml:"socket"`
	TLS                  fileTLS       `toml:"tls"`
	WebSocket            fileWebSocket `toml:"websocket"`
}

type fileSocket struct {
	DialTimeout     string `toml:"dial_timeout"`
	RecvBufferBytes int    `toml:"recv_buffer_bytes"`
	SendBufferBytes int    `toml:"send_buffer_bytes"`
	NoDelay         bool   `toml:"no_delay"`
}

type fileTLS struct {
	ServerName string `toml:"server_name"`
	CAFile     string `toml:"ca_file"`
	CertFile   string `toml:"cert_file"`
	KeyFile    string `toml:"key_file"`
	Verify     bool   `toml:"verify"`
}

type fileWebSocket struct {
	Path         string            `toml:"path"`
	Origin       string            `toml:"origin"`
	Protocols    []string          `toml:"protocols"`
	Version      string            `toml:"version"`
	Headers      map[string]string `toml:"headers"`
	Heartbeat    string            `toml:"heartbeat"`
	MaxMessage   int               `toml:"max_message"`
	CloseTimeout string            `toml:"close_timeout"`
}

type fileRequest struct {
	Method string            `toml:"method"`
	Path   string            `toml:"path"`
	Header map[string]string `toml:"header"`
	Body   string            `toml:"body"`
}

// LoadConfig reads a TOML profile. Only keys present in the file replace
// defaults; a udp profile starts from client.DefaultUDPConfig.
func LoadConfig(path string) (Profile, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Profile{}, errors.Wrap(err, "load client profile")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Profile{}, errors.Errorf("load client profile: unknown keys %s", strings.Join(keys, ", "))
	}
	p, err := overlay(DefaultProfile(), raw, meta)
	if err != nil {
		return Profile{}, errors.Wrap(err, "load client profile")
	}
	return p, nil
}

func overlay(p Profile, raw fileConfig, meta toml.MetaData) (Profile, error) {
	if meta.IsDefined("kind") {
		p.Kind = strings.ToLower(strings.TrimSpace(raw.Kind))
	}
	switch p.Kind {
	case KindTCP, KindWebSocket, KindHTTP:
	case KindUDP:
		p.Client = client.DefaultUDPConfig()
	default:
		return p, errors.Errorf("unsupported kind %q", p.Kind)
	}

	if meta.IsDefined("log", "level") {
		p.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		p.Log.Format = strings.TrimSpace(raw.Log.Format)
	}

	c := &p.Client
	rc := raw.Client
	def := func(keys ...string) bool { return meta.IsDefined(append([]string{"client"}, keys...)...) }
	if def("host") {
		c.Host = strings.TrimSpace(rc.Host)
	}
	if def("port") {
		c.Port = strings.TrimSpace(rc.Port)
	}
	if def("family") {
		if err := c.Family.UnmarshalText([]byte(rc.Family)); err != nil {
			return p, errors.Wrapf(err, "family %q", rc.Family)
		}
	}
	if def("timeout") {
		if err := parseDuration(&c.Timeout, "client.timeout", rc.Timeout); err != nil {
			return p, err
		}
	}
	if def("max_attempts") {
		c.MaxAttempts = rc.MaxAttempts
	}
	if def("max_send_buffer_size") {
		c.MaxSendBufferSize = rc.MaxSendBufferSize
	}
	if def("max_receive_buffer_size") {
		c.MaxReceiveBufferSize = rc.MaxReceiveBufferSize
	}
	if def("split_package") {
		c.SplitPackage = rc.SplitPackage
	}

	if def("socket", "dial_timeout") {
		if err := parseDuration(&c.Socket.DialTimeout, "client.socket.dial_timeout", rc.Socket.DialTimeout); err != nil {
			return p, err
		}
	}
	if def("socket", "recv_buffer_bytes") {
		c.Socket.RecvBufferBytes = rc.Socket.RecvBufferBytes
	}
	if def("socket", "send_buffer_bytes") {
		c.Socket.SendBufferBytes = rc.Socket.SendBufferBytes
	}
	if def("socket", "no_delay") {
		c.Socket.NoDelay = rc.Socket.NoDelay
	}

	if def("tls") {
		c.TLS = &transport.TLSConfig{
			ServerName: strings.TrimSpace(rc.TLS.ServerName),
			CAFile:     strings.TrimSpace(rc.TLS.CAFile),
			CertFile:   strings.TrimSpace(rc.TLS.CertFile),
			KeyFile:    strings.TrimSpace(rc.TLS.KeyFile),
			Verify:     rc.TLS.Verify,
		}
	}

	ws := &c.WebSocket
	rw := rc.WebSocket
	if def("websocket", "path") {
		ws.Path = strings.TrimSpace(rw.Path)
	}
	if def("websocket", "origin") {
		ws.Origin = strings.TrimSpace(rw.Origin)
	}
	if def("websocket", "protocols") {
		ws.Protocols = rw.Protocols
	}
	if def("websocket", "version") {
		ws.Version = strings.TrimSpace(rw.Version)
	}
	if def("websocket", "headers") {
		ws.Headers = rw.Headers
	}
	if def("websocket", "heartbeat") {
		if err := parseDuration(&ws.Heartbeat, "client.websocket.heartbeat", rw.Heartbeat); err != nil {
			return p, err
		}
	}
	if def("websocket", "max_message") {
		ws.MaxMessage = rw.MaxMessage
	}
	if def("websocket", "close_timeout") {
		if err := parseDuration(&ws.CloseTimeout, "client.websocket.close_timeout", rw.CloseTimeout); err != nil {
			return p, err
		}
	}

	if meta.IsDefined("request", "method") {
		p.Request.Method = strings.ToUpper(strings.TrimSpace(raw.Request.Method))
	}
	if meta.IsDefined("request", "path") {
		p.Request.Path = strings.TrimSpace(raw.Request.Path)
	}
	if meta.IsDefined("request", "header") {
		p.Request.Header = raw.Request.Header
	}
	if meta.IsDefined("request", "body") {
		p.Request.Body = raw.Request.Body
	}

	if c.Host == "" {
		return p, errors.Wrap(api.ErrInvalidArgument, "client.host is empty")
	}
	return p, nil
}

func parseDuration(dst *time.Duration, key, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	if d < 0 {
		return errors.Errorf("%s: negative duration %s", key, d)
	}
	*dst = d
	return nil
}

// Settings flattens p into dotted keys for a ConfigStore.
func (p Profile) Settings() map[string]any {
	c := p.Client
	out := map[string]any{
		"kind":                           p.Kind,
		"client.host":                    c.Host,
		"client.port":                    c.Port,
		"client.family":                  c.Family.String(),
		"client.timeout":                 c.Timeout.String(),
		"client.max_attempts":            c.MaxAttempts,
		"client.max_send_buffer_size":    c.MaxSendBufferSize,
		"client.max_receive_buffer_size": c.MaxReceiveBufferSize,
		"client.split_package":           c.SplitPackage,
		"client.tls":                     c.TLS != nil,
	}
	if p.Kind == KindWebSocket {
		out["client.websocket.path"] = c.WebSocket.Path
		out["client.websocket.heartbeat"] = c.WebSocket.Heartbeat.String()
	}
	if p.Kind == KindHTTP {
		out["request.method"] = p.Request.Method
		out["request.path"] = p.Request.Path
	}
	return out
}
