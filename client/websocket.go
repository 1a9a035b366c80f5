// File: client/websocket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RFC 6455 client over the stream session: the opening handshake runs as
// the session's upgrade step, frames ride on SendChunks, and inbound bytes
// are reassembled on the session's reactor.

package client

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/protocol"
	"github.com/momentics/hioload-net/transport"
)

// WebsocketClient is a WebSocket client, over TLS when Config.TLS is set.
type WebsocketClient struct {
	*base

	asm *protocol.Assembler // reactor only

	extMu         sync.RWMutex
	onPong        func(payload []byte)
	onCloseNotify func(code uint16, reason string)
	subprotocol   string

	closeSent  atomic.Bool
	closeRecv  atomic.Bool
	localClose atomic.Bool

	hbMu   sync.Mutex
	hbStop chan struct{}
}

// NewWebsocketClient builds an idle client. Connect starts it.
func NewWebsocketClient(cfg Config, opts ...Option) *WebsocketClient {
	c := &WebsocketClient{base: newBase("tcp", cfg, opts)}
	c.log = c.log.With().Str("client", "websocket").Logger()
	c.open(wsEvents{c}, c.upgrade)
	return c
}

// OnPongReceived sets the callback for PONG frames.
func (c *WebsocketClient) OnPongReceived(fn func(payload []byte)) {
	c.extMu.Lock()
	c.onPong = fn
	c.extMu.Unlock()
}

// OnCloseNotify sets the callback for a CLOSE frame from the server.
func (c *WebsocketClient) OnCloseNotify(fn func(code uint16, reason string)) {
	c.extMu.Lock()
	c.onCloseNotify = fn
	c.extMu.Unlock()
}

// Subprotocol returns the subprotocol the server selected, if any.
func (c *WebsocketClient) Subprotocol() string {
	c.extMu.RLock()
	defer c.extMu.RUnlock()
	return c.subprotocol
}

// Send queues text as one TEXT message.
func (c *WebsocketClient) Send(text string) bool {
	return c.sendMessage(protocol.OpcodeText, []byte(text))
}

// SendRaw queues p as one BINARY message.
func (c *WebsocketClient) SendRaw(p []byte) bool {
	return c.sendMessage(protocol.OpcodeBinary, p)
}

// SendPing queues a PING carrying up to 125 bytes.
func (c *WebsocketClient) SendPing(payload []byte) bool {
	return c.sendControl(protocol.OpcodePing, payload)
}

// Close sends CLOSE 1000, waits briefly for it to leave, then tears down.
func (c *WebsocketClient) Close() {
	c.CloseWith(protocol.CloseNormalClosure, "")
}

// CloseWith is Close with an explicit status code and reason. It may be
// called from any callback.
func (c *WebsocketClient) CloseWith(code uint16, reason string) {
	c.localClose.Store(true)
	if c.IsConnected() && !c.closeSent.Swap(true) {
		if c.sendControl(protocol.OpcodeClose, protocol.ClosePayload(code, reason)) {
			c.flushClose()
		}
	}
	c.stopHeartbeat()
	c.sess.Close()
}

// flushClose gives a queued CLOSE frame up to CloseTimeout to leave.
func (c *WebsocketClient) flushClose() {
	timeout := c.Config().WebSocket.CloseTimeout
	if timeout <= 0 {
		timeout = DefaultCloseTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.sess.Flush(ctx); err != nil {
		c.log.Debug().Err(err).Msg("close frame not flushed")
	}
}

func (c *WebsocketClient) sendMessage(opcode byte, p []byte) bool {
	if len(p) == 0 {
		return false
	}
	cfg := c.Config()
	maxPayload := 0
	if cfg.SplitPackage {
		maxPayload = cfg.MaxSendBufferSize
	}
	frames, err := protocol.EncodeMessage(opcode, p, maxPayload, true)
	if err != nil {
		c.log.Warn().Err(err).Msg("encode message")
		return false
	}
	return c.sess.SendChunks(frames)
}

func (c *WebsocketClient) sendControl(opcode byte, payload []byte) bool {
	frame, err := protocol.AppendFrame(nil, true, opcode, payload, true)
	if err != nil {
		c.log.Warn().Err(err).Msg("encode control frame")
		return false
	}
	return c.sess.SendChunks([][]byte{frame})
}

// upgrade performs the opening handshake on a freshly connected socket.
func (c *WebsocketClient) upgrade(sock api.Socket) (api.Socket, error) {
	cfg := c.Config()
	ws := cfg.WebSocket
	hs := protocol.Handshake{
		Host:      hostHeader(cfg),
		Path:      ws.Path,
		Origin:    ws.Origin,
		Protocols: ws.Protocols,
		Version:   ws.Version,
	}
	if len(ws.Headers) > 0 {
		hs.Header = make(http.Header, len(ws.Headers))
		for k, v := range ws.Headers {
			hs.Header.Set(k, v)
		}
	}
	key, err := protocol.NewChallengeKey()
	if err != nil {
		return nil, err
	}
	if _, err := sock.Write(hs.Request(key)); err != nil {
		return nil, errors.Wrap(err, "write upgrade request")
	}
	resp, leftover, err := hs.ReadResponse(sock, key)
	if err != nil {
		return nil, err
	}
	c.extMu.Lock()
	c.subprotocol = resp.Header.Get(protocol.HeaderSecWebSocketProto)
	c.extMu.Unlock()
	return transport.WithPrefix(sock, leftover), nil
}

func hostHeader(cfg Config) string {
	switch {
	case cfg.Port == "" || (cfg.Port == "80" && cfg.TLS == nil) || (cfg.Port == "443" && cfg.TLS != nil):
		if ip := net.ParseIP(cfg.Host); ip != nil && ip.To4() == nil {
			return "[" + cfg.Host + "]"
		}
		return cfg.Host
	}
	return net.JoinHostPort(cfg.Host, cfg.Port)
}

func (c *WebsocketClient) startHeartbeat() {
	every := c.Config().WebSocket.Heartbeat
	if every <= 0 {
		return
	}
	c.hbMu.Lock()
	defer c.hbMu.Unlock()
	if c.hbStop != nil {
		close(c.hbStop)
	}
	stop := make(chan struct{})
	c.hbStop = stop
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.SendPing(nil)
			case <-stop:
				return
			}
		}
	}()
}

func (c *WebsocketClient) stopHeartbeat() {
	c.hbMu.Lock()
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	c.hbMu.Unlock()
}

func (c *WebsocketClient) handle(ev protocol.Event) {
	switch ev.Opcode {
	case protocol.OpcodeText, protocol.OpcodeBinary:
		c.cb.OnMessageReceived(api.Message{Size: len(ev.Payload), Data: ev.Payload})
	case protocol.OpcodePing:
		c.sendControl(protocol.OpcodePong, ev.Payload)
	case protocol.OpcodePong:
		c.extMu.RLock()
		fn := c.onPong
		c.extMu.RUnlock()
		if fn != nil {
			fn(ev.Payload)
		}
	case protocol.OpcodeClose:
		code, reason, err := protocol.ParseClosePayload(ev.Payload)
		if err != nil {
			c.protocolError(err)
			return
		}
		if c.closeRecv.Swap(true) {
			return
		}
		c.extMu.RLock()
		fn := c.onCloseNotify
		c.extMu.RUnlock()
		if fn != nil {
			fn(code, reason)
		}
		if !c.closeSent.Swap(true) {
			echo := code
			if code == protocol.CloseNoStatusRcvd {
				echo = 0
			}
			c.sendControl(protocol.OpcodeClose, protocol.ClosePayload(echo, ""))
		}
	}
}

// protocolError fails the connection: CLOSE 1002 goes out, then the socket
// is closed without waiting for the server's reply.
func (c *WebsocketClient) protocolError(err error) {
	c.log.Warn().Err(err).Msg("websocket protocol error")
	c.asm.Reset()
	c.localClose.Store(true)
	sent := !c.closeSent.Swap(true) &&
		c.sendControl(protocol.OpcodeClose, protocol.ClosePayload(protocol.CloseProtocolError, ""))
	c.cb.OnError(api.ErrCodeProtocol, err)
	if sent {
		c.flushClose()
	}
	c.stopHeartbeat()
	c.sess.Close()
}

// wsEvents sits between the session and the user callbacks.
type wsEvents struct{ c *WebsocketClient }

func (w wsEvents) OnConnected() {
	c := w.c
	c.asm = protocol.NewAssembler(c.Config().WebSocket.MaxMessage)
	c.closeSent.Store(false)
	c.closeRecv.Store(false)
	c.localClose.Store(false)
	c.startHeartbeat()
	c.cb.OnConnected()
}

func (w wsEvents) OnMessageReceived(msg api.Message) {
	c := w.c
	events, err := c.asm.Feed(msg.Data[:msg.Size])
	for _, ev := range events {
		c.handle(ev)
		if c.localClose.Load() {
			return
		}
	}
	if err != nil {
		c.protocolError(err)
	}
}

func (w wsEvents) OnMessageSent(n int, err error) { w.c.cb.OnMessageSent(n, err) }

func (w wsEvents) OnConnectionRetry(attempt int) { w.c.cb.OnConnectionRetry(attempt) }

// OnError turns the end of the stream after a CLOSE exchange into a close.
// During a local Close the session raises OnClose itself.
func (w wsEvents) OnError(code api.ErrorCode, err error) {
	c := w.c
	if c.State() == api.SessionClosed {
		c.stopHeartbeat()
		if c.closeRecv.Load() && (code == api.ErrCodeEOF || code == api.ErrCodeClosed) {
			if !c.localClose.Load() {
				c.cb.OnClose()
			}
			return
		}
	}
	c.cb.OnError(code, err)
}

func (w wsEvents) OnClose() {
	w.c.stopHeartbeat()
	w.c.cb.OnClose()
}
