// File: client/http.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/protocol"
)

// ErrRequestInFlight is returned while the previous request is unfinished.
var ErrRequestInFlight = errors.New("client: request in flight")

// HTTPClient issues one HTTP/1.x request per connection, over TLS when
// Config.TLS is set. Responses are framed by Content-Length or by the
// server closing the connection.
type HTTPClient struct {
	*base

	mu      sync.Mutex
	pending *exchange
}

type exchange struct {
	req    *protocol.Request
	parser *protocol.ResponseParser
	done   func(*protocol.Response, error)
	once   sync.Once
}

// NewHTTPClient builds an idle client.
func NewHTTPClient(cfg Config, opts ...Option) *HTTPClient {
	c := &HTTPClient{base: newBase("tcp", cfg, opts)}
	c.log = c.log.With().Str("client", "http").Logger()
	c.open(httpEvents{c}, nil)
	return c
}

// Do connects, writes req and calls done exactly once with the response or
// the failure. It returns false when req cannot be started.
func (c *HTTPClient) Do(req *protocol.Request, done func(*protocol.Response, error)) bool {
	if req == nil || done == nil {
		return false
	}
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return false
	}
	ex := &exchange{req: req, parser: protocol.NewResponseParser(), done: done}
	c.pending = ex
	c.mu.Unlock()

	if !c.Connect() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		return false
	}
	return true
}

// RoundTrip is the blocking form of Do. Cancelling ctx closes the
// connection.
func (c *HTTPClient) RoundTrip(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	type result struct {
		resp *protocol.Response
		err  error
	}
	ch := make(chan result, 1)
	if !c.Do(req, func(r *protocol.Response, err error) { ch <- result{r, err} }) {
		return nil, ErrRequestInFlight
	}
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		c.closeWith(nil, ctx.Err())
		return nil, ctx.Err()
	}
}

func (c *HTTPClient) current() *exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *HTTPClient) take() *exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	ex := c.pending
	c.pending = nil
	return ex
}

func (c *HTTPClient) finish(resp *protocol.Response, err error) {
	c.take().complete(resp, err)
}

// closeWith tears the connection down before reporting, so done may start
// the next request.
func (c *HTTPClient) closeWith(resp *protocol.Response, err error) {
	ex := c.take()
	c.sess.Close()
	ex.complete(resp, err)
}

func (ex *exchange) complete(resp *protocol.Response, err error) {
	if ex == nil {
		return
	}
	ex.once.Do(func() { ex.done(resp, err) })
}

// port is the numeric port for the Host header.
func (c *HTTPClient) port(cfg Config) uint16 {
	p, err := net.LookupPort("tcp", cfg.Port)
	if err == nil {
		return uint16(p)
	}
	if cfg.TLS != nil {
		return 443
	}
	return 80
}

type httpEvents struct{ c *HTTPClient }

func (h httpEvents) OnConnected() {
	c := h.c
	c.cb.OnConnected()
	ex := c.current()
	if ex == nil {
		return
	}
	cfg := c.Config()
	if !c.sess.Send(ex.req.Encode(cfg.Host, c.port(cfg))) {
		c.closeWith(nil, api.ErrNotConnected)
	}
}

func (h httpEvents) OnMessageReceived(msg api.Message) {
	c := h.c
	c.cb.OnMessageReceived(msg)
	ex := c.current()
	if ex == nil {
		return
	}
	resp, err := ex.parser.Feed(msg.Data[:msg.Size])
	if resp == nil && err == nil {
		return
	}
	if err != nil {
		c.cb.OnError(api.ErrCodeProtocol, err)
	}
	c.closeWith(resp, err)
}

func (h httpEvents) OnMessageSent(n int, err error) {
	c := h.c
	c.cb.OnMessageSent(n, err)
	if err != nil {
		c.closeWith(nil, errors.Wrap(err, "write request"))
	}
}

func (h httpEvents) OnConnectionRetry(attempt int) { h.c.cb.OnConnectionRetry(attempt) }

// OnError finishes the exchange once the session has given up. A server
// closing the stream ends a response that has no Content-Length.
func (h httpEvents) OnError(code api.ErrorCode, err error) {
	c := h.c
	if c.State() != api.SessionClosed {
		c.cb.OnError(code, err)
		return
	}
	ex := c.current()
	if ex != nil && code == api.ErrCodeEOF {
		resp, ferr := ex.parser.Finish()
		c.finish(resp, ferr)
		if ferr == nil {
			c.cb.OnClose()
			return
		}
	} else {
		c.finish(nil, err)
	}
	c.cb.OnError(code, err)
}

func (h httpEvents) OnClose() {
	h.c.finish(nil, api.ErrSocketClosed)
	h.c.cb.OnClose()
}
