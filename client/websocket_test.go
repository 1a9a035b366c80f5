package client_test

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/client"
)

// wsServer echoes every message; the text "bye" makes it start the closing
// handshake with 1001.
func wsServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"echo"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, p, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && string(p) == "bye" {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				continue
			}
			if err := conn.WriteMessage(mt, p); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsConfig(t *testing.T, srv *httptest.Server) client.Config {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, srv.Listener.Addr())
	cfg.MaxAttempts = 0
	cfg.WebSocket.Path = "/ws"
	cfg.WebSocket.Protocols = []string{"echo"}
	cfg.WebSocket.Headers = map[string]string{"X-Token": "secret"}
	return cfg
}

func TestWebsocketEcho(t *testing.T) {
	srv := wsServer(t)
	cfg := wsConfig(t, srv)
	cfg.MaxSendBufferSize = 1000

	ev := &events{}
	c := client.NewWebsocketClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	pongs := make(chan string, 1)
	c.OnPongReceived(func(p []byte) { pongs <- string(p) })

	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, "echo", c.Subprotocol())

	require.True(t, c.Send("hello"))
	require.Eventually(t, func() bool { return ev.text() == "hello" }, waitFor, time.Millisecond)

	big := bytes.Repeat([]byte("abcdefghij"), 500)
	require.True(t, c.SendRaw(big))
	require.Eventually(t, func() bool { return len(ev.text()) == 5+len(big) }, waitFor, time.Millisecond)
	ev.get(func(e *events) {
		require.Len(t, e.messages, 2)
		assert.Equal(t, string(big), e.messages[1])
	})

	require.True(t, c.SendPing([]byte("hb")))
	select {
	case p := <-pongs:
		assert.Equal(t, "hb", p)
	case <-time.After(waitFor):
		t.Fatal("no pong")
	}

	c.Close()
	assert.Equal(t, 1, ev.closedCount())
	assert.False(t, c.IsConnected())
	assert.False(t, c.Send("late"))
}

func TestWebsocketServerInitiatedClose(t *testing.T) {
	srv := wsServer(t)
	ev := &events{}
	c := client.NewWebsocketClient(wsConfig(t, srv), testOptions(t)...)
	c.SetHandlers(ev.handlers())
	type notice struct {
		code   uint16
		reason string
	}
	notices := make(chan notice, 1)
	c.OnCloseNotify(func(code uint16, reason string) { notices <- notice{code, reason} })

	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)
	require.True(t, c.Send("bye"))

	select {
	case n := <-notices:
		assert.Equal(t, uint16(websocket.CloseGoingAway), n.code)
		assert.Equal(t, "bye", n.reason)
	case <-time.After(waitFor):
		t.Fatal("no close notification")
	}
	require.Eventually(t, func() bool { return ev.closedCount() == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, ev.errorCodes())
	assert.Equal(t, api.SessionClosed, c.State())
}

func TestWebsocketRejectedUpgradeIsConnectFailure(t *testing.T) {
	srv := wsServer(t)
	cfg := wsConfig(t, srv)
	cfg.WebSocket.Headers = nil

	ev := &events{}
	c := client.NewWebsocketClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return c.State() == api.SessionClosed }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return len(ev.errorCodes()) == 1 }, waitFor, time.Millisecond)
	assert.Zero(t, ev.connectedCount())
	assert.True(t, strings.Contains(c.ErrorMessage(), "upgrade"), c.ErrorMessage())
}

func TestWebsocketHeartbeat(t *testing.T) {
	srv := wsServer(t)
	cfg := wsConfig(t, srv)
	cfg.WebSocket.Heartbeat = 20 * time.Millisecond

	c := client.NewWebsocketClient(cfg, testOptions(t)...)
	pongs := make(chan struct{}, 16)
	c.OnPongReceived(func([]byte) {
		select {
		case pongs <- struct{}{}:
		default:
		}
	})
	require.True(t, c.Connect())
	for i := 0; i < 2; i++ {
		select {
		case <-pongs:
		case <-time.After(waitFor):
			t.Fatal("heartbeat produced no pong")
		}
	}
	c.Close()
}

func TestWebsocketCloseFromMessageCallback(t *testing.T) {
	srv := wsServer(t)
	cfg := wsConfig(t, srv)
	cfg.WebSocket.CloseTimeout = 200 * time.Millisecond

	ev := &events{}
	c := client.NewWebsocketClient(cfg, workerOptions(t, 1)...)
	c.SetHandlers(ev.handlers())
	returned := make(chan struct{})
	c.OnMessageReceived(func(api.Message) {
		c.Close()
		close(returned)
	})

	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)
	require.True(t, c.Send("hello"))

	select {
	case <-returned:
	case <-time.After(waitFor):
		t.Fatalf("Close inside the message callback did not return, state=%s", c.State())
	}
	assert.Equal(t, api.SessionClosed, c.State())
	assert.Equal(t, 1, ev.closedCount())
	assert.False(t, c.Send("late"))
}

func TestWebsocketProtocolErrorClosesConnection(t *testing.T) {
	type outcome struct {
		code     int
		hungUp   bool
		closeErr error
	}
	outcomes := make(chan outcome, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// FIN with RSV1 set and no extension negotiated
		if _, err := conn.NetConn().Write([]byte{0xC1, 0x00}); err != nil {
			return
		}
		var res outcome
		_, _, res.closeErr = conn.ReadMessage()
		if ce, ok := res.closeErr.(*websocket.CloseError); ok {
			res.code = ce.Code
		}
		// the server never closes on its own; only the client can end this read
		_ = conn.NetConn().SetReadDeadline(time.Now().Add(waitFor))
		_, err = conn.NetConn().Read(make([]byte, 16))
		res.hungUp = err != nil && !isTimeout(err)
		outcomes <- res
	}))
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, srv.Listener.Addr())
	cfg.MaxAttempts = 0
	cfg.WebSocket.CloseTimeout = 200 * time.Millisecond

	ev := &events{}
	c := client.NewWebsocketClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())

	select {
	case res := <-outcomes:
		assert.Equal(t, websocket.CloseProtocolError, res.code, "close error: %v", res.closeErr)
		assert.True(t, res.hungUp, "client left the connection open")
	case <-time.After(2 * waitFor):
		t.Fatal("server saw no close")
	}
	require.Eventually(t, func() bool { return c.State() == api.SessionClosed }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return ev.closedCount() == 1 }, waitFor, time.Millisecond)
	assert.Contains(t, ev.errorCodes(), api.ErrCodeProtocol)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
