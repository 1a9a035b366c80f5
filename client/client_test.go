package client_test

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/lfq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/client"
	"github.com/momentics/hioload-net/internal/concurrency"
)

const waitFor = 5 * time.Second

// events collects callback activity of one client.
type events struct {
	mu        sync.Mutex
	connected int
	closed    int
	data      []byte
	messages  []string
	sent      int
	retries   []int
	codes     []api.ErrorCode
}

func (e *events) handlers() client.Handlers {
	return client.Handlers{
		Connected: func() { e.mu.Lock(); e.connected++; e.mu.Unlock() },
		MessageReceived: func(m api.Message) {
			e.mu.Lock()
			e.data = append(e.data, m.Data[:m.Size]...)
			e.messages = append(e.messages, string(m.Data[:m.Size]))
			e.mu.Unlock()
		},
		MessageSent: func(n int, _ error) { e.mu.Lock(); e.sent += n; e.mu.Unlock() },
		ConnectionRetry: func(a int) {
			e.mu.Lock()
			e.retries = append(e.retries, a)
			e.mu.Unlock()
		},
		Error: func(code api.ErrorCode, _ error) {
			e.mu.Lock()
			e.codes = append(e.codes, code)
			e.mu.Unlock()
		},
		Close: func() { e.mu.Lock(); e.closed++; e.mu.Unlock() },
	}
}

func (e *events) get(fn func(e *events)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

func (e *events) connectedCount() (n int) { e.get(func(e *events) { n = e.connected }); return }
func (e *events) closedCount() (n int)    { e.get(func(e *events) { n = e.closed }); return }
func (e *events) text() (s string)        { e.get(func(e *events) { s = string(e.data) }); return }
func (e *events) errorCodes() (c []api.ErrorCode) {
	e.get(func(e *events) { c = append(c, e.codes...) })
	return
}

// skipRace skips tests that move data through the outbound lfq.SPSC ring.
// The race detector cannot see its cross-variable memory ordering.
func skipRace(t *testing.T) {
	t.Helper()
	if lfq.RaceEnabled {
		t.Skip("skip: SPSC uses cross-variable memory ordering")
	}
}

func testOptions(t *testing.T) []client.Option {
	t.Helper()
	return workerOptions(t, 4)
}

func workerOptions(t *testing.T, workers int) []client.Option {
	t.Helper()
	skipRace(t)
	exec := concurrency.NewExecutor(workers)
	t.Cleanup(exec.Close)
	return []client.Option{
		client.WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
		client.WithExecutor(exec),
		client.WithScheduler(concurrency.NewScheduler(exec)),
	}
}

func hostPort(t *testing.T, addr net.Addr) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	return host, port
}

func tcpEchoServer(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				_, _ = io.Copy(c, c)
			}()
		}
	}()
	return ln
}

func TestTCPClientEcho(t *testing.T) {
	ln := tcpEchoServer(t)
	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, ln.Addr())
	cfg.MaxSendBufferSize = 100

	ev := &events{}
	c := client.NewTCPClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)
	assert.False(t, c.Connect())

	var want string
	for i := 0; i < 20; i++ {
		want += "message-" + strconv.Itoa(i) + ";"
	}
	require.True(t, c.Send(want))
	assert.False(t, c.Send(""))
	require.Eventually(t, func() bool { return ev.text() == want }, waitFor, time.Millisecond)

	c.Close()
	assert.Equal(t, 1, ev.closedCount())
	assert.False(t, c.IsConnected())
	assert.EqualValues(t, len(want), c.Stats()["bytes_out"])
}

func TestTCPClientSettersFailWhileActive(t *testing.T) {
	ln := tcpEchoServer(t)
	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, ln.Addr())

	ev := &events{}
	c := client.NewTCPClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)

	assert.ErrorIs(t, c.SetTimeout(time.Second), api.ErrSessionActive)
	assert.ErrorIs(t, c.SetMaxAttempts(1), api.ErrSessionActive)
	assert.ErrorIs(t, c.SetSplitPackage(false), api.ErrSessionActive)
	assert.Equal(t, cfg.Timeout, c.Config().Timeout)

	c.Close()
	require.NoError(t, c.SetTimeout(time.Second))
	assert.Equal(t, time.Second, c.Config().Timeout)
}

func TestTCPClientRefusedExhaustsAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port := hostPort(t, ln.Addr())
	require.NoError(t, ln.Close())

	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = "127.0.0.1", port
	cfg.Timeout = time.Second
	cfg.MaxAttempts = 2

	ev := &events{}
	c := client.NewTCPClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())

	var sawConnected atomic.Bool
	stop := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if c.IsConnected() {
				sawConnected.Store(true)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	start := time.Now()
	require.True(t, c.Connect())
	require.Eventually(t, func() bool {
		return c.State() == api.SessionClosed && len(ev.errorCodes()) == 3
	}, 2*waitFor, 5*time.Millisecond)
	elapsed := time.Since(start)
	close(stop)
	<-sampled

	assert.GreaterOrEqual(t, elapsed, time.Duration(cfg.MaxAttempts)*cfg.Timeout)
	assert.False(t, sawConnected.Load(), "is connected during retries")
	assert.False(t, c.IsConnected())
	ev.get(func(e *events) {
		assert.Equal(t, []int{1, 2}, e.retries)
		assert.Zero(t, e.connected)
		assert.Zero(t, e.closed)
	})
	assert.NotEqual(t, api.ErrCodeOK, c.ErrorCode())
}

func TestTCPClientEchoBeyondQueueDepthOnOneWorker(t *testing.T) {
	ln := tcpEchoServer(t)
	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, ln.Addr())

	var got atomic.Int64
	c := client.NewTCPClient(cfg, workerOptions(t, 1)...)
	c.OnMessageReceived(func(m api.Message) { got.Add(int64(m.Size)) })
	connectedCh := make(chan struct{})
	c.OnConnected(func() { close(connectedCh) })
	require.True(t, c.Connect())
	select {
	case <-connectedCh:
	case <-time.After(waitFor):
		t.Fatal("not connected")
	}

	// thousands of chunks, far more than the outbound ring holds
	payload := make([]byte, 8<<20)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.True(t, c.SendRaw(payload))
	require.Eventually(t, func() bool { return got.Load() == int64(len(payload)) }, 6*waitFor, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
	assert.Zero(t, c.Stats()["send_pending"])
	c.Close()
}

func TestUDPClientEcho(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteTo(buf[:n], from)
		}
	}()

	cfg := client.DefaultUDPConfig()
	cfg.Host, cfg.Port = hostPort(t, pc.LocalAddr())
	assert.Equal(t, client.DefaultUDPSendBufferSize, cfg.MaxSendBufferSize)

	ev := &events{}
	c := client.NewUDPClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)

	require.True(t, c.Send("ping"))
	require.Eventually(t, func() bool { return ev.text() == "ping" }, waitFor, time.Millisecond)
	require.True(t, c.SendRaw([]byte{1, 2, 3}))
	require.Eventually(t, func() bool { return len(ev.text()) == 7 }, waitFor, time.Millisecond)
	ev.get(func(e *events) { assert.Equal(t, []string{"ping", "\x01\x02\x03"}, e.messages) })

	c.Close()
	assert.Equal(t, 1, ev.closedCount())
}

func TestCallbackReassignedWhileConnected(t *testing.T) {
	ln := tcpEchoServer(t)
	cfg := client.DefaultConfig()
	cfg.Host, cfg.Port = hostPort(t, ln.Addr())

	ev := &events{}
	c := client.NewTCPClient(cfg, testOptions(t)...)
	c.SetHandlers(ev.handlers())
	require.True(t, c.Connect())
	require.Eventually(t, func() bool { return ev.connectedCount() == 1 }, waitFor, time.Millisecond)

	got := make(chan string, 1)
	c.OnMessageReceived(func(m api.Message) { got <- m.String() })
	require.True(t, c.Send("swap"))
	select {
	case s := <-got:
		assert.Equal(t, "swap", s)
	case <-time.After(waitFor):
		t.Fatal("no message on the new callback")
	}
	assert.Empty(t, ev.text())
	c.Close()
}
