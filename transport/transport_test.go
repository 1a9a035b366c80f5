package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
)

func endpointOf(t *testing.T, addr net.Addr) api.Endpoint {
	t.Helper()
	ap, err := netip.ParseAddrPort(addr.String())
	require.NoError(t, err)
	return api.Endpoint{Addr: ap, Family: api.FamilyV4}
}

func TestTCPRoundTripAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		b, _ := io.ReadAll(c)
		got <- string(b)
	}()

	s := NewTCP(Options{NoDelay: true, RecvBufferBytes: 64 * 1024})
	assert.False(t, s.IsOpen())
	require.NoError(t, s.Connect(context.Background(), endpointOf(t, ln.Addr())))
	assert.True(t, s.IsOpen())

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	if runtime.GOOS == "linux" {
		size, err := s.RecvBufferSize()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, size, 64*1024)
	}

	require.NoError(t, s.Shutdown())
	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(2 * time.Second):
		t.Fatal("peer did not observe shutdown")
	}
	require.NoError(t, s.Close())
	assert.False(t, s.IsOpen())
	assert.ErrorIs(t, s.Close(), api.ErrSocketClosed)
}

func TestCloseUnblocksRead(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			time.Sleep(time.Second)
			c.Close()
		}
	}()

	s := NewTCP(Options{})
	require.NoError(t, s.Connect(context.Background(), endpointOf(t, ln.Addr())))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Read(make([]byte, 16))
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("read not interrupted by close")
	}
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	ep := endpointOf(t, ln.Addr())
	ln.Close()

	s := NewTCP(Options{DialTimeout: time.Second})
	err = s.Connect(context.Background(), ep)
	require.Error(t, err)
	assert.False(t, s.IsOpen())
	assert.Greater(t, int(api.CodeOf(err)), 0, "refused connect carries errno")
}

func TestUDPAcceptsOnlyDefaultPeer(t *testing.T) {
	peer, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer peer.Close()
	stranger, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer stranger.Close()

	s := NewUDP(Options{})
	require.NoError(t, s.Connect(context.Background(), endpointOf(t, peer.LocalAddr())))
	defer s.Close()
	require.NoError(t, s.Shutdown())

	_, err = s.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 64)
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, from, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	_, err = stranger.WriteToUDP([]byte("spoof"), from)
	require.NoError(t, err)
	_, err = peer.WriteToUDP([]byte("pong"), from)
	require.NoError(t, err)

	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestTLSSocket(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "secure")
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "https://")
	ap, err := netip.ParseAddrPort(addr)
	require.NoError(t, err)

	cfg, err := TLSConfig{Verify: false}.Build("127.0.0.1")
	require.NoError(t, err)
	s := NewTLS(Options{}, cfg)
	require.NoError(t, s.Connect(context.Background(), api.Endpoint{Addr: ap}))
	defer s.Close()

	_, ok := s.ConnectionState()
	assert.True(t, ok)

	_, err = s.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	b, _ := io.ReadAll(readerFunc(s.Read))
	assert.Contains(t, string(b), "secure")
}

func TestTLSVerifyRejectsUnknownCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	ap, err := netip.ParseAddrPort(strings.TrimPrefix(srv.URL, "https://"))
	require.NoError(t, err)

	cfg, err := TLSConfig{Verify: true}.Build("127.0.0.1")
	require.NoError(t, err)
	err = NewTLS(Options{}, cfg).Connect(context.Background(), api.Endpoint{Addr: ap})
	assert.Error(t, err)
}

func TestTLSConfigMissingFiles(t *testing.T) {
	_, err := TLSConfig{CAFile: "/nonexistent/ca.pem"}.Build("h")
	assert.Error(t, err)
	_, err = TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}.Build("h")
	assert.Error(t, err)
}

func TestPrefixedReplaysBytes(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	inner := &TCPSocket{}
	inner.set(a)
	s := WithPrefix(inner, []byte("head"))

	buf := make([]byte, 3)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hea", string(buf[:n]))
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "d", string(buf[:n]))

	go func() { _, _ = b.Write([]byte("tail")) }()
	buf = make([]byte, 8)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(buf[:n]))

	assert.Same(t, inner, WithPrefix(inner, nil))
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
