package resolver

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
)

func TestResolveLiteral(t *testing.T) {
	eps, err := NewNet("tcp").Resolve(context.Background(), "127.0.0.1", "8080", api.FamilyV4)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:8080"), eps[0].Addr)
	assert.Equal(t, "8080", eps[0].Port())
	assert.Equal(t, api.FamilyV4, eps[0].Family)
}

func TestResolveV6Literal(t *testing.T) {
	eps, err := NewNet("udp").Resolve(context.Background(), "::1", "53", api.FamilyV6)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "[::1]:53", eps[0].String())
}

func TestResolveFamilyMismatch(t *testing.T) {
	_, err := NewNet("tcp").Resolve(context.Background(), "127.0.0.1", "80", api.FamilyV6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrResolveEmpty))
	assert.Equal(t, api.ErrCodeResolve, api.CodeOf(err))
}

func TestResolveLocalhost(t *testing.T) {
	eps, err := NewNet("tcp").Resolve(context.Background(), "localhost", "3000", api.FamilyV4)
	require.NoError(t, err)
	require.NotEmpty(t, eps)
	for _, ep := range eps {
		assert.True(t, ep.Addr.Addr().Is4())
		assert.EqualValues(t, 3000, ep.Addr.Port())
	}
}

func TestResolveBadService(t *testing.T) {
	_, err := NewNet("tcp").Resolve(context.Background(), "127.0.0.1", "no-such-service-xyz", api.FamilyV4)
	require.Error(t, err)
}

func TestResolveAsyncCallsBackOnce(t *testing.T) {
	calls := make(chan error, 2)
	ResolveAsync(context.Background(), NewNet("tcp"), "127.0.0.1", "1", api.FamilyV4, func(eps []api.Endpoint, err error) {
		calls <- err
	})
	select {
	case err := <-calls:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no callback")
	}
	select {
	case <-calls:
		t.Fatal("callback invoked twice")
	case <-time.After(50 * time.Millisecond):
	}
}
