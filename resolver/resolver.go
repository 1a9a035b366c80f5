// File: resolver/resolver.go
// Package resolver translates host/service pairs into candidate endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resolver

import (
	"context"
	"net"
	"net/netip"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-net/api"
)

// Resolver maps (host, service, family) to endpoints.
type Resolver interface {
	Resolve(ctx context.Context, host, service string, family api.Family) ([]api.Endpoint, error)
}

// Callback receives the single outcome of an asynchronous resolve.
type Callback func(endpoints []api.Endpoint, err error)

// ResolveAsync runs r on its own goroutine and invokes cb exactly once.
func ResolveAsync(ctx context.Context, r Resolver, host, service string, family api.Family, cb Callback) {
	go func() {
		eps, err := r.Resolve(ctx, host, service, family)
		cb(eps, err)
	}()
}

// Net resolves through the platform resolver.
type Net struct {
	// R overrides the resolver; nil uses net.DefaultResolver.
	R *net.Resolver
	// Transport is "tcp" or "udp"; it picks the service port namespace.
	Transport string
}

// NewNet returns a platform resolver for the given transport.
func NewNet(transport string) *Net {
	return &Net{Transport: transport}
}

func (n *Net) resolver() *net.Resolver {
	if n.R != nil {
		return n.R
	}
	return net.DefaultResolver
}

// Resolve returns every address of the requested family, in resolver order.
func (n *Net) Resolve(ctx context.Context, host, service string, family api.Family) ([]api.Endpoint, error) {
	transport := n.Transport
	if transport == "" {
		transport = "tcp"
	}
	port, err := n.resolver().LookupPort(ctx, transport, service)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve service %q", service)
	}

	var addrs []netip.Addr
	if ip, perr := netip.ParseAddr(host); perr == nil {
		addrs = []netip.Addr{ip}
	} else {
		addrs, err = n.resolver().LookupNetIP(ctx, family.IPNetwork(), host)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve host %q", host)
		}
	}

	eps := make([]api.Endpoint, 0, len(addrs))
	for _, a := range addrs {
		a = a.Unmap()
		if (family == api.FamilyV4) != a.Is4() {
			continue
		}
		eps = append(eps, api.Endpoint{
			Addr:   netip.AddrPortFrom(a, uint16(port)),
			Family: family,
		})
	}
	if len(eps) == 0 {
		return nil, errors.Wrapf(api.ErrResolveEmpty, "resolve %s:%s (%s)", host, service, family)
	}
	return eps, nil
}

var _ Resolver = (*Net)(nil)
