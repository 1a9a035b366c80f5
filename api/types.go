// File: api/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared API-level type declarations, DTOs, and constants.

package api

import (
	"net/netip"
	"strconv"
	"strings"
)

// SessionState enumerates the lifecycle of a transport session.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionResolving
	SessionConnecting
	SessionConnected
	SessionClosing
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionResolving:
		return "resolving"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Active reports whether a connection attempt or connection is in progress.
func (s SessionState) Active() bool {
	switch s {
	case SessionResolving, SessionConnecting, SessionConnected, SessionClosing:
		return true
	}
	return false
}

// Family selects the IP protocol family used for resolution.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV6 {
		return "v6"
	}
	return "v4"
}

// MarshalText renders the family as "v4" or "v6".
func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts v4, v6, ipv4, ipv6, 4 and 6 in any case.
func (f *Family) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "v4", "ipv4", "4", "":
		*f = FamilyV4
	case "v6", "ipv6", "6":
		*f = FamilyV6
	default:
		return ErrInvalidArgument
	}
	return nil
}

// Network maps the family onto a Go network name for the given base ("tcp" or "udp").
func (f Family) Network(base string) string {
	if f == FamilyV6 {
		return base + "6"
	}
	return base + "4"
}

// IPNetwork returns the resolver network name ("ip4" or "ip6").
func (f Family) IPNetwork() string {
	return f.Network("ip")
}

// Endpoint is an immutable resolved address.
type Endpoint struct {
	Addr   netip.AddrPort
	Family Family
}

// String renders host:port, bracketing v6 literals.
func (e Endpoint) String() string {
	return e.Addr.String()
}

// Port returns the endpoint port as a decimal string.
func (e Endpoint) Port() string {
	return strconv.Itoa(int(e.Addr.Port()))
}

// Message is one inbound read completion. Data is owned by the receiver.
type Message struct {
	Size int
	Data []byte
}

// String returns the payload as text.
func (m Message) String() string {
	return string(m.Data[:m.Size])
}
