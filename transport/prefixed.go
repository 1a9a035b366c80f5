// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"sync"

	"github.com/momentics/hioload-net/api"
)

// Prefixed replays bytes that were read ahead of the socket (for example
// past an HTTP upgrade response) before reading from it again.
type Prefixed struct {
	api.Socket
	mu     sync.Mutex
	prefix []byte
}

// WithPrefix wraps s so that the next reads return prefix first.
func WithPrefix(s api.Socket, prefix []byte) api.Socket {
	if len(prefix) == 0 {
		return s
	}
	return &Prefixed{Socket: s, prefix: append([]byte(nil), prefix...)}
}

// Read drains the prefix before touching the socket.
func (p *Prefixed) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	return p.Socket.Read(b)
}
