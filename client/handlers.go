// File: client/handlers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"sync"

	"github.com/momentics/hioload-net/api"
)

// Handlers holds one optional callback per event slot.
type Handlers struct {
	Connected       func()
	MessageReceived func(msg api.Message)
	MessageSent     func(n int, err error)
	ConnectionRetry func(attempt int)
	Error           func(code api.ErrorCode, err error)
	Close           func()
}

// dispatcher adapts Handlers to api.EventHandler. Slots may be reassigned
// at any time; the latest assignment wins.
type dispatcher struct {
	mu sync.RWMutex
	h  Handlers
}

func (d *dispatcher) set(fn func(h *Handlers)) {
	d.mu.Lock()
	fn(&d.h)
	d.mu.Unlock()
}

func (d *dispatcher) get() Handlers {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.h
}

func (d *dispatcher) OnConnected() {
	if fn := d.get().Connected; fn != nil {
		fn()
	}
}

func (d *dispatcher) OnMessageReceived(msg api.Message) {
	if fn := d.get().MessageReceived; fn != nil {
		fn(msg)
	}
}

func (d *dispatcher) OnMessageSent(n int, err error) {
	if fn := d.get().MessageSent; fn != nil {
		fn(n, err)
	}
}

func (d *dispatcher) OnConnectionRetry(attempt int) {
	if fn := d.get().ConnectionRetry; fn != nil {
		fn(attempt)
	}
}

func (d *dispatcher) OnError(code api.ErrorCode, err error) {
	if fn := d.get().Error; fn != nil {
		fn(code, err)
	}
}

func (d *dispatcher) OnClose() {
	if fn := d.get().Close; fn != nil {
		fn()
	}
}

var _ api.EventHandler = (*dispatcher)(nil)
