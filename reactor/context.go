// File: reactor/context.go
// Author: momentics <momentics@gmail.com>
//
// Serial completion context over a shared executor.

package reactor

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
)

// batchSize bounds how many handlers one drain task runs before yielding
// its worker back to the pool.
const batchSize = 64

// Context runs posted handlers one at a time, in post order.
type Context struct {
	exec api.Executor
	log  zerolog.Logger

	mu        sync.Mutex
	idle      *sync.Cond
	queue     []func()
	scheduled bool // a drain task is submitted or running
	stopped   bool
	handled   uint64
}

// New creates a context draining on exec.
func New(exec api.Executor, logger zerolog.Logger) *Context {
	c := &Context{exec: exec, log: logger}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Post queues fn. It returns false when the context is stopped or the
// executor refused the drain task; fn will then never run.
func (c *Context) Post(fn func()) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, fn)
	if c.scheduled {
		c.mu.Unlock()
		return true
	}
	c.scheduled = true
	c.mu.Unlock()

	if err := c.exec.Submit(c.drain); err != nil {
		c.log.Error().Err(err).Msg("reactor drain rejected")
		c.mu.Lock()
		c.scheduled = false
		c.queue = nil
		c.idle.Broadcast()
		c.mu.Unlock()
		return false
	}
	return true
}

// Stop discards queued handlers and rejects new posts until Restart.
// A handler already running finishes normally.
func (c *Context) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.queue = nil
	c.mu.Unlock()
}

// Restart makes a stopped context accept posts again.
func (c *Context) Restart() {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
}

// Stopped reports whether Stop was called without a following Restart.
func (c *Context) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Pending returns the number of queued handlers.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Handled returns how many handlers have run so far.
func (c *Context) Handled() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handled
}

// Wait blocks until no handler is queued or running.
func (c *Context) Wait() {
	c.mu.Lock()
	for c.scheduled {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

func (c *Context) drain() {
	for i := 0; i < batchSize; i++ {
		c.mu.Lock()
		if c.stopped || len(c.queue) == 0 {
			c.scheduled = false
			c.idle.Broadcast()
			c.mu.Unlock()
			return
		}
		fn := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.run(fn)
	}
	// yield: let other sessions use this worker
	if err := c.exec.Submit(c.drain); err != nil {
		c.log.Error().Err(err).Msg("reactor drain resubmit rejected")
		c.mu.Lock()
		c.scheduled = false
		c.queue = nil
		c.idle.Broadcast()
		c.mu.Unlock()
	}
}

func (c *Context) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("completion handler panicked")
		}
		c.mu.Lock()
		c.handled++
		c.mu.Unlock()
	}()
	fn()
}
