// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timer scheduler. Fired callbacks are submitted to an executor so no
// goroutine sleeps for the duration of the delay.

package concurrency

import (
	"sync"
	"time"

	"github.com/momentics/hioload-net/api"
)

// Scheduler implements api.Scheduler on top of runtime timers.
type Scheduler struct {
	exec api.Executor
}

// NewScheduler returns a scheduler running callbacks on exec.
func NewScheduler(exec api.Executor) *Scheduler {
	return &Scheduler{exec: exec}
}

// timerHandle is the Cancelable returned by Schedule.
type timerHandle struct {
	once  sync.Once
	timer *time.Timer
	done  chan struct{}
	mu    sync.Mutex
	err   error
}

func (h *timerHandle) finish(err error) bool {
	fired := false
	h.once.Do(func() {
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.done)
		fired = true
	})
	return fired
}

// Cancel stops the timer. Canceling a fired timer is a no-op.
func (h *timerHandle) Cancel() error {
	h.timer.Stop()
	h.finish(ErrTimerStopped)
	return nil
}

func (h *timerHandle) Done() <-chan struct{} { return h.done }

func (h *timerHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Schedule runs fn on the executor once delay has elapsed, unless canceled first.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) (api.Cancelable, error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	h := &timerHandle{done: make(chan struct{})}
	h.timer = time.AfterFunc(delay, func() {
		if !h.finish(nil) {
			return
		}
		if err := s.exec.Submit(fn); err != nil {
			h.mu.Lock()
			h.err = err
			h.mu.Unlock()
		}
	})
	return h, nil
}

// Cancel cancels a handle returned by Schedule.
func (s *Scheduler) Cancel(c api.Cancelable) error {
	if c == nil {
		return nil
	}
	return c.Cancel()
}

var _ api.Scheduler = (*Scheduler)(nil)
