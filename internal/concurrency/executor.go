// File: internal/concurrency/executor.go
// Package concurrency implements the shared worker pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor runs submitted tasks on a fixed set of worker goroutines. Pending
// tasks wait in an unbounded FIFO backlog; workers sleep on a condition
// variable instead of polling.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	mu      sync.Mutex
	cond    *sync.Cond // signalled on new work and on close
	idle    *sync.Cond // signalled when outstanding drops to zero
	backlog *queue.Queue
	closed  bool

	numWorkers  int
	outstanding int // queued + running
	workersWG   sync.WaitGroup
	log         zerolog.Logger

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor creates an Executor with numWorkers goroutines.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		backlog:    queue.New(),
		numWorkers: numWorkers,
		log:        log.With().Str("component", "executor").Logger(),
	}
	e.cond = sync.NewCond(&e.mu)
	e.idle = sync.NewCond(&e.mu)
	e.workersWG.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.worker(i)
	}
	return e
}

// Submit enqueues a task, returning ErrExecutorClosed once Close was called.
func (e *Executor) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.backlog.Add(TaskFunc(task))
	e.outstanding++
	e.mu.Unlock()
	e.totalTasks.Add(1)
	e.cond.Signal()
	return nil
}

// NumWorkers returns the number of worker goroutines.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Join blocks until every submitted task, including tasks submitted by
// running tasks, has finished.
func (e *Executor) Join() {
	e.mu.Lock()
	for e.outstanding > 0 {
		e.idle.Wait()
	}
	e.mu.Unlock()
}

// Close stops accepting tasks, lets workers drain the backlog and waits for them to exit.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.cond.Broadcast()
	e.workersWG.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	e.mu.Lock()
	pending := int64(e.backlog.Length())
	e.mu.Unlock()
	return map[string]int64{
		"total_tasks":     e.totalTasks.Load(),
		"completed_tasks": e.completedTasks.Load(),
		"pending_tasks":   pending,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) worker(id int) {
	defer e.workersWG.Done()
	for {
		e.mu.Lock()
		for e.backlog.Length() == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.backlog.Length() == 0 {
			e.mu.Unlock()
			return
		}
		task := e.backlog.Remove().(TaskFunc)
		e.mu.Unlock()

		e.executeTask(id, task)

		e.mu.Lock()
		e.outstanding--
		if e.outstanding == 0 {
			e.idle.Broadcast()
		}
		e.mu.Unlock()
	}
}

// executeTask runs the task, recovering from panics to keep the worker alive.
func (e *Executor) executeTask(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
		e.completedTasks.Add(1)
	}()
	task()
}
