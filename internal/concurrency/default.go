// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "sync"

var (
	defaultOnce  sync.Once
	defaultExec  *Executor
	defaultSched *Scheduler
)

func initDefault() {
	defaultExec = NewExecutor(0)
	defaultSched = NewScheduler(defaultExec)
}

// Default returns the process-wide executor, created on first use and sized
// to runtime.NumCPU(). It is never closed.
func Default() *Executor {
	defaultOnce.Do(initDefault)
	return defaultExec
}

// DefaultScheduler returns the scheduler bound to Default().
func DefaultScheduler() *Scheduler {
	defaultOnce.Do(initDefault)
	return defaultSched
}
