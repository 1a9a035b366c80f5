// Package api
// Author: momentics
//
// Executor contract for the shared worker pool.

package api

// Executor abstracts parallel task execution.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of worker routines.
	NumWorkers() int

	// Join blocks until every task submitted so far has finished.
	Join()
}
