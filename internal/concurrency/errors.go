// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrExecutorClosed indicates the executor has been shut down
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrNilTask rejects a nil task
	ErrNilTask = errors.New("nil task")

	// ErrTimerStopped indicates the timer was canceled before it fired
	ErrTimerStopped = errors.New("timer canceled")
)
