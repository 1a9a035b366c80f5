// Package api
// Author: momentics
//
// Scheduler contract for timed continuations.

package api

import "time"

// Scheduler runs callbacks after a delay without parking a worker.
type Scheduler interface {
	// Schedule runs fn once delay has elapsed.
	Schedule(delay time.Duration, fn func()) (Cancelable, error)

	// Cancel cancels a previously scheduled callback.
	Cancel(c Cancelable) error
}
