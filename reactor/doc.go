// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the per-session completion context: a serial
// queue of completion handlers executed on a shared executor, one handler at
// a time, possibly on a different worker each time. Blocking socket calls
// never run inside it; they run on their own goroutines and post their
// completion here.
package reactor
