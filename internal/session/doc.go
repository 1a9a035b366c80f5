// Package session implements the transport session state machine shared by
// every client: resolve, connect with bounded retry, a single outstanding
// read, pipelined writes and best-effort close.
//
// All completion handlers of a session run on its reactor context, one at a
// time, on whichever pool worker drains the context. Blocking socket calls
// run on dedicated goroutines and post their completions back. No lock is
// held across a socket call.
package session
