// File: api/events.go
// Package api defines the session event contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventHandler receives session events. Completion events of one session
// are delivered one at a time from the session's reactor context; the events
// raised by Close run on the goroutine calling Close.
type EventHandler interface {
	OnConnected()
	OnMessageReceived(msg Message)
	// OnMessageSent reports one completed write: bytes written, or the write error.
	OnMessageSent(n int, err error)
	OnConnectionRetry(attempt int)
	OnError(code ErrorCode, err error)
	OnClose()
}

// NopHandler ignores every event. Embed it to implement a subset.
type NopHandler struct{}

func (NopHandler) OnConnected()              {}
func (NopHandler) OnMessageReceived(Message) {}
func (NopHandler) OnMessageSent(int, error)  {}
func (NopHandler) OnConnectionRetry(int)     {}
func (NopHandler) OnError(ErrorCode, error)  {}
func (NopHandler) OnClose()                  {}

var _ EventHandler = NopHandler{}
