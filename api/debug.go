// Package api
// Author: momentics
//
// Live debug support.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of registered probes.
	DumpState() map[string]any

	// RegisterProbe registers a named probe; a later call with the same name replaces it.
	RegisterProbe(name string, fn func() any)

	// UnregisterProbe removes a probe.
	UnregisterProbe(name string)
}
