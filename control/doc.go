// Package control
// Author: momentics <momentics@gmail.com>
//
// Client profiles, runtime settings, metrics and debug probes.
//
// LoadConfig reads a TOML profile and overlays it on the client defaults.
// Controller implements api.Control on top of ConfigStore, MetricsRegistry
// and DebugProbes; a MetricsRegistry can be handed to client.WithMetrics so
// sessions publish their counters into it.
package control
