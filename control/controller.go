// File: control/controller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"github.com/momentics/hioload-net/api"
)

// Client is what the controller observes of a running client.
type Client interface {
	api.StatsSource
	State() api.SessionState
	ErrorMessage() string
	PublishStats()
}

// Controller bundles settings, metrics and probes behind api.Control.
type Controller struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Probes  *DebugProbes
}

// NewController seeds the settings store from p and registers the runtime
// probes.
func NewController(p Profile) *Controller {
	c := &Controller{
		Config:  NewConfigStore(p.Settings()),
		Metrics: NewMetricsRegistry(),
		Probes:  NewDebugProbes(),
	}
	RegisterRuntimeProbes(c.Probes)
	return c
}

// Watch registers probes for a client under name.
func (c *Controller) Watch(name string, cl Client) {
	c.Probes.RegisterProbe(name+".state", func() any { return cl.State().String() })
	c.Probes.RegisterProbe(name+".last_error", func() any { return cl.ErrorMessage() })
	c.Probes.RegisterProbe(name+".stats", func() any { return cl.Stats() })
}

// Unwatch drops the probes registered by Watch.
func (c *Controller) Unwatch(name string) {
	for _, k := range []string{".state", ".last_error", ".stats"} {
		c.Probes.UnregisterProbe(name + k)
	}
}

func (c *Controller) GetConfig() map[string]any { return c.Config.GetSnapshot() }

func (c *Controller) SetConfig(cfg map[string]any) error { return c.Config.SetConfig(cfg) }

func (c *Controller) Stats() map[string]any { return c.Metrics.GetSnapshot() }

func (c *Controller) OnReload(fn func()) { c.Config.OnReload(fn) }

func (c *Controller) RegisterDebugProbe(name string, fn func() any) {
	c.Probes.RegisterProbe(name, fn)
}

// DumpState evaluates every probe.
func (c *Controller) DumpState() map[string]any { return c.Probes.DumpState() }

var _ api.Control = (*Controller)(nil)
