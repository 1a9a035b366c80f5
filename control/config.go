// File: control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime settings store with snapshots and reload listeners.

package control

import (
	"sync"
)

// ConfigStore is a flat key/value settings map. Listeners run on their own
// goroutines after each accepted update.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
	validate  func(map[string]any) error
}

// NewConfigStore creates a store seeded with initial.
func NewConfigStore(initial map[string]any) *ConfigStore {
	cs := &ConfigStore{config: make(map[string]any, len(initial))}
	for k, v := range initial {
		cs.config[k] = v
	}
	return cs
}

// SetValidator installs a check run on every update before it is merged.
func (cs *ConfigStore) SetValidator(fn func(update map[string]any) error) {
	cs.mu.Lock()
	cs.validate = fn
	cs.mu.Unlock()
}

// Get returns one value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetSnapshot returns a copy of all values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges update and notifies listeners. A rejected update leaves
// the store untouched.
func (cs *ConfigStore) SetConfig(update map[string]any) error {
	cs.mu.Lock()
	if cs.validate != nil {
		if err := cs.validate(update); err != nil {
			cs.mu.Unlock()
			return err
		}
	}
	for k, v := range update {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		go fn()
	}
	return nil
}

// OnReload registers a listener for accepted updates.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
