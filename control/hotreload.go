// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reload hooks fired when the process re-reads its configuration.

package control

import (
	"slices"
	"sync"
)

// ReloadHooks is a set of listeners notified with the freshly loaded config.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func(*Config)
}

// Register adds a listener.
func (r *ReloadHooks) Register(fn func(*Config)) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

func (r *ReloadHooks) snapshot() []func(*Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.hooks)
}

// Trigger dispatches all hooks asynchronously.
func (r *ReloadHooks) Trigger(cfg *Config) {
	for _, fn := range r.snapshot() {
		go fn(cfg)
	}
}

// TriggerSync invokes all hooks in registration order on the calling goroutine.
func (r *ReloadHooks) TriggerSync(cfg *Config) {
	for _, fn := range r.snapshot() {
		fn(cfg)
	}
}
