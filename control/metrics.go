// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Named atomic counters for system-level monitoring.
// Counters are created on first use and never removed.

package control

import (
	"sync"
	"sync/atomic"
)

// Counters is a registry of monotonically updated int64 counters.
type Counters struct {
	mu sync.RWMutex
	m  map[string]*atomic.Int64
}

// NewCounters creates an empty registry.
func NewCounters() *Counters {
	return &Counters{m: make(map[string]*atomic.Int64)}
}

// Counter returns the counter for name, creating it if needed.
// The returned pointer may be cached by hot paths.
func (c *Counters) Counter(name string) *atomic.Int64 {
	c.mu.RLock()
	v, ok := c.m[name]
	c.mu.RUnlock()
	if ok {
		return v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.m[name]; !ok {
		v = new(atomic.Int64)
		c.m[name] = v
	}
	return v
}

// Add increments name by delta.
func (c *Counters) Add(name string, delta int64) {
	c.Counter(name).Add(delta)
}

// Snapshot copies current values.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v.Load()
	}
	return out
}
