// Package api
// Author: momentics
//
// Live introspection hooks used by the diagnostics dump.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of registered probes.
	DumpState() map[string]any

	// RegisterProbe registers a named probe. Probes run on the caller's goroutine
	// and must only read state that is safe to read concurrently.
	RegisterProbe(name string, fn func() any)
}
