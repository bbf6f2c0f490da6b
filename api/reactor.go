// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness event loop that drives
// completion draining and socket reads on a worker thread.

package api

// EventType is a bitmask of readiness conditions.
type EventType uint8

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback is invoked on the polling thread when fd becomes ready.
type FDCallback func(fd uintptr, events EventType)

// Reactor is a level-triggered readiness loop. Callers must drain a ready
// descriptor on every notification or the callback fires again on the next Poll.
type Reactor interface {
	// Register associates fd with cb. Registering the same fd twice fails.
	Register(fd uintptr, events EventType, cb FDCallback) error

	// Unregister removes fd from the loop.
	Unregister(fd uintptr) error

	// Poll waits up to timeoutMs (negative blocks) and dispatches ready callbacks.
	Poll(timeoutMs int) error

	// Close releases the poller backend.
	Close() error
}
