// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-rtc/api"
)

// Reactor is a manual api.Reactor: descriptors become ready only through Fire or MarkReady.
type Reactor struct {
	mu        sync.Mutex
	callbacks map[uintptr]api.FDCallback
	ready     map[uintptr]api.EventType
	polls     int
	closed    bool
}

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{
		callbacks: make(map[uintptr]api.FDCallback),
		ready:     make(map[uintptr]api.EventType),
	}
}

func (f *Reactor) Register(fd uintptr, _ api.EventType, cb api.FDCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.callbacks[fd]; ok {
		return api.ErrAlreadyExists
	}
	f.callbacks[fd] = cb
	return nil
}

func (f *Reactor) Unregister(fd uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.callbacks[fd]; !ok {
		return api.ErrNotFound
	}
	delete(f.callbacks, fd)
	delete(f.ready, fd)
	return nil
}

// MarkReady makes fd ready for the next Poll, which clears it after dispatch.
func (f *Reactor) MarkReady(fd uintptr, ev api.EventType) {
	f.mu.Lock()
	f.ready[fd] |= ev
	f.mu.Unlock()
}

// Poll dispatches every descriptor marked ready. The timeout is ignored.
func (f *Reactor) Poll(int) error {
	f.mu.Lock()
	f.polls++
	type hit struct {
		fd uintptr
		ev api.EventType
		cb api.FDCallback
	}
	var hits []hit
	for fd, ev := range f.ready {
		if cb, ok := f.callbacks[fd]; ok {
			hits = append(hits, hit{fd, ev, cb})
		}
		delete(f.ready, fd)
	}
	f.mu.Unlock()
	for _, h := range hits {
		h.cb(h.fd, h.ev)
	}
	return nil
}

// Fire invokes the callback for fd directly. It reports whether fd was registered.
func (f *Reactor) Fire(fd uintptr, ev api.EventType) bool {
	f.mu.Lock()
	cb, ok := f.callbacks[fd]
	f.mu.Unlock()
	if ok {
		cb(fd, ev)
	}
	return ok
}

// Registered reports whether fd is registered.
func (f *Reactor) Registered(fd uintptr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.callbacks[fd]
	return ok
}

// Polls counts Poll calls.
func (f *Reactor) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *Reactor) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
