// File: engine/completion.go
// Author: momentics <momentics@gmail.com>
//
// Completion dispatch driven by readiness of the ring's eventfd.

package engine

import (
	"fmt"
	"syscall"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/pool"
)

// HandleCompletions clears the ring notification and dispatches every ready
// completion. It returns the number of completions consumed.
func (e *Engine) HandleCompletions() int {
	if err := e.ring.ClearNotification(); err != nil {
		e.log.Errorf("eventfd read failed: %v", err)
	}
	return e.drain()
}

func (e *Engine) drain() int {
	n := e.ring.PeekCompletions(e.cqes)
	for i := 0; i < n; i++ {
		c := e.cqes[i]
		sent := c.Res >= 0
		if !sent {
			e.log.Errorf("sending failed: %s", syscall.Errno(-c.Res).Error())
		}
		e.ring.Seen()
		slot, ok := e.slots.Lookup(pool.Index(c.UserData))
		if !ok {
			e.log.Errorf("completion for unknown slot %d", c.UserData)
			continue
		}
		// the slot is free again before user code runs
		cb := slot.TakeCallback()
		e.release(slot)
		e.invoke(cb, sent)
	}
	return n
}

// invoke runs cb, containing a panic so the rest of the batch is still dispatched.
func (e *Engine) invoke(cb api.OnSent, sent bool) {
	if cb == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			e.log.Errorf("send callback panicked: %v", p)
		}
	}()
	cb(sent)
}

// Subscription is the scoped registration of an engine's eventfd with a reactor.
type Subscription struct {
	e       *Engine
	r       api.Reactor
	fd      uintptr
	stopped bool
}

// StartPolling registers the engine's notification descriptor with r. Completions
// are then dispatched from r.Poll on the calling thread.
func (e *Engine) StartPolling(r api.Reactor) (*Subscription, error) {
	if e.sub != nil {
		return nil, api.ErrAlreadyPolling
	}
	if e.closed {
		return nil, api.ErrClosed
	}
	fd := uintptr(e.ring.EventFD())
	if err := r.Register(fd, api.EventRead, func(uintptr, api.EventType) {
		e.HandleCompletions()
	}); err != nil {
		return nil, fmt.Errorf("register completion eventfd: %w", err)
	}
	e.sub = &Subscription{e: e, r: r, fd: fd}
	return e.sub, nil
}

// Stop unregisters the descriptor. A second Stop returns api.ErrNotPolling.
func (s *Subscription) Stop() error {
	if s.stopped {
		return api.ErrNotPolling
	}
	s.stopped = true
	s.e.sub = nil
	return s.r.Unregister(s.fd)
}
