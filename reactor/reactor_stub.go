//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"github.com/pion/logging"

	"github.com/momentics/hioload-rtc/api"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns api.ErrNotSupported.
func New(logging.LoggerFactory) (*Reactor, error) { return nil, api.ErrNotSupported }

func (r *Reactor) Register(uintptr, api.EventType, api.FDCallback) error { return api.ErrNotSupported }
func (r *Reactor) Unregister(uintptr) error                              { return api.ErrNotSupported }
func (r *Reactor) Poll(int) error                                        { return api.ErrNotSupported }
func (r *Reactor) Len() int                                              { return 0 }
func (r *Reactor) Close() error                                          { return nil }

// Waker is unavailable on this platform.
type Waker struct{}

// NewWaker returns api.ErrNotSupported.
func NewWaker() (*Waker, error) { return nil, api.ErrNotSupported }

func (w *Waker) FD() int      { return -1 }
func (w *Waker) Wake() error  { return api.ErrNotSupported }
func (w *Waker) Drain() error { return api.ErrNotSupported }
func (w *Waker) Close() error { return nil }
