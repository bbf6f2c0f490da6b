// File: engine/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/pion/logging"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/internal/uring"
	"github.com/momentics/hioload-rtc/pool"
)

// Config tunes engine construction.
type Config struct {
	// QueueDepth is both the ring size and the slot count. Zero selects pool.DefaultCapacity.
	QueueDepth int
	// SingleIssuer asks the kernel to assume a single submitting thread.
	SingleIssuer bool
	// LoggerFactory defaults to pion's default factory.
	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = pool.DefaultCapacity
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	return c
}

// Engine is the per-thread submission engine. See the package documentation
// for the ownership rules.
type Engine struct {
	ring  Ring
	slots *pool.SlotPool
	log   logging.LeveledLogger

	active bool
	closed bool
	sub    *Subscription

	cqes     []uring.Completion
	rejected []uint64
	sockaddr [pool.SockaddrSize]byte

	sqeProcessCount   atomic.Uint64
	sqeMissCount      atomic.Uint64
	userDataMissCount atomic.Uint64
	submitRejectCount atomic.Uint64
	inFlight          atomic.Int64
}

// New creates a kernel ring and an engine around it. Callers should normally
// go through NewIfSupported, which consults the capability gate first.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	ring, err := uring.New(uint32(cfg.QueueDepth), uring.Options{SingleIssuer: cfg.SingleIssuer})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return NewWithRing(ring, cfg), nil
}

// NewWithRing builds an engine on an existing ring. The engine owns ring from now on.
func NewWithRing(ring Ring, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		ring:  ring,
		slots: pool.NewSlotPool(cfg.QueueDepth),
		log:   cfg.LoggerFactory.NewLogger("engine"),
		cqes:  make([]uring.Completion, cfg.QueueDepth),
	}
}

// PrepareSend queues payload for transmission from fd to the datagram
// destination to. It returns false when the payload cannot be queued; the caller
// must then send synchronously. cb, when non-nil, runs exactly once after a true return.
func (e *Engine) PrepareSend(fd int, payload []byte, to netip.AddrPort, cb api.OnSent) bool {
	if len(payload) > pool.SlotSize {
		e.log.Errorf("payload of %d bytes exceeds slot size %d", len(payload), pool.SlotSize)
		return false
	}
	if !to.IsValid() {
		e.log.Errorf("invalid destination address")
		return false
	}
	if e.closed {
		return false
	}

	slot, ok := e.slots.Acquire()
	if !ok {
		e.log.Debug("no user data entry available")
		e.userDataMissCount.Add(1)
		return false
	}
	slot.Fill(payload, nil)
	n := encodeSockaddr(&e.sockaddr, to)
	slot.SetSockaddr(e.sockaddr[:n])

	if !e.ring.PrepareSendto(fd, slot.Bytes(), slot.Sockaddr(), uint64(slot.Index())) {
		e.log.Debug("no sqe available")
		e.sqeMissCount.Add(1)
		e.slots.Release(slot)
		return false
	}
	e.queued(slot, cb)
	return true
}

// PrepareWrite queues p1 followed by p2 as one contiguous write on a connected fd.
// The combined length must fit one slot.
func (e *Engine) PrepareWrite(fd int, p1, p2 []byte, cb api.OnSent) bool {
	if len(p1)+len(p2) > pool.SlotSize {
		e.log.Errorf("payload of %d bytes exceeds slot size %d", len(p1)+len(p2), pool.SlotSize)
		return false
	}
	if e.closed {
		return false
	}

	slot, ok := e.slots.Acquire()
	if !ok {
		e.log.Debug("no user data entry available")
		e.userDataMissCount.Add(1)
		return false
	}
	slot.Fill(p1, p2)

	if !e.ring.PrepareWrite(fd, slot.Bytes(), uint64(slot.Index())) {
		e.log.Debug("no sqe available")
		e.sqeMissCount.Add(1)
		e.slots.Release(slot)
		return false
	}
	e.queued(slot, cb)
	return true
}

func (e *Engine) queued(slot *pool.Slot, cb api.OnSent) {
	slot.SetCallback(cb)
	e.sqeProcessCount.Add(1)
	e.inFlight.Add(1)
	e.active = true
}

// IsActive reports whether prepared operations are waiting for Submit.
func (e *Engine) IsActive() bool { return e.active }

// Submit flushes every prepared operation to the kernel in one call. Operations
// the kernel refuses are failed through their callbacks and their slots released.
func (e *Engine) Submit() {
	e.active = false
	n, rejected, err := e.ring.Submit(e.rejected[:0])
	if err != nil {
		e.log.Errorf("io_uring_submit() failed: %v", err)
	} else {
		e.log.Debugf("%d submission queue entries submitted", n)
	}
	for _, ud := range rejected {
		e.submitRejectCount.Add(1)
		if slot, ok := e.slots.Lookup(pool.Index(ud)); ok {
			e.fail(slot)
		}
	}
	e.rejected = rejected[:0]
}

// fail returns the slot to the pool, then runs its callback with false.
func (e *Engine) fail(slot *pool.Slot) {
	cb := slot.TakeCallback()
	e.release(slot)
	e.invoke(cb, false)
}

func (e *Engine) release(slot *pool.Slot) {
	if e.slots.Release(slot) {
		e.inFlight.Add(-1)
	}
}

// Close drains ready completions, fails every operation still in flight, stops
// polling and releases the ring. The engine must not be used afterwards.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.drain()
	e.closed = true
	if e.sub != nil {
		if err := e.sub.Stop(); err != nil {
			e.log.Warnf("stop polling: %v", err)
		}
	}
	err := e.ring.Close()
	e.slots.ForEachInFlight(e.fail)
	e.active = false
	return err
}
