// File: pool/slot_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity slot arena with a FIFO of free slots.
// Not safe for concurrent use: the owning worker thread is the only caller.

package pool

import "github.com/eapache/queue"

// SlotPool bounds the number of in-flight kernel operations. It never grows.
type SlotPool struct {
	slots    []Slot
	free     *queue.Queue // of *Slot
	inFlight int
}

// NewSlotPool allocates capacity slots up front. capacity <= 0 selects DefaultCapacity.
func NewSlotPool(capacity int) *SlotPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &SlotPool{
		slots: make([]Slot, capacity),
		free:  queue.New(),
	}
	for i := range p.slots {
		p.slots[i].idx = Index(i)
		p.free.Add(&p.slots[i])
	}
	return p
}

// Acquire removes one slot from the free queue. ok is false when the pool is
// exhausted; that is backpressure, not an error.
func (p *SlotPool) Acquire() (s *Slot, ok bool) {
	if p.free.Length() == 0 {
		return nil, false
	}
	s = p.free.Remove().(*Slot)
	s.inFlight = true
	p.inFlight++
	return s, true
}

// Release returns an in-flight slot to the free queue. Releasing a free slot or a
// slot from another pool is rejected and reported as false.
func (p *SlotPool) Release(s *Slot) bool {
	if s == nil || int(s.idx) >= len(p.slots) || &p.slots[s.idx] != s || !s.inFlight {
		return false
	}
	s.reset()
	s.inFlight = false
	p.inFlight--
	p.free.Add(s)
	return true
}

// Lookup resolves an index carried through the kernel back to its in-flight slot.
func (p *SlotPool) Lookup(idx Index) (*Slot, bool) {
	if int(idx) >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[idx]
	if !s.inFlight {
		return nil, false
	}
	return s, true
}

// ForEachInFlight visits every in-flight slot in index order.
func (p *SlotPool) ForEachInFlight(fn func(*Slot)) {
	for i := range p.slots {
		if p.slots[i].inFlight {
			fn(&p.slots[i])
		}
	}
}

// Cap returns the fixed slot count.
func (p *SlotPool) Cap() int { return len(p.slots) }

// Available returns the number of free slots.
func (p *SlotPool) Available() int { return p.free.Length() }

// InFlight returns the number of acquired slots.
func (p *SlotPool) InFlight() int { return p.inFlight }
