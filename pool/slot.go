// File: pool/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Slot: one pre-allocated send buffer staging exactly one in-flight kernel operation.

package pool

import "github.com/momentics/hioload-rtc/api"

const (
	// SlotSize is the largest single-packet payload a slot holds.
	SlotSize = 1500
	// SockaddrSize fits a raw sockaddr_in6, the largest destination encoding.
	SockaddrSize = 28
	// DefaultCapacity is the slot count used when none is configured.
	DefaultCapacity = 4096
)

// Index is the stable identity of a slot inside its pool.
type Index uint32

// Slot is either free or in flight. Buffers are fixed arrays so the memory handed
// to the kernel never moves or grows while an operation is pending.
type Slot struct {
	buf      [SlotSize]byte
	n        int
	addr     [SockaddrSize]byte
	addrLen  int
	cb       api.OnSent
	idx      Index
	inFlight bool
}

// Index returns the slot's position in its pool.
func (s *Slot) Index() Index { return s.idx }

// Fill copies p1 followed by p2 into the buffer. It returns false, leaving the
// slot untouched, when the combined length exceeds SlotSize.
func (s *Slot) Fill(p1, p2 []byte) bool {
	if len(p1)+len(p2) > SlotSize {
		return false
	}
	s.n = copy(s.buf[:], p1)
	s.n += copy(s.buf[s.n:], p2)
	return true
}

// Bytes returns the staged payload.
func (s *Slot) Bytes() []byte { return s.buf[:s.n] }

// SetSockaddr stores a raw destination address. Oversized input is truncated to SockaddrSize.
func (s *Slot) SetSockaddr(raw []byte) {
	s.addrLen = copy(s.addr[:], raw)
}

// Sockaddr returns the stored raw destination, empty for connected-socket writes.
func (s *Slot) Sockaddr() []byte { return s.addr[:s.addrLen] }

// SetCallback attaches the completion callback for the current use.
func (s *Slot) SetCallback(cb api.OnSent) { s.cb = cb }

// TakeCallback moves the callback out of the slot, leaving it empty.
func (s *Slot) TakeCallback() api.OnSent {
	cb := s.cb
	s.cb = nil
	return cb
}

func (s *Slot) reset() {
	s.n = 0
	s.addrLen = 0
	s.cb = nil
}
