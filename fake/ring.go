// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the kernel ring, the reactor and sockets.

package fake

import (
	"sync"

	"github.com/momentics/hioload-rtc/internal/uring"
)

// OpKind distinguishes prepared operations.
type OpKind int

const (
	OpSendto OpKind = iota + 1
	OpWrite
)

// Op is a prepared or submitted operation. Payload and Addr are copies.
type Op struct {
	Kind     OpKind
	FD       int
	Payload  []byte
	Addr     []byte
	UserData uint64
}

// Ring is an in-memory kernel ring. Completions are produced only when the test
// asks for them, so ordering and failures are fully controlled.
type Ring struct {
	mu sync.Mutex

	capacity    int
	prepared    []Op
	submitted   []Op
	completions []uring.Completion

	// SubmitErr, when set, fails the next Submit and rejects every prepared op.
	SubmitErr error
	// AcceptLimit, when positive, caps how many ops one Submit consumes.
	AcceptLimit int

	notifications int
	closed        bool
}

// NewRing returns a ring whose submission queue holds capacity entries.
func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

func (r *Ring) prepare(op Op) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.prepared) >= r.capacity {
		return false
	}
	r.prepared = append(r.prepared, op)
	return true
}

func (r *Ring) PrepareSendto(fd int, buf, addr []byte, userData uint64) bool {
	return r.prepare(Op{Kind: OpSendto, FD: fd, Payload: clone(buf), Addr: clone(addr), UserData: userData})
}

func (r *Ring) PrepareWrite(fd int, buf []byte, userData uint64) bool {
	return r.prepare(Op{Kind: OpWrite, FD: fd, Payload: clone(buf), UserData: userData})
}

func (r *Ring) Submit(rejected []uint64) (int, []uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.SubmitErr; err != nil {
		r.SubmitErr = nil
		for _, op := range r.prepared {
			rejected = append(rejected, op.UserData)
		}
		r.prepared = r.prepared[:0]
		return 0, rejected, err
	}
	n := len(r.prepared)
	if r.AcceptLimit > 0 && n > r.AcceptLimit {
		n = r.AcceptLimit
	}
	r.submitted = append(r.submitted, r.prepared[:n]...)
	for _, op := range r.prepared[n:] {
		rejected = append(rejected, op.UserData)
	}
	r.prepared = r.prepared[:0]
	return n, rejected, nil
}

func (r *Ring) PeekCompletions(dst []uring.Completion) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copy(dst, r.completions)
}

func (r *Ring) Seen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.completions) > 0 {
		r.completions = r.completions[1:]
	}
}

// EventFD returns a placeholder descriptor used as the reactor key.
func (r *Ring) EventFD() int { return 1 << 20 }

func (r *Ring) ClearNotification() error {
	r.mu.Lock()
	r.notifications++
	r.mu.Unlock()
	return nil
}

func (r *Ring) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Complete posts a completion for userData. res < 0 is a negated errno.
func (r *Ring) Complete(userData uint64, res int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, op := range r.submitted {
		if op.UserData == userData {
			r.submitted = append(r.submitted[:i], r.submitted[i+1:]...)
			break
		}
	}
	r.completions = append(r.completions, uring.Completion{UserData: userData, Res: res})
}

// CompleteAll posts a successful completion for every submitted op, in submission order.
func (r *Ring) CompleteAll() {
	for _, op := range r.Submitted() {
		r.Complete(op.UserData, int32(len(op.Payload)))
	}
}

// Prepared returns ops waiting for Submit.
func (r *Ring) Prepared() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.prepared...)
}

// Submitted returns ops handed to the fake kernel and not yet completed.
func (r *Ring) Submitted() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.submitted...)
}

// Notifications counts ClearNotification calls.
func (r *Ring) Notifications() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifications
}

// Closed reports whether Close was called.
func (r *Ring) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
