// File: pool/objpool.go
// Author: momentics <momentics@gmail.com>
//
// Generic wrapper over sync.Pool plus a pool of datagram-sized copy buffers
// used where payloads must outlive the caller's slice.

package pool

import "sync"

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool wraps sync.Pool for generic usage.
type SyncPool[T any] struct {
	pool sync.Pool
}

// NewSyncPool creates a new SyncPool with a creator function.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	sp := &SyncPool[T]{}
	sp.pool.New = func() any { return creator() }
	return sp
}

func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

func (sp *SyncPool[T]) Put(obj T) {
	sp.pool.Put(obj)
}

// Datagram is a reusable copy buffer with SlotSize capacity.
type Datagram struct {
	B []byte
}

// NewDatagramPool returns a pool of empty Datagram buffers.
func NewDatagramPool() *SyncPool[*Datagram] {
	return NewSyncPool(func() *Datagram {
		return &Datagram{B: make([]byte, 0, SlotSize)}
	})
}

// Assign copies the concatenation of parts into d, growing past SlotSize if needed.
func (d *Datagram) Assign(parts ...[]byte) {
	d.B = d.B[:0]
	for _, p := range parts {
		d.B = append(d.B, p...)
	}
}
