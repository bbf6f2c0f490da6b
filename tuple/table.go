// File: tuple/table.go
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe flow table keyed by tuple identity.

package tuple

import "sync"

// Table maps flows to upstream state (sessions, counters).
type Table[V any] struct {
	shards []*tableShard[V]
	mask   uint64
}

type tableShard[V any] struct {
	mu    sync.RWMutex
	flows map[Key]V
}

// NewTable constructs a table with shardCount shards rounded up to a power of two.
func NewTable[V any](shardCount int) *Table[V] {
	if shardCount <= 0 {
		shardCount = 16
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	shards := make([]*tableShard[V], n)
	for i := range shards {
		shards[i] = &tableShard[V]{flows: make(map[Key]V)}
	}
	return &Table[V]{shards: shards, mask: uint64(n - 1)}
}

func (t *Table[V]) shard(k Key) *tableShard[V] {
	return t.shards[k.Hash()&t.mask]
}

// Get fetches the value stored for the flow.
func (t *Table[V]) Get(tp Tuple) (V, bool) {
	k := tp.Key()
	sh := t.shard(k)
	sh.mu.RLock()
	v, ok := sh.flows[k]
	sh.mu.RUnlock()
	return v, ok
}

// LoadOrStore returns the existing value for the flow, or stores and returns the one made by create.
// loaded is true when the flow was already known.
func (t *Table[V]) LoadOrStore(tp Tuple, create func() V) (v V, loaded bool) {
	k := tp.Key()
	sh := t.shard(k)
	sh.mu.RLock()
	v, ok := sh.flows[k]
	sh.mu.RUnlock()
	if ok {
		return v, true
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok = sh.flows[k]; ok {
		return v, true
	}
	v = create()
	sh.flows[k] = v
	return v, false
}

// Delete removes the flow and returns what was stored.
func (t *Table[V]) Delete(tp Tuple) (V, bool) {
	return t.DeleteKey(tp.Key())
}

// DeleteKey is Delete for a key obtained from Range.
func (t *Table[V]) DeleteKey(k Key) (V, bool) {
	sh := t.shard(k)
	sh.mu.Lock()
	v, ok := sh.flows[k]
	if ok {
		delete(sh.flows, k)
	}
	sh.mu.Unlock()
	return v, ok
}

// Len counts flows across all shards.
func (t *Table[V]) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.flows)
		sh.mu.RUnlock()
	}
	return n
}

// Range applies fn to every flow until fn returns false. fn must not modify the table.
func (t *Table[V]) Range(fn func(Key, V) bool) {
	for _, sh := range t.shards {
		sh.mu.RLock()
		for k, v := range sh.flows {
			if !fn(k, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}
