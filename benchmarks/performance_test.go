// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-rtc hot paths.

package benchmarks

import (
	"net/netip"
	"testing"

	"golang.org/x/net/ipv4"

	"github.com/momentics/hioload-rtc/demux"
	"github.com/momentics/hioload-rtc/engine"
	"github.com/momentics/hioload-rtc/fake"
	"github.com/momentics/hioload-rtc/fallback"
	"github.com/momentics/hioload-rtc/internal/concurrency"
	"github.com/momentics/hioload-rtc/pool"
	"github.com/momentics/hioload-rtc/tuple"
)

var (
	benchLocal = netip.MustParseAddrPort("10.0.0.1:40000")
	benchPeer  = netip.MustParseAddrPort("198.51.100.20:5004")
)

// BenchmarkSlotPoolCycle measures one acquire/release round trip.
func BenchmarkSlotPoolCycle(b *testing.B) {
	sp := pool.NewSlotPool(pool.DefaultCapacity)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, ok := sp.Acquire()
		if !ok {
			b.Fatal("pool exhausted")
		}
		sp.Release(s)
	}
}

// BenchmarkEngineSendCycle measures prepare, submit and completion dispatch
// against the in-memory ring.
func BenchmarkEngineSendCycle(b *testing.B) {
	ring := fake.NewRing(pool.DefaultCapacity)
	eng := engine.NewWithRing(ring, engine.Config{})
	defer eng.Close()
	payload := make([]byte, 1200)
	done := func(bool) {}

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !eng.PrepareSend(7, payload, benchPeer, done) {
			b.Fatal("prepare failed")
		}
		eng.Submit()
		ring.CompleteAll()
		eng.HandleCompletions()
	}
}

// sinkSocket accepts and discards every datagram.
type sinkSocket struct{}

func (sinkSocket) FD() int                   { return 7 }
func (sinkSocket) LocalAddr() netip.AddrPort { return benchLocal }

func (sinkSocket) WriteBatch(msgs []ipv4.Message, _ int) (int, error) { return len(msgs), nil }

// BenchmarkFallbackBatch measures queueing a datagram and flushing a batch of 32.
func BenchmarkFallbackBatch(b *testing.B) {
	s := fallback.New(nil, nil)
	tp := tuple.New(sinkSocket{}, benchPeer, tuple.ProtocolUDP)
	payload := make([]byte, 1200)

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.SendTo(tp, payload, nil)
		if i%32 == 31 {
			s.Flush()
		}
	}
}

// BenchmarkTaskQueueThroughput measures contended producers against one consumer.
func BenchmarkTaskQueueThroughput(b *testing.B) {
	q := concurrency.NewQueue[int](1024)
	stop := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			if _, ok := q.Dequeue(); ok {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
		}
	}()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			for !q.Enqueue(i) {
			}
			i++
		}
	})
	b.StopTimer()
	close(stop)
	<-drained
}

// BenchmarkClassify measures first-byte demultiplexing.
func BenchmarkClassify(b *testing.B) {
	pkts := [][]byte{
		{0x80, 0x60, 0, 1},
		{0x80, 0xc8, 0, 6},
		{0x16, 0xfe, 0xfd},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = demux.Classify(pkts[i%len(pkts)])
	}
}
