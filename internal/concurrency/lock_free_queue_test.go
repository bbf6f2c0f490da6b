package concurrency_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-rtc/internal/concurrency"
)

func TestQueueFIFOAndFull(t *testing.T) {
	q := concurrency.NewQueue[int](3)
	if q.Cap() != 4 {
		t.Fatalf("Cap = %d, want 4", q.Cap())
	}
	for i := 0; i < 4; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("Enqueue(%d) failed", i)
		}
	}
	if q.Enqueue(99) {
		t.Fatal("Enqueue on full queue succeeded")
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Dequeue()
		if !ok || v != i {
			t.Fatalf("Dequeue = %d,%v want %d", v, ok, i)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue on empty queue succeeded")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, per = 4, 1000
	q := concurrency.NewQueue[int](64)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; {
				if q.Enqueue(1) {
					i++
				}
			}
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	sum := 0
	for sum < producers*per {
		if v, ok := q.Dequeue(); ok {
			sum += v
		}
	}
	<-done
	if q.Len() != 0 {
		t.Fatalf("Len = %d after drain", q.Len())
	}
}
