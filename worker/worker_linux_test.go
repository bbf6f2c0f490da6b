//go:build linux

package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/worker"
)

func startWorker(t *testing.T, cfg worker.Config, probes api.Debug) (*worker.Worker, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := worker.New(cfg, nil, probes, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	select {
	case <-w.Ready():
	case err := <-errc:
		cancel()
		t.Fatalf("Run: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("worker not ready")
	}
	return w, cancel, errc
}

func TestWorkerRunsPostedTasks(t *testing.T) {
	probes := control.NewDebugProbes()
	w, cancel, errc := startWorker(t, worker.Config{ID: 3, CPU: -1, DisableEngine: true}, probes)

	done := make(chan bool, 1)
	if err := w.Post(func() {
		done <- w.Sender() != nil && w.Reactor() != nil && w.Engine() == nil
	}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("worker state not initialized on its thread")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("posted task never ran")
	}

	if _, ok := probes.DumpState()["worker.3.engine"]; !ok {
		t.Fatal("engine probe not registered")
	}

	exited := make(chan struct{})
	if err := w.Post(func() { w.AtExit(func() { close(exited) }) }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	select {
	case <-exited:
	default:
		t.Fatal("AtExit hook did not run")
	}
	if err := w.Post(func() {}); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("Post after stop = %v, want ErrClosed", err)
	}
}

func TestWorkerPostQueueFull(t *testing.T) {
	w, err := worker.New(worker.Config{ID: 1, CPU: -1, QueueSize: 2, DisableEngine: true}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// not running: tasks accumulate
	for i := 0; i < 2; i++ {
		if err := w.Post(func() {}); err != nil {
			t.Fatalf("Post %d: %v", i, err)
		}
	}
	if err := w.Post(func() {}); !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("Post on full queue = %v", err)
	}
}

func TestWorkerWithEngineWhenSupported(t *testing.T) {
	w, err := worker.New(worker.Config{ID: 0, CPU: -1}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	select {
	case <-w.Ready():
	case err := <-errc:
		// sandboxes often forbid io_uring_setup even on new kernels
		t.Skipf("ring unavailable: %v", err)
	}

	got := make(chan bool, 1)
	if err := w.Post(func() { got <- w.Sender() != nil }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !<-got {
		t.Fatal("sender missing")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestWorkerRunsTasksPostedDuringShutdown(t *testing.T) {
	w, cancel, errc := startWorker(t, worker.Config{ID: 4, CPU: -1, DisableEngine: true}, nil)

	var hookErr, nestedErr error
	ran, nestedRan := false, false
	registered := make(chan struct{})
	if err := w.Post(func() {
		w.AtExit(func() {
			hookErr = w.Post(func() {
				ran = true
				nestedErr = w.Post(func() { nestedRan = true })
			})
		})
		close(registered)
	}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	<-registered
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if hookErr != nil || !ran {
		t.Fatalf("task posted from exit hook: err=%v ran=%v", hookErr, ran)
	}
	if nestedErr != nil || !nestedRan {
		t.Fatalf("task posted while draining: err=%v ran=%v", nestedErr, nestedRan)
	}
}
