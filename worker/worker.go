// File: worker/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-thread event loop: poll, run posted tasks, flush sends.

package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/momentics/hioload-rtc/affinity"
	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/engine"
	"github.com/momentics/hioload-rtc/fallback"
	"github.com/momentics/hioload-rtc/internal/concurrency"
	"github.com/momentics/hioload-rtc/reactor"
)

// Config describes one worker.
type Config struct {
	ID int
	// CPU pins the thread when >= 0.
	CPU int
	// PollTimeout bounds one reactor wait. Zero selects 100ms.
	PollTimeout time.Duration
	// QueueSize bounds pending Post calls. Zero selects 1024.
	QueueSize int
	Engine    engine.Config
	// DisableEngine forces the synchronous path.
	DisableEngine bool
}

// Worker owns a thread and everything registered on it.
type Worker struct {
	cfg      Config
	lf       logging.LoggerFactory
	log      logging.LeveledLogger
	probes   api.Debug
	counters *control.Counters

	tasks *concurrency.Queue[func()]
	waker *reactor.Waker
	ready chan struct{}

	// mu orders Post against the final drain and the waker close.
	mu      sync.RWMutex
	stopped bool

	// worker thread only
	reactor api.Reactor
	eng     *engine.Engine
	sender  Sender
	atExit  []func()
}

// New prepares a worker. probes and counters may be nil.
func New(cfg Config, lf logging.LoggerFactory, probes api.Debug, counters *control.Counters) (*Worker, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 100 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	if cfg.Engine.LoggerFactory == nil {
		cfg.Engine.LoggerFactory = lf
	}
	if probes == nil {
		probes = control.NewDebugProbes()
	}
	if counters == nil {
		counters = control.NewCounters()
	}
	waker, err := reactor.NewWaker()
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", cfg.ID, err)
	}
	return &Worker{
		cfg:      cfg,
		lf:       lf,
		log:      lf.NewLogger(fmt.Sprintf("worker.%d", cfg.ID)),
		probes:   probes,
		counters: counters,
		tasks:    concurrency.NewQueue[func()](cfg.QueueSize),
		waker:    waker,
		ready:    make(chan struct{}),
	}, nil
}

// ID returns the configured worker id.
func (w *Worker) ID() int { return w.cfg.ID }

// Ready is closed once Run has set up the reactor and sender.
func (w *Worker) Ready() <-chan struct{} { return w.ready }

// Post schedules fn on the worker thread. Safe for concurrent use. A nil
// error guarantees fn runs, including when Post races shutdown; once the
// final drain has begun Post returns api.ErrClosed.
func (w *Worker) Post(fn func()) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return fmt.Errorf("worker %d: %w", w.cfg.ID, api.ErrClosed)
	}
	if !w.tasks.Enqueue(fn) {
		return fmt.Errorf("worker %d task queue: %w", w.cfg.ID, api.ErrResourceExhausted)
	}
	return w.waker.Wake()
}

// Reactor returns the worker's reactor. Worker thread only.
func (w *Worker) Reactor() api.Reactor { return w.reactor }

// Sender returns the worker's sender. Worker thread only.
func (w *Worker) Sender() Sender { return w.sender }

// Engine returns the send engine, or nil when the synchronous path is in use.
func (w *Worker) Engine() *engine.Engine { return w.eng }

// AtExit registers fn to run on the worker thread during shutdown, in reverse
// order, before the engine and reactor close. Worker thread only.
func (w *Worker) AtExit(fn func()) { w.atExit = append(w.atExit, fn) }

// Run locks the calling goroutine to its thread and serves until ctx is done.
// A kernel ring that the capability gate allows but fails to initialize is a
// fatal error.
func (w *Worker) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.closeWaker()

	if w.cfg.CPU >= 0 {
		if err := affinity.SetAffinity(w.cfg.CPU); err != nil {
			w.log.Warnf("pin to cpu %d: %v", w.cfg.CPU, err)
		}
	}

	r, err := reactor.New(w.lf)
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.cfg.ID, err)
	}
	defer r.Close()
	w.reactor = r

	if err := r.Register(uintptr(w.waker.FD()), api.EventRead, func(uintptr, api.EventType) {
		if err := w.waker.Drain(); err != nil {
			w.log.Errorf("drain waker: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("worker %d: register waker: %w", w.cfg.ID, err)
	}

	if !w.cfg.DisableEngine {
		eng, err := engine.NewIfSupported(w.cfg.Engine)
		if err != nil {
			return fmt.Errorf("worker %d: %w", w.cfg.ID, err)
		}
		if eng != nil {
			if _, err := eng.StartPolling(r); err != nil {
				eng.Close()
				return fmt.Errorf("worker %d: %w", w.cfg.ID, err)
			}
			w.eng = eng
		}
	}
	fb := fallback.New(w.lf, w.counters)
	w.sender = NewSender(w.eng, fb)

	eng := w.eng
	w.probes.RegisterProbe(fmt.Sprintf("worker.%d.engine", w.cfg.ID), func() any {
		if eng == nil {
			return nil
		}
		return eng.Stats()
	})
	w.probes.RegisterProbe(fmt.Sprintf("worker.%d.queued", w.cfg.ID), func() any {
		return w.tasks.Len()
	})

	stop := context.AfterFunc(ctx, func() { _ = w.waker.Wake() })
	defer stop()

	close(w.ready)
	w.log.Infof("worker %d running, engine=%t", w.cfg.ID, eng != nil)

	timeout := int(w.cfg.PollTimeout / time.Millisecond)
	var runErr error
	for ctx.Err() == nil {
		if err := r.Poll(timeout); err != nil {
			runErr = fmt.Errorf("worker %d: poll: %w", w.cfg.ID, err)
			break
		}
		w.runTasks()
		w.sender.Flush()
	}

	w.shutdown()
	w.log.Infof("worker %d stopped", w.cfg.ID)
	return runErr
}

// shutdown runs exit hooks and closes the engine while the reactor is still
// open. Tasks posted by hooks or by callbacks failed in Engine.Close run here.
func (w *Worker) shutdown() {
	w.drainAndFlush()
	for i := len(w.atExit) - 1; i >= 0; i-- {
		w.atExit[i]()
	}
	w.atExit = nil
	if w.eng != nil {
		if err := w.eng.Close(); err != nil {
			w.log.Warnf("close engine: %v", err)
		}
	}
	w.drainAndFlush()

	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	// anything accepted before the lock was taken
	w.drainAndFlush()
}

func (w *Worker) drainAndFlush() {
	w.runTasks()
	w.sender.Flush()
}

// closeWaker refuses further Posts before closing the eventfd so no producer
// can write to a closed or reused descriptor.
func (w *Worker) closeWaker() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	if n := w.tasks.Len(); n > 0 {
		w.log.Warnf("worker %d exited with %d unrun tasks", w.cfg.ID, n)
	}
	if err := w.waker.Close(); err != nil {
		w.log.Warnf("close waker: %v", err)
	}
}

func (w *Worker) runTasks() {
	for {
		fn, ok := w.tasks.Dequeue()
		if !ok {
			return
		}
		fn()
	}
}
