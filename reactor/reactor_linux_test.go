//go:build linux
// +build linux

package reactor_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/reactor"
)

func TestWakerIsLevelTriggered(t *testing.T) {
	r, err := reactor.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	w, err := reactor.NewWaker()
	if err != nil {
		t.Fatalf("NewWaker: %v", err)
	}
	defer w.Close()

	fired := 0
	drain := false
	if err := r.Register(uintptr(w.FD()), api.EventRead, func(_ uintptr, ev api.EventType) {
		if ev&api.EventRead == 0 {
			t.Errorf("event = %v", ev)
		}
		fired++
		if drain {
			w.Drain()
		}
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w.Wake()
	r.Poll(100)
	r.Poll(100)
	if fired != 2 {
		t.Fatalf("undrained waker fired %d times, want 2", fired)
	}
	drain = true
	r.Poll(100)
	r.Poll(0)
	if fired != 3 {
		t.Fatalf("drained waker fired %d times, want 3", fired)
	}
}

func TestRegisterTwiceAndUnregister(t *testing.T) {
	r, err := reactor.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	w, _ := reactor.NewWaker()
	defer w.Close()

	noop := func(uintptr, api.EventType) {}
	fd := uintptr(w.FD())
	if err := r.Register(fd, api.EventRead, noop); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(fd, api.EventRead, noop); !errors.Is(err, api.ErrAlreadyExists) {
		t.Fatalf("second Register err = %v", err)
	}
	if err := r.Unregister(fd); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := r.Unregister(fd); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("second Unregister err = %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestPanickingCallbackDoesNotStopLoop(t *testing.T) {
	r, err := reactor.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	w, _ := reactor.NewWaker()
	defer w.Close()
	r.Register(uintptr(w.FD()), api.EventRead, func(uintptr, api.EventType) {
		w.Drain()
		panic("boom")
	})
	w.Wake()
	if err := r.Poll(100); err != nil {
		t.Fatalf("Poll: %v", err)
	}
}
