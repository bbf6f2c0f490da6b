//go:build linux

package affinity_test

import (
	"runtime"
	"testing"

	"github.com/momentics/hioload-rtc/affinity"
)

func TestSetAffinityPinsThread(t *testing.T) {
	// never unlocked: the pinned thread exits with the goroutine
	runtime.LockOSThread()

	before, err := affinity.Current()
	if err != nil || len(before) == 0 {
		t.Skipf("cannot read affinity: %v", err)
	}
	target := before[len(before)-1]
	if err := affinity.SetAffinity(target); err != nil {
		t.Fatalf("SetAffinity: %v", err)
	}
	now, err := affinity.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(now) != 1 || now[0] != target {
		t.Fatalf("affinity = %v, want [%d]", now, target)
	}
}

func TestSetAffinityNegativeIsNoop(t *testing.T) {
	if err := affinity.SetAffinity(-1); err != nil {
		t.Fatalf("SetAffinity(-1): %v", err)
	}
}

func TestCPUFor(t *testing.T) {
	if got := affinity.CPUFor(5, 4); got != 1 {
		t.Fatalf("CPUFor(5,4) = %d", got)
	}
	if got := affinity.CPUFor(0, 0); got != -1 {
		t.Fatalf("CPUFor(0,0) = %d", got)
	}
}
