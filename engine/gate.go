// File: engine/gate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime capability gate for the accelerated send path.

package engine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// minKernelMajor is the first kernel whose IORING_OP_SEND accepts a destination address.
const minKernelMajor = 6

var runtimeSupport = sync.OnceValues(probeRuntimeSupport)

// IsRuntimeSupported reports whether the running kernel can host an Engine.
// The probe runs once per process; later calls return the cached answer.
// A non-nil error means the kernel release could not be read, which callers
// must treat as fatal.
func IsRuntimeSupported() (bool, error) {
	return runtimeSupport()
}

func probeRuntimeSupport() (bool, error) {
	release, err := kernelRelease()
	if err != nil {
		return false, fmt.Errorf("read kernel release: %w", err)
	}
	if release == "" {
		return false, nil
	}
	major, err := kernelMajor(release)
	if err != nil {
		return false, err
	}
	return major >= minKernelMajor, nil
}

// kernelMajor extracts the major number from a release string such as "6.8.0-45-generic".
func kernelMajor(release string) (int, error) {
	head, _, _ := strings.Cut(release, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("parse kernel release %q: %w", release, err)
	}
	return major, nil
}

// NewIfSupported consults the capability gate and creates an engine only when the
// host supports it. It returns (nil, nil) on unsupported hosts: callers branch on
// the engine being nil, never on a flag.
func NewIfSupported(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	log := cfg.LoggerFactory.NewLogger("engine")
	ok, err := IsRuntimeSupported()
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("io_uring not supported, using synchronous sends")
		return nil, nil
	}
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("io_uring enabled, queue depth %d", cfg.QueueDepth)
	return e, nil
}
