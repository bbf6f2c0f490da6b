// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// guarded by build tags.

package affinity

// SetAffinity pins the calling OS thread to the given logical CPU.
// Callers must hold runtime.LockOSThread for the pin to be meaningful.
// A negative cpuID is a no-op.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	return setAffinityPlatform(cpuID)
}

// CPUFor maps a worker index onto the available CPUs round-robin.
func CPUFor(worker, ncpu int) int {
	if ncpu <= 0 {
		return -1
	}
	return worker % ncpu
}
