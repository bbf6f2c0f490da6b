//go:build !linux
// +build !linux

package engine

// kernelRelease reports no release; the accelerated path is Linux only.
func kernelRelease() (string, error) { return "", nil }
