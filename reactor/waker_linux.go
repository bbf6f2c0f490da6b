//go:build linux
// +build linux

// File: reactor/waker_linux.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Waker interrupts a blocked Poll from any goroutine.
type Waker struct {
	fd int
}

// NewWaker creates a non-blocking eventfd.
func NewWaker() (*Waker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &Waker{fd: fd}, nil
}

// FD is the descriptor to register for EventRead.
func (w *Waker) FD() int { return w.fd }

// Wake makes FD readable. Safe for concurrent use.
func (w *Waker) Wake() error {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(w.fd, one[:])
	if errors.Is(err, unix.EAGAIN) {
		return nil // counter saturated, already readable
	}
	return err
}

// Drain resets the counter so a level-triggered poll stops reporting it.
func (w *Waker) Drain() error {
	var buf [8]byte
	_, err := unix.Read(w.fd, buf[:])
	if errors.Is(err, unix.EAGAIN) {
		return nil
	}
	return err
}

func (w *Waker) Close() error { return unix.Close(w.fd) }
