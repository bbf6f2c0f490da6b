//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"errors"
	"fmt"

	"github.com/pion/logging"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-rtc/api"
)

const maxEvents = 128

// Reactor implements api.Reactor using level-triggered epoll.
// It is owned by one thread; Register, Unregister and Poll must not race.
type Reactor struct {
	epfd      int                         // epoll file descriptor
	callbacks map[uintptr]api.FDCallback
	events    [maxEvents]unix.EpollEvent
	log       logging.LeveledLogger
}

// New creates an epoll instance. A nil factory selects pion's default.
func New(lf logging.LoggerFactory) (*Reactor, error) {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &Reactor{
		epfd:      epfd,
		callbacks: make(map[uintptr]api.FDCallback),
		log:       lf.NewLogger("reactor"),
	}, nil
}

// Register adds a file descriptor to the epoll watch list.
func (r *Reactor) Register(fd uintptr, events api.EventType, cb api.FDCallback) error {
	if _, ok := r.callbacks[fd]; ok {
		return fmt.Errorf("fd %d: %w", fd, api.ErrAlreadyExists)
	}
	ev := unix.EpollEvent{Fd: int32(fd)}
	if events&api.EventRead != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if events&api.EventWrite != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	r.callbacks[fd] = cb
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (r *Reactor) Unregister(fd uintptr) error {
	if _, ok := r.callbacks[fd]; !ok {
		return fmt.Errorf("fd %d: %w", fd, api.ErrNotFound)
	}
	delete(r.callbacks, fd)
	// The descriptor may already be closed, which drops it from the epoll set.
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Poll waits for events and runs their callbacks inline.
// timeoutMs < 0 means block infinitely.
func (r *Reactor) Poll(timeoutMs int) error {
	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(r.epfd, r.events[:], timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil // interrupted by signal, normal
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := r.events[i]
		fd := uintptr(ev.Fd)
		// An earlier callback in this batch may have unregistered fd.
		cb, ok := r.callbacks[fd]
		if !ok {
			continue
		}
		var et api.EventType
		if ev.Events&unix.EPOLLIN != 0 {
			et |= api.EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			et |= api.EventWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			et |= api.EventError
		}
		r.dispatch(cb, fd, et)
	}
	return nil
}

// dispatch keeps the loop alive when a callback panics.
func (r *Reactor) dispatch(cb api.FDCallback, fd uintptr, et api.EventType) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("callback for fd %d panicked: %v", fd, p)
		}
	}()
	cb(fd, et)
}

// Len returns the number of registered descriptors.
func (r *Reactor) Len() int { return len(r.callbacks) }

// Close releases the epoll file descriptor.
func (r *Reactor) Close() error {
	r.callbacks = map[uintptr]api.FDCallback{}
	return unix.Close(r.epfd)
}
