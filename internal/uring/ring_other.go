//go:build !linux
// +build !linux

// File: internal/uring/ring_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uring

import "github.com/momentics/hioload-rtc/api"

// Ring is unavailable outside Linux.
type Ring struct{}

// New always fails with api.ErrNotSupported.
func New(entries uint32, opts Options) (*Ring, error) { return nil, api.ErrNotSupported }

func (r *Ring) Entries() uint32                                             { return 0 }
func (r *Ring) PrepareSendto(fd int, buf, addr []byte, userData uint64) bool { return false }
func (r *Ring) PrepareWrite(fd int, buf []byte, userData uint64) bool        { return false }
func (r *Ring) Submit(rejected []uint64) (int, []uint64, error)              { return 0, rejected, api.ErrNotSupported }
func (r *Ring) PeekCompletions(dst []Completion) int                        { return 0 }
func (r *Ring) Seen()                                                       {}
func (r *Ring) EventFD() int                                                { return -1 }
func (r *Ring) ClearNotification() error                                    { return api.ErrNotSupported }
func (r *Ring) Close() error                                                { return nil }
