// File: engine/ring.go
// Author: momentics <momentics@gmail.com>

package engine

import "github.com/momentics/hioload-rtc/internal/uring"

// Ring is the kernel submission/completion mechanism an Engine drives.
// *uring.Ring implements it on Linux.
type Ring interface {
	PrepareSendto(fd int, buf, addr []byte, userData uint64) bool
	PrepareWrite(fd int, buf []byte, userData uint64) bool
	Submit(rejected []uint64) (int, []uint64, error)
	PeekCompletions(dst []uring.Completion) int
	Seen()
	EventFD() int
	ClearNotification() error
	Close() error
}
