//go:build linux
// +build linux

// File: internal/uring/ring_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uring

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Ring owns one io_uring instance and its completion eventfd.
type Ring struct {
	fd  int
	efd int

	sqRing  []byte
	cqRing  []byte
	sqesMap []byte

	sqHead    *uint32
	sqTail    *uint32
	sqMask    uint32
	sqEntries uint32
	sqArray   []uint32
	sqes      []sqe

	cqHead *uint32
	cqTail *uint32
	cqMask uint32
	cqes   []cqe

	// Local SQE allocation counters, published to sqTail on flush.
	sqeHead uint32
	sqeTail uint32
}

// New sets up a ring with at least entries submission slots and registers a
// non-blocking eventfd for completion notification.
func New(entries uint32, opts Options) (*Ring, error) {
	flags := uint32(setupClamp)
	if opts.SingleIssuer {
		flags |= setupSingleIssuer
	}

	var p params
	var fd uintptr
	for {
		p = params{Flags: flags}
		var errno unix.Errno
		fd, _, errno = unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
		if errno == 0 {
			break
		}
		// Pre-6.0 kernels reject SINGLE_ISSUER.
		if errno == unix.EINVAL && flags&setupSingleIssuer != 0 {
			flags &^= setupSingleIssuer
			continue
		}
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	r := &Ring{fd: int(fd), efd: -1}
	if err := r.mapRings(&p); err != nil {
		r.Close()
		return nil, fmt.Errorf("io_uring mmap: %w", err)
	}

	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	r.efd = efd

	efd32 := int32(efd)
	if _, _, errno := unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(r.fd), registerEventFD,
		uintptr(unsafe.Pointer(&efd32)), 1, 0, 0); errno != 0 {
		r.Close()
		return nil, fmt.Errorf("io_uring_register eventfd: %w", errno)
	}
	return r, nil
}

func alignUp(v, alignment uint32) uint32 {
	return (v + alignment - 1) &^ (alignment - 1)
}

func (r *Ring) mapRings(p *params) error {
	page := uint32(unix.Getpagesize())
	sqRingSize := alignUp(p.SQOff.Array+p.SQEntries*4, page)
	cqRingSize := alignUp(p.CQOff.CQEs+p.CQEntries*cqeSize, page)
	sqesSize := alignUp(p.SQEntries*sqeSize, page)

	var err error
	if r.sqRing, err = unix.Mmap(r.fd, offSQRing, int(sqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE); err != nil {
		return err
	}
	if r.cqRing, err = unix.Mmap(r.fd, offCQRing, int(cqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE); err != nil {
		return err
	}
	if r.sqesMap, err = unix.Mmap(r.fd, offSQEs, int(sqesSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE); err != nil {
		return err
	}

	r.sqHead = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Tail]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingMask]))
	r.sqEntries = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingEntries]))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Array])), p.SQEntries)
	r.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&r.sqesMap[0])), p.SQEntries)

	r.cqHead = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Tail]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.RingMask]))
	r.cqes = unsafe.Slice((*cqe)(unsafe.Pointer(&r.cqRing[p.CQOff.CQEs])), p.CQEntries)

	r.sqeHead = atomic.LoadUint32(r.sqTail)
	r.sqeTail = r.sqeHead
	return nil
}

// Entries returns the submission queue size granted by the kernel.
func (r *Ring) Entries() uint32 { return r.sqEntries }

func (r *Ring) getSQE() *sqe {
	head := atomic.LoadUint32(r.sqHead)
	if r.sqeTail-head >= r.sqEntries {
		return nil
	}
	e := &r.sqes[r.sqeTail&r.sqMask]
	*e = sqe{}
	r.sqeTail++
	return e
}

func bufAddr(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}

// PrepareSendto queues a send of buf to the raw sockaddr addr on fd.
// buf and addr must stay untouched until the completion is consumed.
// It returns false when no submission entry is free.
func (r *Ring) PrepareSendto(fd int, buf, addr []byte, userData uint64) bool {
	e := r.getSQE()
	if e == nil {
		return false
	}
	e.Opcode = opSend
	e.Fd = int32(fd)
	e.Addr = bufAddr(buf)
	e.Len = uint32(len(buf))
	e.Off = bufAddr(addr)
	e.AddrLen = uint16(len(addr))
	e.UserData = userData
	return true
}

// PrepareWrite queues a write of buf on a connected fd.
func (r *Ring) PrepareWrite(fd int, buf []byte, userData uint64) bool {
	e := r.getSQE()
	if e == nil {
		return false
	}
	e.Opcode = opWrite
	e.Fd = int32(fd)
	e.Addr = bufAddr(buf)
	e.Len = uint32(len(buf))
	e.UserData = userData
	return true
}

func (r *Ring) flush() uint32 {
	tail := *r.sqTail
	for r.sqeHead != r.sqeTail {
		r.sqArray[tail&r.sqMask] = r.sqeHead & r.sqMask
		tail++
		r.sqeHead++
	}
	atomic.StoreUint32(r.sqTail, tail)
	return tail - atomic.LoadUint32(r.sqHead)
}

// Submit flushes every prepared entry in one io_uring_enter call. Entries the
// kernel did not consume are withdrawn from the ring and their user data is
// appended to rejected, which is returned.
func (r *Ring) Submit(rejected []uint64) (int, []uint64, error) {
	pending := r.flush()
	if pending == 0 {
		return 0, rejected, nil
	}
	for {
		n, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), uintptr(pending), 0, 0, 0, 0)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return 0, r.rollback(rejected), fmt.Errorf("io_uring_enter: %w", errno)
		}
		if uint32(n) < pending {
			rejected = r.rollback(rejected)
		}
		return int(n), rejected, nil
	}
}

// rollback withdraws the entries between the kernel head and our tail.
func (r *Ring) rollback(rejected []uint64) []uint64 {
	head := atomic.LoadUint32(r.sqHead)
	tail := *r.sqTail
	for i := head; i != tail; i++ {
		rejected = append(rejected, r.sqes[r.sqArray[i&r.sqMask]].UserData)
	}
	atomic.StoreUint32(r.sqTail, head)
	r.sqeHead = head
	r.sqeTail = head
	return rejected
}

// PeekCompletions copies up to len(dst) ready completions without consuming them.
func (r *Ring) PeekCompletions(dst []Completion) int {
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	n := 0
	for head != tail && n < len(dst) {
		c := &r.cqes[head&r.cqMask]
		dst[n] = Completion{UserData: c.UserData, Res: c.Res}
		head++
		n++
	}
	return n
}

// Seen marks the oldest ready completion as consumed.
func (r *Ring) Seen() {
	atomic.StoreUint32(r.cqHead, atomic.LoadUint32(r.cqHead)+1)
}

// EventFD returns the descriptor that turns readable when completions are posted.
func (r *Ring) EventFD() int { return r.efd }

// ClearNotification reads and discards the eventfd counter.
func (r *Ring) ClearNotification() error {
	var buf [8]byte
	_, err := unix.Read(r.efd, buf[:])
	if errors.Is(err, unix.EAGAIN) {
		return nil
	}
	return err
}

// Close unmaps the rings and closes both descriptors.
func (r *Ring) Close() error {
	for _, m := range [][]byte{r.sqesMap, r.cqRing, r.sqRing} {
		if m != nil {
			_ = unix.Munmap(m)
		}
	}
	r.sqesMap, r.cqRing, r.sqRing = nil, nil, nil
	var err error
	if r.efd >= 0 {
		err = unix.Close(r.efd)
		r.efd = -1
	}
	if r.fd >= 0 {
		if cerr := unix.Close(r.fd); err == nil {
			err = cerr
		}
		r.fd = -1
	}
	return err
}
