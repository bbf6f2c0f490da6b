//go:build linux
// +build linux

// File: internal/uring/abi_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Kernel ABI structures and constants for io_uring.

package uring

import (
	"fmt"
	"unsafe"
)

const (
	opWrite = 23
	opSend  = 26

	setupClamp        = 1 << 4
	setupSingleIssuer = 1 << 12

	registerEventFD = 4

	offSQRing = 0
	offCQRing = 0x8000000
	offSQEs   = 0x10000000

	sqeSize = 64
	cqeSize = 16
)

type sqRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	UserAddr    uint64
}

type cqRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	CQEs        uint32
	Flags       uint32
	Resv1       uint32
	UserAddr    uint64
}

type params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	Resv         [3]uint32
	SQOff        sqRingOffsets
	CQOff        cqRingOffsets
}

// sqe mirrors struct io_uring_sqe. For IORING_OP_SEND, Off carries addr2
// (the destination sockaddr) and AddrLen its length.
type sqe struct {
	Opcode      uint8
	Flags       uint8
	Ioprio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	AddrLen     uint16
	pad3        uint16
	Addr3       uint64
	pad2        uint64
}

type cqe struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

func init() {
	if sz := unsafe.Sizeof(sqe{}); sz != sqeSize {
		panic(fmt.Sprintf("io_uring SQE size mismatch: expected %d, got %d", sqeSize, sz))
	}
	if sz := unsafe.Sizeof(cqe{}); sz != cqeSize {
		panic(fmt.Sprintf("io_uring CQE size mismatch: expected %d, got %d", cqeSize, sz))
	}
}
