// File: internal/uring/completion.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uring

// Completion is the kernel result of one submitted operation.
// Res is the byte count on success or a negated errno on failure.
type Completion struct {
	UserData uint64
	Res      int32
}

// Options tune ring setup.
type Options struct {
	// SingleIssuer requests IORING_SETUP_SINGLE_ISSUER. Only valid when every
	// submission happens on the OS thread that created the ring.
	SingleIssuer bool
}
