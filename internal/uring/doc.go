// Package uring is a minimal io_uring binding for send-only workloads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// It maps the submission and completion rings, prepares sendto and write
// operations tagged with opaque user data, flushes them in one io_uring_enter
// call and exposes ready completions through an eventfd registered with the ring.
// A Ring is not safe for concurrent use.
package uring
