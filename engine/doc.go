// Package engine implements the asynchronous send path of a worker thread.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An Engine copies outbound packets into a fixed pool of slots, queues them on
// a kernel ring tagged with the slot index, and hands each slot back as its
// completion is drained, just before the caller's callback runs. A panicking
// callback is logged and does not stop the rest of the batch.
//
// An Engine belongs to exactly one OS thread. The worker that creates it must
// also prepare, submit and drain completions; nothing in this package locks.
// Use NewIfSupported to create one: a nil Engine means the host cannot run the
// accelerated path and callers must send synchronously.
package engine
