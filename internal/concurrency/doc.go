// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by worker threads: a bounded MPSC queue used
// to hand work to a thread that owns its reactor and send engine.
package concurrency
