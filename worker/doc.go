// Package worker
// Author: momentics <momentics@gmail.com>
//
// A Worker is one locked OS thread that owns a reactor, an optional send
// engine and a synchronous fallback sender. Other goroutines interact with it
// only through Post; everything else is confined to the worker thread.
package worker
