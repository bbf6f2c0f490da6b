// File: api/sent.go
// Author: momentics <momentics@gmail.com>

package api

// OnSent reports the outcome of one accepted send. It is invoked exactly once,
// on the thread that owns the sender, and must not block.
type OnSent func(sent bool)
