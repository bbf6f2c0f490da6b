// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for the send path. SlotPool owns the fixed set of datagram
// buffers handed to the kernel ring, one Slot per in-flight operation, and
// identifies them by a typed Index carried as the ring's user data.
// SyncPool supplies reusable copy buffers to the synchronous path.
//
// A SlotPool is confined to the thread that owns its engine.
package pool
