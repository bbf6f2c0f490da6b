// Package fallback
// Author: momentics <momentics@gmail.com>
//
// Synchronous send path used when the kernel ring is unavailable or refuses
// an operation. Datagrams are copied, grouped per socket and flushed with one
// sendmmsg per socket; stream writes go out immediately as a vectored write.
//
// A Sender is owned by one worker thread, like the engine it backs up.
package fallback
