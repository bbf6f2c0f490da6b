// Package socket binds the UDP and TCP sockets a worker serves.
// Author: momentics <momentics@gmail.com>
//
// The wrappers keep the net package in charge of the descriptor lifetime and
// expose the raw fd and bound address that tuples, candidates and the send
// engine need. Reads are non-blocking so they can run inside a reactor callback.
package socket
