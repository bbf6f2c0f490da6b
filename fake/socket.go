// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"net"
	"net/netip"
	"sync"

	"golang.org/x/net/ipv4"
)

// Datagram is one message captured by Socket.WriteBatch.
type Datagram struct {
	To      netip.AddrPort
	Payload []byte
}

// Socket records writes instead of touching the network. It satisfies the
// batch and vectored writer contracts used by the synchronous send path.
type Socket struct {
	mu    sync.Mutex
	fd    int
	local netip.AddrPort

	// BatchLimit caps messages accepted per WriteBatch call; zero means unlimited.
	BatchLimit int
	// Err is returned by the next write and then cleared.
	Err error

	datagrams []Datagram
	streams   [][]byte
	batches   int
}

// NewSocket creates a fake socket with the given descriptor and local address.
func NewSocket(fd int, local netip.AddrPort) *Socket {
	return &Socket{fd: fd, local: local}
}

func (s *Socket) FD() int                   { return s.fd }
func (s *Socket) LocalAddr() netip.AddrPort { return s.local }

func (s *Socket) takeErr() error {
	err := s.Err
	s.Err = nil
	return err
}

// WriteBatch mimics sendmmsg.
func (s *Socket) WriteBatch(msgs []ipv4.Message, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if err := s.takeErr(); err != nil {
		return 0, err
	}
	n := len(msgs)
	if s.BatchLimit > 0 && n > s.BatchLimit {
		n = s.BatchLimit
	}
	for i := 0; i < n; i++ {
		var p []byte
		for _, b := range msgs[i].Buffers {
			p = append(p, b...)
		}
		var to netip.AddrPort
		if ua, ok := msgs[i].Addr.(*net.UDPAddr); ok {
			to = ua.AddrPort()
		}
		s.datagrams = append(s.datagrams, Datagram{To: to, Payload: p})
		msgs[i].N = len(p)
	}
	return n, nil
}

// WriteBuffers mimics a vectored stream write.
func (s *Socket) WriteBuffers(bufs net.Buffers) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return 0, err
	}
	var p []byte
	for _, b := range bufs {
		p = append(p, b...)
	}
	s.streams = append(s.streams, p)
	return int64(len(p)), nil
}

// Datagrams returns captured datagrams in send order.
func (s *Socket) Datagrams() []Datagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Datagram(nil), s.datagrams...)
}

// Streams returns captured stream writes in order.
func (s *Socket) Streams() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.streams...)
}

// Batches counts WriteBatch calls.
func (s *Socket) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}
