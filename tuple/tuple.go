// File: tuple/tuple.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport tuple: the (local socket, remote address, protocol) identity of one flow.

package tuple

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"net/netip"
	"strings"

	"github.com/momentics/hioload-rtc/api"
)

// Protocol is the transport protocol of a flow.
type Protocol uint8

const (
	ProtocolUDP Protocol = iota + 1
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// ParseProtocol accepts "udp" or "tcp" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "udp":
		return ProtocolUDP, nil
	case "tcp":
		return ProtocolTCP, nil
	}
	return 0, fmt.Errorf("protocol %q: %w", s, api.ErrInvalidArgument)
}

// Socket is the local end of a flow: a bound UDP socket or a connected TCP socket.
type Socket interface {
	FD() int
	LocalAddr() netip.AddrPort
}

// Tuple is immutable. Rebinding to another remote address means building a new Tuple.
type Tuple struct {
	sock   Socket
	remote netip.AddrPort
	proto  Protocol
}

// New builds a tuple. It performs no I/O.
func New(sock Socket, remote netip.AddrPort, proto Protocol) Tuple {
	return Tuple{sock: sock, remote: remote, proto: proto}
}

func (t Tuple) Socket() Socket             { return t.sock }
func (t Tuple) RemoteAddr() netip.AddrPort { return t.remote }
func (t Tuple) Protocol() Protocol         { return t.proto }

// FD returns the local socket descriptor, or -1 for a tuple without a socket.
func (t Tuple) FD() int {
	if t.sock == nil {
		return -1
	}
	return t.sock.FD()
}

// LocalAddr returns the bound address of the local socket.
func (t Tuple) LocalAddr() netip.AddrPort {
	if t.sock == nil {
		return netip.AddrPort{}
	}
	return t.sock.LocalAddr()
}

// Key returns the comparable identity of the tuple, suitable as a map key.
func (t Tuple) Key() Key {
	return Key{FD: t.FD(), Remote: t.remote, Protocol: t.proto}
}

// Equal reports whether both tuples name the same flow.
func (t Tuple) Equal(o Tuple) bool { return t.Key() == o.Key() }

// Hash is consistent with Equal.
func (t Tuple) Hash() uint64 { return t.Key().Hash() }

func (t Tuple) String() string {
	return fmt.Sprintf("%s %s <-> %s (fd %d)", t.proto, t.LocalAddr(), t.remote, t.FD())
}

// Key is the structural identity of a flow.
type Key struct {
	FD       int
	Remote   netip.AddrPort
	Protocol Protocol
}

// Hash returns a 64-bit FNV-1a hash over fd, remote address, port and protocol.
func (k Key) Hash() uint64 {
	var b [8 + 16 + 2 + 1]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(int64(k.FD)))
	a16 := k.Remote.Addr().As16()
	copy(b[8:24], a16[:])
	binary.BigEndian.PutUint16(b[24:26], k.Remote.Port())
	b[26] = byte(k.Protocol)
	h := fnv.New64a()
	h.Write(b[:])
	return h.Sum64()
}
