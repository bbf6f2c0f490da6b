// File: candidate/candidate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Local ICE candidates derived from bound sockets.

package candidate

import (
	"net/netip"

	"github.com/momentics/hioload-rtc/tuple"
)

// Foundations group candidates by base transport.
const (
	FoundationUDP = "udpcandidate"
	FoundationTCP = "tcpcandidate"
)

// Type is the ICE candidate type. Only host candidates are produced.
type Type uint8

const TypeHost Type = 1

func (t Type) String() string {
	if t == TypeHost {
		return "host"
	}
	return "unknown"
}

// TCPType is the RFC 6544 role of a TCP candidate.
type TCPType uint8

const (
	TCPTypeNone TCPType = iota
	TCPTypePassive
)

func (t TCPType) String() string {
	if t == TCPTypePassive {
		return "passive"
	}
	return ""
}

// Bound is a socket with a local address: a bound UDP socket or a listening TCP server.
type Bound interface {
	LocalAddr() netip.AddrPort
}

// Candidate is immutable and safe to share between goroutines.
type Candidate struct {
	foundation string
	priority   uint32
	ip         string
	protocol   tuple.Protocol
	port       uint16
	typ        Type
	tcpType    TCPType
}

// NewUDP describes a bound UDP socket. A non-empty announcedAddress replaces the
// bound address verbatim; its reachability is not checked.
func NewUDP(sock Bound, priority uint32, announcedAddress string) Candidate {
	c := fromBound(sock, priority, announcedAddress)
	c.foundation = FoundationUDP
	c.protocol = tuple.ProtocolUDP
	return c
}

// NewTCP describes a listening TCP server as a passive candidate.
func NewTCP(server Bound, priority uint32, announcedAddress string) Candidate {
	c := fromBound(server, priority, announcedAddress)
	c.foundation = FoundationTCP
	c.protocol = tuple.ProtocolTCP
	c.tcpType = TCPTypePassive
	return c
}

func fromBound(b Bound, priority uint32, announced string) Candidate {
	local := b.LocalAddr()
	ip := announced
	if ip == "" {
		ip = local.Addr().String()
	}
	return Candidate{
		priority: priority,
		ip:       ip,
		port:     local.Port(),
		typ:      TypeHost,
	}
}

func (c Candidate) Foundation() string       { return c.foundation }
func (c Candidate) Priority() uint32         { return c.priority }
func (c Candidate) IP() string               { return c.ip }
func (c Candidate) Protocol() tuple.Protocol { return c.protocol }
func (c Candidate) Port() uint16             { return c.port }
func (c Candidate) Type() Type               { return c.typ }

// TCPType is TCPTypeNone for UDP candidates.
func (c Candidate) TCPType() TCPType { return c.tcpType }

// Info is the serialisable field set of a candidate.
type Info struct {
	Foundation string `cbor:"foundation" json:"foundation" yaml:"foundation"`
	Priority   uint32 `cbor:"priority" json:"priority" yaml:"priority"`
	IP         string `cbor:"ip" json:"ip" yaml:"ip"`
	Protocol   string `cbor:"protocol" json:"protocol" yaml:"protocol"`
	Port       uint16 `cbor:"port" json:"port" yaml:"port"`
	Type       string `cbor:"type" json:"type" yaml:"type"`
	TCPType    string `cbor:"tcpType,omitempty" json:"tcpType,omitempty" yaml:"tcpType,omitempty"`
}

// Info projects the candidate for diagnostics dumps. TCPType is set only for TCP.
func (c Candidate) Info() Info {
	info := Info{
		Foundation: c.foundation,
		Priority:   c.priority,
		IP:         c.ip,
		Protocol:   c.protocol.String(),
		Port:       c.port,
		Type:       c.typ.String(),
	}
	if c.protocol == tuple.ProtocolTCP {
		info.TCPType = c.tcpType.String()
	}
	return info
}
