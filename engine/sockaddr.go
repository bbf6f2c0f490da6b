// File: engine/sockaddr.go
// Author: momentics <momentics@gmail.com>
//
// Raw Linux sockaddr encoding for sendto destinations.

package engine

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strconv"

	"github.com/momentics/hioload-rtc/pool"
)

const (
	afInet  = 2
	afInet6 = 10

	sizeofSockaddrInet4 = 16
	sizeofSockaddrInet6 = 28
)

// encodeSockaddr writes ap as sockaddr_in or sockaddr_in6 and returns the length.
func encodeSockaddr(dst *[pool.SockaddrSize]byte, ap netip.AddrPort) int {
	*dst = [pool.SockaddrSize]byte{}
	addr := ap.Addr()
	if addr.Is4() {
		binary.NativeEndian.PutUint16(dst[0:2], afInet)
		binary.BigEndian.PutUint16(dst[2:4], ap.Port())
		a4 := addr.As4()
		copy(dst[4:8], a4[:])
		return sizeofSockaddrInet4
	}
	binary.NativeEndian.PutUint16(dst[0:2], afInet6)
	binary.BigEndian.PutUint16(dst[2:4], ap.Port())
	a16 := addr.As16()
	copy(dst[8:24], a16[:])
	binary.NativeEndian.PutUint32(dst[24:28], scopeID(addr.Zone()))
	return sizeofSockaddrInet6
}

func scopeID(zone string) uint32 {
	if zone == "" {
		return 0
	}
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	return 0
}
