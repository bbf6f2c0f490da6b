// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// ErrWouldBlock is returned by non-blocking reads when no data is queued.
var ErrWouldBlock = errors.New("socket: operation would block")

func rawFD(c syscall.Conn) (int, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if err := rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, err
	}
	return fd, nil
}

func listenConfig() net.ListenConfig {
	return net.ListenConfig{Control: reuseAddr}
}

// UDPSocket is a bound datagram socket.
type UDPSocket struct {
	conn  *net.UDPConn
	fd    int
	local netip.AddrPort
	p4    *ipv4.PacketConn
	p6    *ipv6.PacketConn
}

// ListenUDP binds addr with SO_REUSEADDR.
func ListenUDP(ctx context.Context, addr netip.AddrPort) (*UDPSocket, error) {
	network := "udp6"
	if addr.Addr().Is4() {
		network = "udp4"
	}
	lc := listenConfig()
	pc, err := lc.ListenPacket(ctx, network, addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	s, err := NewUDPSocket(pc.(*net.UDPConn))
	if err != nil {
		pc.Close()
		return nil, err
	}
	return s, nil
}

// NewUDPSocket wraps an already bound connection.
func NewUDPSocket(conn *net.UDPConn) (*UDPSocket, error) {
	fd, err := rawFD(conn)
	if err != nil {
		return nil, fmt.Errorf("udp fd: %w", err)
	}
	local := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	s := &UDPSocket{conn: conn, fd: fd, local: local}
	if local.Addr().Is4() {
		s.p4 = ipv4.NewPacketConn(conn)
	} else {
		s.p6 = ipv6.NewPacketConn(conn)
	}
	return s, nil
}

func (s *UDPSocket) FD() int                   { return s.fd }
func (s *UDPSocket) LocalAddr() netip.AddrPort { return s.local }
func (s *UDPSocket) Conn() *net.UDPConn        { return s.conn }

// WriteBatch sends msgs with one sendmmsg call where the platform supports it.
// It returns how many messages went out.
func (s *UDPSocket) WriteBatch(msgs []ipv4.Message, flags int) (int, error) {
	if s.p4 != nil {
		return s.p4.WriteBatch(msgs, flags)
	}
	return s.p6.WriteBatch(msgs, flags)
}

func (s *UDPSocket) Close() error { return s.conn.Close() }

// TCPServer is a listening stream socket.
type TCPServer struct {
	ln    *net.TCPListener
	fd    int
	local netip.AddrPort
}

// ListenTCP listens on addr with SO_REUSEADDR.
func ListenTCP(ctx context.Context, addr netip.AddrPort) (*TCPServer, error) {
	network := "tcp6"
	if addr.Addr().Is4() {
		network = "tcp4"
	}
	lc := listenConfig()
	l, err := lc.Listen(ctx, network, addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	ln := l.(*net.TCPListener)
	fd, err := rawFD(ln)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("tcp listener fd: %w", err)
	}
	return &TCPServer{ln: ln, fd: fd, local: ln.Addr().(*net.TCPAddr).AddrPort()}, nil
}

func (s *TCPServer) FD() int                   { return s.fd }
func (s *TCPServer) LocalAddr() netip.AddrPort { return s.local }

// Accept takes one pending connection. Call it when FD is readable.
func (s *TCPServer) Accept() (*TCPConn, error) {
	c, err := s.ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn, err := NewTCPConn(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return conn, nil
}

func (s *TCPServer) Close() error { return s.ln.Close() }

// TCPConn is an accepted stream connection.
type TCPConn struct {
	conn   *net.TCPConn
	fd     int
	local  netip.AddrPort
	remote netip.AddrPort
}

// NewTCPConn wraps c and disables Nagle's algorithm.
func NewTCPConn(c *net.TCPConn) (*TCPConn, error) {
	fd, err := rawFD(c)
	if err != nil {
		return nil, fmt.Errorf("tcp fd: %w", err)
	}
	_ = c.SetNoDelay(true)
	return &TCPConn{
		conn:   c,
		fd:     fd,
		local:  c.LocalAddr().(*net.TCPAddr).AddrPort(),
		remote: c.RemoteAddr().(*net.TCPAddr).AddrPort(),
	}, nil
}

func (c *TCPConn) FD() int                    { return c.fd }
func (c *TCPConn) LocalAddr() netip.AddrPort  { return c.local }
func (c *TCPConn) RemoteAddr() netip.AddrPort { return c.remote }

// Write writes p synchronously.
func (c *TCPConn) Write(p []byte) (int, error) { return c.conn.Write(p) }

// WriteBuffers writes all buffers with one writev where possible.
func (c *TCPConn) WriteBuffers(bufs net.Buffers) (int64, error) { return bufs.WriteTo(c.conn) }

func (c *TCPConn) Close() error { return c.conn.Close() }
