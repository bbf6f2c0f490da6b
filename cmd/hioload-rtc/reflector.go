//go:build linux

// File: cmd/hioload-rtc/reflector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Media reflector: answers STUN binding requests and echoes every other
// datagram or RFC 4571 frame back to its sender through the worker's Sender.

package main

import (
	"encoding/binary"
	"errors"
	"io"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/pion/stun/v3"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/demux"
	"github.com/momentics/hioload-rtc/pool"
	"github.com/momentics/hioload-rtc/socket"
	"github.com/momentics/hioload-rtc/tuple"
	"github.com/momentics/hioload-rtc/worker"
)

var errWriteFailed = errors.New("write failed")

// maxReadsPerWake bounds datagrams consumed per readiness callback.
const maxReadsPerWake = 64

type flow struct {
	packets  atomic.Uint64
	lastSeen atomic.Int64
}

func (f *flow) touch(now time.Time) {
	f.packets.Add(1)
	f.lastSeen.Store(now.UnixNano())
}

// flowTable tracks peers across all workers.
type flowTable struct {
	t *tuple.Table[*flow]
}

func newFlowTable() *flowTable {
	return &flowTable{t: tuple.NewTable[*flow](64)}
}

func (ft *flowTable) seen(tp tuple.Tuple, now time.Time) (created bool) {
	f, loaded := ft.t.LoadOrStore(tp, func() *flow { return new(flow) })
	f.touch(now)
	return !loaded
}

// sweep drops flows idle for longer than idle and returns how many it removed.
func (ft *flowTable) sweep(now time.Time, idle time.Duration) int {
	var stale []tuple.Key
	ft.t.Range(func(k tuple.Key, f *flow) bool {
		if now.Sub(time.Unix(0, f.lastSeen.Load())) > idle {
			stale = append(stale, k)
		}
		return true
	})
	for _, k := range stale {
		ft.t.DeleteKey(k)
	}
	return len(stale)
}

type reflectStats struct {
	stun    *atomic.Int64
	echoed  *atomic.Int64
	dropped *atomic.Int64
}

func newReflectStats(c *control.Counters) reflectStats {
	return reflectStats{
		stun:    c.Counter("reflector.stun"),
		echoed:  c.Counter("reflector.echoed"),
		dropped: c.Counter("reflector.dropped"),
	}
}

// stunResponder builds binding success responses into a reused message.
type stunResponder struct {
	req  stun.Message
	resp stun.Message
}

// respond returns the encoded response for a binding request, or nil.
func (s *stunResponder) respond(p []byte, from netip.AddrPort) []byte {
	s.req.Raw = append(s.req.Raw[:0], p...)
	if err := s.req.Decode(); err != nil || s.req.Type != stun.BindingRequest {
		return nil
	}
	s.resp.Reset()
	err := s.resp.Build(
		stun.NewTransactionIDSetter(s.req.TransactionID),
		stun.BindingSuccess,
		&stun.XORMappedAddress{IP: from.Addr().Unmap().AsSlice(), Port: int(from.Port())},
		stun.Fingerprint,
	)
	if err != nil {
		return nil
	}
	return s.resp.Raw
}

type udpReflector struct {
	w     *worker.Worker
	sock  *socket.UDPSocket
	log   logging.LeveledLogger
	flows *flowTable
	stats reflectStats
	stun  stunResponder
	buf   [pool.SlotSize]byte
}

func startUDPReflector(w *worker.Worker, sock *socket.UDPSocket, lf logging.LoggerFactory, flows *flowTable, counters *control.Counters) error {
	r := &udpReflector{
		w:     w,
		sock:  sock,
		log:   lf.NewLogger("reflector"),
		flows: flows,
		stats: newReflectStats(counters),
	}
	if err := w.Reactor().Register(uintptr(sock.FD()), api.EventRead, r.onReadable); err != nil {
		return err
	}
	w.AtExit(func() {
		_ = w.Reactor().Unregister(uintptr(sock.FD()))
		w.Sender().Flush()
		w.Sender().Forget(sock.FD())
		_ = sock.Close()
	})
	r.log.Infof("udp %s served by worker %d", sock.LocalAddr(), w.ID())
	return nil
}

func (r *udpReflector) onReadable(uintptr, api.EventType) {
	now := time.Now()
	for i := 0; i < maxReadsPerWake; i++ {
		n, from, err := r.sock.RecvFrom(r.buf[:])
		if errors.Is(err, socket.ErrWouldBlock) {
			return
		}
		if err != nil {
			r.log.Warnf("recvfrom on %s: %v", r.sock.LocalAddr(), err)
			return
		}
		r.handle(r.buf[:n], from, now)
	}
}

func (r *udpReflector) handle(p []byte, from netip.AddrPort, now time.Time) {
	tp := tuple.New(r.sock, from, tuple.ProtocolUDP)
	if r.flows.seen(tp, now) {
		r.log.Debugf("new flow %s", tp)
	}
	switch demux.Classify(p) {
	case demux.KindSTUN:
		resp := r.stun.respond(p, from)
		if resp == nil {
			r.stats.dropped.Add(1)
			return
		}
		r.stats.stun.Add(1)
		r.w.Sender().SendTo(tp, resp, nil)
	case demux.KindDTLS, demux.KindRTP, demux.KindRTCP:
		r.stats.echoed.Add(1)
		r.w.Sender().SendTo(tp, p, nil)
	default:
		r.stats.dropped.Add(1)
	}
}

type tcpListener struct {
	w        *worker.Worker
	srv      *socket.TCPServer
	lf       logging.LoggerFactory
	log      logging.LeveledLogger
	flows    *flowTable
	counters *control.Counters
}

func startTCPListener(w *worker.Worker, srv *socket.TCPServer, lf logging.LoggerFactory, flows *flowTable, counters *control.Counters) error {
	l := &tcpListener{w: w, srv: srv, lf: lf, log: lf.NewLogger("reflector"), flows: flows, counters: counters}
	if err := w.Reactor().Register(uintptr(srv.FD()), api.EventRead, l.onAcceptable); err != nil {
		return err
	}
	w.AtExit(func() {
		_ = w.Reactor().Unregister(uintptr(srv.FD()))
		_ = srv.Close()
	})
	l.log.Infof("tcp %s served by worker %d", srv.LocalAddr(), w.ID())
	return nil
}

// onAcceptable accepts exactly one connection: readiness guarantees it will not block.
func (l *tcpListener) onAcceptable(uintptr, api.EventType) {
	conn, err := l.srv.Accept()
	if err != nil {
		l.log.Warnf("accept on %s: %v", l.srv.LocalAddr(), err)
		return
	}
	c := &tcpReflector{
		w:     l.w,
		conn:  conn,
		tp:    tuple.New(conn, conn.RemoteAddr(), tuple.ProtocolTCP),
		log:   l.log,
		flows: l.flows,
		stats: newReflectStats(l.counters),
	}
	if err := l.w.Reactor().Register(uintptr(conn.FD()), api.EventRead, c.onReadable); err != nil {
		l.log.Errorf("register %s: %v", c.tp, err)
		conn.Close()
		return
	}
	l.flows.seen(c.tp, time.Now())
	l.log.Debugf("accepted %s", c.tp)
}

// tcpReflector echoes RFC 4571 frames: a 16-bit big-endian length then the packet.
type tcpReflector struct {
	w      *worker.Worker
	conn   *socket.TCPConn
	tp     tuple.Tuple
	log    logging.LeveledLogger
	flows  *flowTable
	stats  reflectStats
	stun   stunResponder
	buf    []byte
	closed bool
}

func (c *tcpReflector) onReadable(uintptr, api.EventType) {
	var chunk [4096]byte
	n, err := c.conn.ReadNonblock(chunk[:])
	switch {
	case errors.Is(err, socket.ErrWouldBlock):
		return
	case errors.Is(err, io.EOF):
		c.close(nil)
		return
	case err != nil:
		c.close(err)
		return
	}
	c.buf = append(c.buf, chunk[:n]...)
	c.flows.seen(c.tp, time.Now())

	for len(c.buf) >= 2 {
		size := int(binary.BigEndian.Uint16(c.buf))
		if len(c.buf) < 2+size {
			break
		}
		c.frame(c.buf[2 : 2+size])
		c.buf = c.buf[2+size:]
	}
	if len(c.buf) == 0 {
		c.buf = nil
	}
}

func (c *tcpReflector) frame(p []byte) {
	out := p
	if demux.Classify(p) == demux.KindSTUN {
		if out = c.stun.respond(p, c.tp.RemoteAddr()); out == nil {
			c.stats.dropped.Add(1)
			return
		}
		c.stats.stun.Add(1)
	} else {
		c.stats.echoed.Add(1)
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(out)))
	c.w.Sender().Write(c.tp, hdr[:], out, func(sent bool) {
		if !sent {
			// callbacks may run inside completion dispatch; close from the task queue
			if err := c.w.Post(func() { c.close(errWriteFailed) }); err != nil {
				c.close(errWriteFailed)
			}
		}
	})
}

func (c *tcpReflector) close(err error) {
	if c.closed {
		return
	}
	c.closed = true
	if err != nil {
		c.log.Warnf("closing %s: %v", c.tp, err)
	} else {
		c.log.Debugf("peer closed %s", c.tp)
	}
	_ = c.w.Reactor().Unregister(uintptr(c.conn.FD()))
	// queued writes must reach the kernel before the descriptor goes away
	c.w.Sender().Flush()
	c.w.Sender().Forget(c.conn.FD())
	c.flows.t.Delete(c.tp)
	_ = c.conn.Close()
}
