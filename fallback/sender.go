// File: fallback/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fallback

import (
	"net"
	"sync/atomic"

	"github.com/pion/logging"
	"golang.org/x/net/ipv4"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/pool"
	"github.com/momentics/hioload-rtc/tuple"
)

// DefaultMaxBatch bounds messages per sendmmsg call.
const DefaultMaxBatch = 64

// BatchWriter is implemented by datagram sockets able to send several messages at once.
type BatchWriter interface {
	WriteBatch(msgs []ipv4.Message, flags int) (int, error)
}

// BuffersWriter is implemented by stream sockets accepting vectored writes.
type BuffersWriter interface {
	WriteBuffers(bufs net.Buffers) (int64, error)
}

type pending struct {
	d    *pool.Datagram
	to   *net.UDPAddr
	cb   api.OnSent
	bufs [1][]byte
}

type batch struct {
	w    BatchWriter
	pend []pending
	msgs []ipv4.Message
}

// Sender queues datagrams until Flush and writes streams inline.
type Sender struct {
	log      logging.LeveledLogger
	bufs     *pool.SyncPool[*pool.Datagram]
	maxBatch int

	batches map[int]*batch
	order   []*batch

	sent   *atomic.Int64
	failed *atomic.Int64
}

// New creates a sender. counters may be nil.
func New(lf logging.LoggerFactory, counters *control.Counters) *Sender {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	if counters == nil {
		counters = control.NewCounters()
	}
	return &Sender{
		log:      lf.NewLogger("fallback"),
		bufs:     pool.NewDatagramPool(),
		maxBatch: DefaultMaxBatch,
		batches:  make(map[int]*batch),
		sent:     counters.Counter("fallback.sent"),
		failed:   counters.Counter("fallback.failed"),
	}
}

// SendTo copies payload and queues it for t's remote address. cb runs during
// Flush, or immediately when the socket cannot batch.
func (s *Sender) SendTo(t tuple.Tuple, payload []byte, cb api.OnSent) {
	w, ok := t.Socket().(BatchWriter)
	if !ok || !t.RemoteAddr().IsValid() {
		s.log.Errorf("cannot send datagram on %s", t)
		s.done(cb, false)
		return
	}
	b := s.batches[t.FD()]
	if b == nil {
		b = &batch{w: w}
		s.batches[t.FD()] = b
		s.order = append(s.order, b)
	}
	d := s.bufs.Get()
	d.Assign(payload)
	b.pend = append(b.pend, pending{d: d, to: net.UDPAddrFromAddrPort(t.RemoteAddr()), cb: cb})
	if len(b.pend) >= s.maxBatch {
		s.flushBatch(b)
	}
}

// Write sends p1 followed by p2 on t's stream socket and reports the result through cb
// before returning.
func (s *Sender) Write(t tuple.Tuple, p1, p2 []byte, cb api.OnSent) {
	w, ok := t.Socket().(BuffersWriter)
	if !ok {
		s.log.Errorf("cannot write stream on %s", t)
		s.done(cb, false)
		return
	}
	bufs := net.Buffers{p1}
	if len(p2) > 0 {
		bufs = append(bufs, p2)
	}
	if _, err := w.WriteBuffers(bufs); err != nil {
		s.log.Warnf("write to %s failed: %v", t, err)
		s.done(cb, false)
		return
	}
	s.done(cb, true)
}

// Flush sends every queued datagram, one batch per socket in first-use order.
func (s *Sender) Flush() {
	for _, b := range s.order {
		s.flushBatch(b)
	}
}

// Pending counts queued datagrams.
func (s *Sender) Pending() int {
	n := 0
	for _, b := range s.order {
		n += len(b.pend)
	}
	return n
}

func (s *Sender) flushBatch(b *batch) {
	if len(b.pend) == 0 {
		return
	}
	b.msgs = b.msgs[:0]
	for i := range b.pend {
		p := &b.pend[i]
		p.bufs[0] = p.d.B
		b.msgs = append(b.msgs, ipv4.Message{Buffers: p.bufs[:], Addr: p.to})
	}

	off := 0
	for off < len(b.msgs) {
		n, err := b.w.WriteBatch(b.msgs[off:], 0)
		if err != nil {
			s.log.Warnf("sendmmsg failed after %d of %d messages: %v", off, len(b.msgs), err)
			break
		}
		if n == 0 {
			break
		}
		off += n
	}

	// take the pending list first: callbacks may queue more sends
	pend := b.pend
	b.pend = nil
	for i := range pend {
		s.done(pend[i].cb, i < off)
		s.bufs.Put(pend[i].d)
		pend[i] = pending{}
	}
	if b.pend == nil {
		b.pend = pend[:0]
	}
}

func (s *Sender) done(cb api.OnSent, sent bool) {
	if sent {
		s.sent.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cb != nil {
		cb(sent)
	}
}

// Forget drops the batch for fd, failing anything still queued. Call it before
// the socket is closed so a reused descriptor starts clean.
func (s *Sender) Forget(fd int) {
	b := s.batches[fd]
	if b == nil {
		return
	}
	delete(s.batches, fd)
	for i, o := range s.order {
		if o == b {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, p := range b.pend {
		s.done(p.cb, false)
		s.bufs.Put(p.d)
	}
	b.pend = nil
}
