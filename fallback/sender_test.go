package fallback_test

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"

	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/fake"
	"github.com/momentics/hioload-rtc/fallback"
	"github.com/momentics/hioload-rtc/tuple"
)

var (
	local  = netip.MustParseAddrPort("10.0.0.1:40000")
	peerA  = netip.MustParseAddrPort("192.0.2.7:5000")
	peerB  = netip.MustParseAddrPort("[2001:db8::1]:6000")
	errNet = errors.New("network unreachable")
)

type result struct{ calls, ok int }

func (r *result) cb(sent bool) {
	r.calls++
	if sent {
		r.ok++
	}
}

func TestSendToBatchesUntilFlush(t *testing.T) {
	counters := control.NewCounters()
	s := fallback.New(nil, counters)
	sock := fake.NewSocket(7, local)
	var r result

	payload := []byte("hello")
	s.SendTo(tuple.New(sock, peerA, tuple.ProtocolUDP), payload, r.cb)
	s.SendTo(tuple.New(sock, peerB, tuple.ProtocolUDP), []byte("world"), r.cb)
	payload[0] = 'X' // the queued copy must not change

	if s.Pending() != 2 || r.calls != 0 || sock.Batches() != 0 {
		t.Fatalf("sent before Flush: pending=%d calls=%d batches=%d", s.Pending(), r.calls, sock.Batches())
	}
	s.Flush()
	if sock.Batches() != 1 {
		t.Fatalf("batches = %d, want 1", sock.Batches())
	}
	got := sock.Datagrams()
	if len(got) != 2 || got[0].To != peerA || !bytes.Equal(got[0].Payload, []byte("hello")) || got[1].To != peerB {
		t.Fatalf("datagrams = %+v", got)
	}
	if r.calls != 2 || r.ok != 2 || s.Pending() != 0 {
		t.Fatalf("callbacks calls=%d ok=%d pending=%d", r.calls, r.ok, s.Pending())
	}
	if snap := counters.Snapshot(); snap["fallback.sent"] != 2 {
		t.Fatalf("counters = %v", snap)
	}
}

func TestSendToPartialBatch(t *testing.T) {
	s := fallback.New(nil, nil)
	sock := fake.NewSocket(7, local)
	sock.BatchLimit = 2
	var r result
	tp := tuple.New(sock, peerA, tuple.ProtocolUDP)
	for i := 0; i < 5; i++ {
		s.SendTo(tp, []byte{byte(i)}, r.cb)
	}
	s.Flush()
	if sock.Batches() != 3 || len(sock.Datagrams()) != 5 || r.ok != 5 {
		t.Fatalf("batches=%d datagrams=%d ok=%d", sock.Batches(), len(sock.Datagrams()), r.ok)
	}
}

func TestSendToErrorFailsRemainder(t *testing.T) {
	s := fallback.New(nil, nil)
	sock := fake.NewSocket(7, local)
	sock.Err = errNet
	var r result
	tp := tuple.New(sock, peerA, tuple.ProtocolUDP)
	s.SendTo(tp, []byte("a"), r.cb)
	s.SendTo(tp, []byte("b"), r.cb)
	s.Flush()
	if r.calls != 2 || r.ok != 0 {
		t.Fatalf("calls=%d ok=%d", r.calls, r.ok)
	}
	// the socket recovers; nothing stale is resent
	s.Flush()
	if len(sock.Datagrams()) != 0 {
		t.Fatalf("stale datagrams resent: %+v", sock.Datagrams())
	}
}

func TestSendToFlushesFullBatch(t *testing.T) {
	s := fallback.New(nil, nil)
	sock := fake.NewSocket(7, local)
	tp := tuple.New(sock, peerA, tuple.ProtocolUDP)
	for i := 0; i < fallback.DefaultMaxBatch; i++ {
		s.SendTo(tp, []byte{1}, nil)
	}
	if sock.Batches() != 1 || s.Pending() != 0 {
		t.Fatalf("full batch not flushed: batches=%d pending=%d", sock.Batches(), s.Pending())
	}
}

func TestWriteIsImmediate(t *testing.T) {
	s := fallback.New(nil, nil)
	sock := fake.NewSocket(9, local)
	var r result
	tp := tuple.New(sock, peerA, tuple.ProtocolTCP)
	s.Write(tp, []byte{0, 3}, []byte("abc"), r.cb)
	if r.calls != 1 || r.ok != 1 {
		t.Fatalf("calls=%d ok=%d", r.calls, r.ok)
	}
	streams := sock.Streams()
	if len(streams) != 1 || !bytes.Equal(streams[0], []byte{0, 3, 'a', 'b', 'c'}) {
		t.Fatalf("streams = %v", streams)
	}

	sock.Err = errNet
	s.Write(tp, []byte("x"), nil, r.cb)
	if r.calls != 2 || r.ok != 1 {
		t.Fatalf("failed write reported as sent: calls=%d ok=%d", r.calls, r.ok)
	}
}

type plainSocket struct{}

func (plainSocket) FD() int                   { return 3 }
func (plainSocket) LocalAddr() netip.AddrPort { return local }

func TestUnsupportedSocketFailsInline(t *testing.T) {
	s := fallback.New(nil, nil)
	var r result
	s.SendTo(tuple.New(plainSocket{}, peerA, tuple.ProtocolUDP), []byte("a"), r.cb)
	s.Write(tuple.New(plainSocket{}, peerA, tuple.ProtocolTCP), []byte("a"), nil, r.cb)
	if r.calls != 2 || r.ok != 0 {
		t.Fatalf("calls=%d ok=%d", r.calls, r.ok)
	}
}

func TestForgetFailsQueued(t *testing.T) {
	s := fallback.New(nil, nil)
	sock := fake.NewSocket(7, local)
	var r result
	s.SendTo(tuple.New(sock, peerA, tuple.ProtocolUDP), []byte("a"), r.cb)
	s.Forget(7)
	s.Flush()
	if r.calls != 1 || r.ok != 0 || sock.Batches() != 0 {
		t.Fatalf("calls=%d ok=%d batches=%d", r.calls, r.ok, sock.Batches())
	}
}
