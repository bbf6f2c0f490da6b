//go:build linux

package socket_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/momentics/hioload-rtc/socket"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

func TestUDPSocketBatchAndRecv(t *testing.T) {
	ctx := context.Background()
	a, err := socket.ListenUDP(ctx, loopback)
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer a.Close()
	b, err := socket.ListenUDP(ctx, loopback)
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer b.Close()

	if a.FD() < 0 || a.LocalAddr().Port() == 0 {
		t.Fatalf("socket not bound: fd=%d addr=%v", a.FD(), a.LocalAddr())
	}
	if _, _, err := b.RecvFrom(make([]byte, 16)); !errors.Is(err, socket.ErrWouldBlock) {
		t.Fatalf("empty RecvFrom err = %v", err)
	}

	to := net.UDPAddrFromAddrPort(b.LocalAddr())
	msgs := []ipv4.Message{
		{Buffers: [][]byte{[]byte("one")}, Addr: to},
		{Buffers: [][]byte{[]byte("two")}, Addr: to},
	}
	n, err := a.WriteBatch(msgs, 0)
	if err != nil || n != 2 {
		t.Fatalf("WriteBatch = %d, %v", n, err)
	}

	buf := make([]byte, 16)
	var got []string
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		m, from, err := b.RecvFrom(buf)
		if errors.Is(err, socket.ErrWouldBlock) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("RecvFrom: %v", err)
		}
		if from != a.LocalAddr() {
			t.Errorf("from = %v, want %v", from, a.LocalAddr())
		}
		got = append(got, string(buf[:m]))
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("received %v", got)
	}
}

func TestTCPAcceptAndRead(t *testing.T) {
	srv, err := socket.ListenTCP(context.Background(), loopback)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer srv.Close()

	client, err := net.Dial("tcp4", srv.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn, err := srv.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer conn.Close()
	if conn.RemoteAddr().String() != client.LocalAddr().String() {
		t.Fatalf("remote = %v, client = %v", conn.RemoteAddr(), client.LocalAddr())
	}

	client.Write([]byte("ping"))
	buf := make([]byte, 8)
	var n int
	for i := 0; i < 200; i++ {
		n, err = conn.ReadNonblock(buf)
		if !errors.Is(err, socket.ErrWouldBlock) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("ReadNonblock = %q, %v", buf[:n], err)
	}

	if _, err := conn.WriteBuffers(net.Buffers{[]byte{0, 4}, []byte("pong")}); err != nil {
		t.Fatalf("WriteBuffers: %v", err)
	}
	reply := make([]byte, 6)
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(client, reply); err != nil || string(reply[2:]) != "pong" {
		t.Fatalf("client read %q, %v", reply, err)
	}

	client.Close()
	for i := 0; i < 200; i++ {
		_, err = conn.ReadNonblock(buf)
		if !errors.Is(err, socket.ErrWouldBlock) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("read after close err = %v, want EOF", err)
	}
}
