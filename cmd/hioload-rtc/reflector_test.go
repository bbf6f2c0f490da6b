//go:build linux

package main

import (
	"net/netip"
	"testing"
	"time"

	"github.com/pion/stun/v3"

	"github.com/momentics/hioload-rtc/tuple"
)

type stubSock struct{}

func (stubSock) FD() int                   { return 4 }
func (stubSock) LocalAddr() netip.AddrPort { return netip.MustParseAddrPort("10.0.0.1:40000") }

func TestSTUNResponderBindingSuccess(t *testing.T) {
	req, err := stun.Build(stun.TransactionID, stun.BindingRequest, stun.Fingerprint)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	from := netip.MustParseAddrPort("203.0.113.5:51000")

	var r stunResponder
	raw := r.respond(req.Raw, from)
	if raw == nil {
		t.Fatal("no response to binding request")
	}
	resp := &stun.Message{Raw: append([]byte(nil), raw...)}
	if err := resp.Decode(); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != stun.BindingSuccess || resp.TransactionID != req.TransactionID {
		t.Fatalf("type=%s tid match=%v", resp.Type, resp.TransactionID == req.TransactionID)
	}
	var xor stun.XORMappedAddress
	if err := xor.GetFrom(resp); err != nil {
		t.Fatalf("xor-mapped-address: %v", err)
	}
	if xor.Port != 51000 || !xor.IP.Equal(from.Addr().AsSlice()) {
		t.Fatalf("mapped = %s", xor)
	}
	if err := stun.Fingerprint.Check(resp); err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
}

func TestSTUNResponderIgnoresNonRequests(t *testing.T) {
	ind, err := stun.Build(stun.TransactionID, stun.NewType(stun.MethodBinding, stun.ClassIndication))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var r stunResponder
	if r.respond(ind.Raw, netip.MustParseAddrPort("192.0.2.1:1")) != nil {
		t.Fatal("answered an indication")
	}
	if r.respond([]byte{0, 1, 2}, netip.MustParseAddrPort("192.0.2.1:1")) != nil {
		t.Fatal("answered garbage")
	}
}

func TestFlowTableSweep(t *testing.T) {
	ft := newFlowTable()
	now := time.Now()
	a := tuple.New(stubSock{}, netip.MustParseAddrPort("192.0.2.1:1000"), tuple.ProtocolUDP)
	b := tuple.New(stubSock{}, netip.MustParseAddrPort("192.0.2.2:1000"), tuple.ProtocolUDP)

	if !ft.seen(a, now.Add(-time.Hour)) || !ft.seen(b, now) {
		t.Fatal("first sighting must create the flow")
	}
	if ft.seen(b, now) {
		t.Fatal("second sighting created a new flow")
	}
	if n := ft.sweep(now, time.Minute); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if _, ok := ft.t.Get(a); ok {
		t.Fatal("idle flow survived")
	}
	if f, ok := ft.t.Get(b); !ok || f.packets.Load() != 2 {
		t.Fatalf("active flow = %v, %v", f, ok)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HIOLOAD_RTC_CONFIG", "")
	cfg, err := loadConfig(options{logLevel: "debug", noUring: true, dumpPath: "/tmp/x.cbor"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Engine.Enabled || cfg.Diagnostics.DumpPath != "/tmp/x.cbor" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if _, err := loadConfig(options{logLevel: "shout"}); err == nil {
		t.Fatal("bad level accepted")
	}
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-c", "rtc.toml", "--no-uring", "--log-level=warn"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.configPath != "rtc.toml" || !o.noUring || o.logLevel != "warn" {
		t.Fatalf("options = %+v", o)
	}
}
