package control_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pion/logging"

	"github.com/momentics/hioload-rtc/control"
)

func TestLoggerFactorySetLevel(t *testing.T) {
	var buf bytes.Buffer
	lf := control.NewLoggerFactory(logging.LogLevelWarn, &buf)
	log := lf.NewLogger("engine")

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	lf.SetLevel(logging.LogLevelDebug)
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug not logged after SetLevel: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := control.ParseLevel("WARN"); err != nil || lvl != logging.LogLevelWarn {
		t.Fatalf("ParseLevel = %v, %v", lvl, err)
	}
	if _, err := control.ParseLevel("chatty"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReloadHooks(t *testing.T) {
	var hooks control.ReloadHooks
	var order []int
	hooks.Register(func(*control.Config) { order = append(order, 1) })
	hooks.Register(func(*control.Config) { order = append(order, 2) })
	hooks.TriggerSync(control.Default())
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v", order)
	}

	var wg sync.WaitGroup
	var async control.ReloadHooks
	wg.Add(1)
	async.Register(func(c *control.Config) {
		if c.Workers != 1 {
			t.Errorf("unexpected config %+v", c)
		}
		wg.Done()
	})
	async.Trigger(control.Default())
	wg.Wait()
}

func TestCounters(t *testing.T) {
	c := control.NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add("fallback.sent", 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot()["fallback.sent"]; got != 800 {
		t.Fatalf("counter = %d", got)
	}
	if c.Counter("x") != c.Counter("x") {
		t.Fatal("Counter must return a stable pointer")
	}
}

func TestDumpRoundTrip(t *testing.T) {
	dp := control.NewDebugProbes()
	dp.RegisterProbe("worker.0.slots", func() any { return uint64(7) })
	control.RegisterPlatformProbes(dp)
	c := control.NewCounters()
	c.Add("rejected", 3)

	path := filepath.Join(t.TempDir(), "dump.cbor")
	if err := control.WriteDump(path, dp, c); err != nil {
		t.Fatalf("WriteDump: %v", err)
	}
	data, err := control.EncodeDump(dp, c)
	if err != nil {
		t.Fatalf("EncodeDump: %v", err)
	}
	d, err := control.DecodeDump(data)
	if err != nil {
		t.Fatalf("DecodeDump: %v", err)
	}
	if d.Counters["rejected"] != 3 {
		t.Fatalf("counters = %v", d.Counters)
	}
	if v, ok := d.Probes["worker.0.slots"].(uint64); !ok || v != 7 {
		t.Fatalf("probe = %#v", d.Probes["worker.0.slots"])
	}
	if _, ok := d.Probes["platform.cpus"]; !ok {
		t.Fatal("platform probe missing")
	}
	if d.Time.IsZero() {
		t.Fatal("time not set")
	}
}
