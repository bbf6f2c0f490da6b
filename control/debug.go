// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.

package control

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// DebugProbes holds registered probe functions. It implements api.Debug.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any previous one.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	// probes may take their own locks; run them outside ours
	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

// Dump is the document written by WriteDump.
type Dump struct {
	Time     time.Time        `cbor:"time"`
	Probes   map[string]any   `cbor:"probes"`
	Counters map[string]int64 `cbor:"counters,omitempty"`
}

var dumpEncMode cbor.EncMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	dumpEncMode, err = opts.EncMode()
	if err != nil {
		panic("control: cbor encoder init: " + err.Error())
	}
}

// EncodeDump serializes probes and counters as deterministic CBOR.
func EncodeDump(dp *DebugProbes, counters *Counters) ([]byte, error) {
	d := Dump{Time: time.Now().UTC(), Probes: dp.DumpState()}
	if counters != nil {
		d.Counters = counters.Snapshot()
	}
	return dumpEncMode.Marshal(d)
}

// DecodeDump parses a document produced by EncodeDump.
func DecodeDump(data []byte) (*Dump, error) {
	var d Dump
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return &d, nil
}

// WriteDump atomically replaces path with a fresh dump.
func WriteDump(path string, dp *DebugProbes, counters *Counters) error {
	data, err := EncodeDump(dp, counters)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dump-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
