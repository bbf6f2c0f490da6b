// File: engine/stats.go
// Author: momentics <momentics@gmail.com>

package engine

// Stats is the diagnostics snapshot of an engine. Counters only grow.
type Stats struct {
	SQEProcessCount   uint64 `cbor:"sqeProcessCount" json:"sqeProcessCount"`
	SQEMissCount      uint64 `cbor:"sqeMissCount" json:"sqeMissCount"`
	UserDataMissCount uint64 `cbor:"userDataMissCount" json:"userDataMissCount"`
	SubmitRejectCount uint64 `cbor:"submitRejectCount" json:"submitRejectCount"`
	InFlight          int64  `cbor:"inFlight" json:"inFlight"`
	Capacity          int    `cbor:"capacity" json:"capacity"`
}

// Stats may be called from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		SQEProcessCount:   e.sqeProcessCount.Load(),
		SQEMissCount:      e.sqeMissCount.Load(),
		UserDataMissCount: e.userDataMissCount.Load(),
		SubmitRejectCount: e.submitRejectCount.Load(),
		InFlight:          e.inFlight.Load(),
		Capacity:          e.slots.Cap(),
	}
}
