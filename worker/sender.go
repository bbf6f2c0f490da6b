// File: worker/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package worker

import (
	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/engine"
	"github.com/momentics/hioload-rtc/fallback"
	"github.com/momentics/hioload-rtc/tuple"
)

// Sender delivers payloads for one worker thread. Every accepted call reports
// its outcome through cb exactly once.
type Sender interface {
	// SendTo sends one datagram to t's remote address.
	SendTo(t tuple.Tuple, payload []byte, cb api.OnSent)
	// Write sends p1 then p2 on t's connected stream.
	Write(t tuple.Tuple, p1, p2 []byte, cb api.OnSent)
	// Flush pushes queued work out. The worker loop calls it once per iteration.
	Flush()
	// Forget drops state kept for descriptor fd, failing anything still queued.
	// Call it before closing a socket.
	Forget(fd int)
}

// NewSender returns fb itself when eng is nil, otherwise a sender that tries
// eng first and falls back to fb whenever eng declines.
func NewSender(eng *engine.Engine, fb *fallback.Sender) Sender {
	if eng == nil {
		return fb
	}
	return &engineSender{eng: eng, fb: fb}
}

type engineSender struct {
	eng *engine.Engine
	fb  *fallback.Sender
}

func (s *engineSender) SendTo(t tuple.Tuple, payload []byte, cb api.OnSent) {
	if s.eng.PrepareSend(t.FD(), payload, t.RemoteAddr(), cb) {
		return
	}
	s.fb.SendTo(t, payload, cb)
}

func (s *engineSender) Write(t tuple.Tuple, p1, p2 []byte, cb api.OnSent) {
	if s.eng.PrepareWrite(t.FD(), p1, p2, cb) {
		return
	}
	s.fb.Write(t, p1, p2, cb)
}

func (s *engineSender) Flush() {
	if s.eng.IsActive() {
		s.eng.Submit()
	}
	s.fb.Flush()
}

func (s *engineSender) Forget(fd int) { s.fb.Forget(fd) }
