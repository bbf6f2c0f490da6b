// File: candidate/pion.go
// Author: momentics <momentics@gmail.com>
//
// Projections onto pion types for SDP and signalling.

package candidate

import (
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"

	"github.com/momentics/hioload-rtc/tuple"
)

// ComputePriority applies the RFC 8445 formula for a host candidate:
// (2^24)*typePref + (2^8)*localPref + (256 - component).
func ComputePriority(localPreference, component uint16) uint32 {
	typePref := uint32(ice.CandidateTypeHost.Preference())
	return (1<<24)*typePref + (1<<8)*uint32(localPreference) + (256 - uint32(component))
}

// ToWebRTC returns the candidate as a pion ICECandidate for the given component.
func (c Candidate) ToWebRTC(component uint16) webrtc.ICECandidate {
	wc := webrtc.ICECandidate{
		Foundation: c.foundation,
		Priority:   c.priority,
		Address:    c.ip,
		Port:       c.port,
		Typ:        webrtc.ICECandidateTypeHost,
		Component:  component,
		Protocol:   webrtc.ICEProtocolUDP,
	}
	if c.protocol == tuple.ProtocolTCP {
		wc.Protocol = webrtc.ICEProtocolTCP
		wc.TCPType = c.tcpType.String()
	}
	return wc
}

// ToICE builds the pion ice candidate.
func (c Candidate) ToICE(component uint16) (ice.Candidate, error) {
	return c.ToWebRTC(component).ToICE()
}

// SDPAttribute renders the a=candidate value, e.g.
// "candidate:udpcandidate 1 udp 2130706431 203.0.113.9 40000 typ host".
func (c Candidate) SDPAttribute(component uint16) (string, error) {
	ic, err := c.ToICE(component)
	if err != nil {
		return "", err
	}
	return "candidate:" + ic.Marshal(), nil
}
