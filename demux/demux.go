// Package demux classifies packets arriving on a shared media port.
// Author: momentics <momentics@gmail.com>
//
// Classification follows the first-byte ranges of RFC 7983 with the RTP/RTCP
// split of RFC 5761. STUN is confirmed with the magic cookie check.
package demux

import "github.com/pion/stun/v3"

// Kind is the protocol a packet belongs to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSTUN
	KindDTLS
	KindRTP
	KindRTCP
)

func (k Kind) String() string {
	switch k {
	case KindSTUN:
		return "stun"
	case KindDTLS:
		return "dtls"
	case KindRTP:
		return "rtp"
	case KindRTCP:
		return "rtcp"
	default:
		return "unknown"
	}
}

// Classify inspects b without copying it.
func Classify(b []byte) Kind {
	if len(b) == 0 {
		return KindUnknown
	}
	switch first := b[0]; {
	case first <= 3:
		if stun.IsMessage(b) {
			return KindSTUN
		}
	case first >= 20 && first <= 63:
		if len(b) >= 13 {
			return KindDTLS
		}
	case first >= 128 && first <= 191:
		if len(b) < 2 {
			return KindUnknown
		}
		// RTCP packet types 192..223 occupy the whole second byte (no marker bit).
		if pt := b[1]; pt >= 192 && pt <= 223 {
			if len(b) >= 4 {
				return KindRTCP
			}
			return KindUnknown
		}
		if len(b) >= 12 {
			return KindRTP
		}
	}
	return KindUnknown
}
