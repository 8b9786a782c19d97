package sender

import (
	"math"

	"github.com/iLukSbr/reliable-udp-ftp/internal/config"
)

// state is the sender's sliding-window/congestion-control state.
// lastAck uses the signed sentinel -1 for "no ACK yet" so the on-wire
// 0xFFFFFFFF sentinel is never mistaken for a huge valid ack.
type state struct {
	sendBase uint32
	nextSeq  uint32
	cwnd     float64
	ssthresh float64
	dupAcks  int
	lastAck  int64
}

func newState() *state {
	return &state{
		cwnd:     config.InitialCwnd,
		ssthresh: config.SsthreshInit,
		lastAck:  -1,
	}
}

// effectiveWindow is min(floor(cwnd), RecvWindowSize).
func (s *state) effectiveWindow() uint32 {
	w := int(s.cwnd) // cwnd is always > 0, so truncation is floor.
	if w > config.RecvWindowSize {
		w = config.RecvWindowSize
	}
	return uint32(w)
}

type ackKind int

const (
	ackStale ackKind = iota
	ackNew
	ackDuplicate
)

// classify sorts an incoming ACK into new, duplicate, or stale.
func (s *state) classify(ack int64) ackKind {
	switch {
	case ack >= int64(s.sendBase) && ack > s.lastAck:
		return ackNew
	case ack == s.lastAck && s.lastAck >= 0:
		return ackDuplicate
	default:
		return ackStale
	}
}

// applyNewAck advances send_base and grows cwnd: slow start below
// ssthresh (exponential, +1 per ACK), congestion avoidance at or above
// it (additive, +1/cwnd per ACK).
func (s *state) applyNewAck(ack int64) {
	s.sendBase = uint32(ack + 1)
	s.dupAcks = 0
	s.lastAck = ack
	if s.cwnd < s.ssthresh {
		s.cwnd++
	} else {
		s.cwnd += 1 / s.cwnd
	}
}

// onDuplicateAck increments dup_ack_count and, on the third and every
// later duplicate, performs fast retransmit. It returns true if fast retransmit fired.
func (s *state) onDuplicateAck() bool {
	s.dupAcks++
	if s.dupAcks < config.DupAckThreshold {
		return false
	}
	s.ssthresh = math.Max(math.Floor(s.cwnd/2), 2)
	s.cwnd = s.ssthresh + 3
	s.nextSeq = s.sendBase
	// dupAcks is deliberately NOT reset here: a fourth duplicate ACK
	// would re-fire fast retransmit.
	return true
}

// onTimeout sets ssthresh to half the window, resets cwnd to its initial value, and
// rewinds transmission back to send_base.
func (s *state) onTimeout() {
	s.ssthresh = math.Max(math.Floor(s.cwnd/2), 2)
	s.cwnd = config.InitialCwnd
	s.dupAcks = 0
	s.nextSeq = s.sendBase
}
