package sender

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iLukSbr/reliable-udp-ftp/internal/config"
)

func TestNewStateDefaults(t *testing.T) {
	s := newState()
	require.EqualValues(t, 0, s.sendBase)
	require.EqualValues(t, 0, s.nextSeq)
	require.Equal(t, config.InitialCwnd, s.cwnd)
	require.Equal(t, config.SsthreshInit, s.ssthresh)
	require.EqualValues(t, -1, s.lastAck)
}

func TestEffectiveWindowCapsAtRecvWindow(t *testing.T) {
	s := newState()
	s.cwnd = 3
	require.EqualValues(t, 3, s.effectiveWindow())
	s.cwnd = 999
	require.EqualValues(t, config.RecvWindowSize, s.effectiveWindow())
}

func TestClassifyAck(t *testing.T) {
	s := newState()
	s.sendBase = 5
	s.lastAck = 4

	require.Equal(t, ackNew, s.classify(5))
	require.Equal(t, ackDuplicate, s.classify(4))
	require.Equal(t, ackStale, s.classify(2))
}

func TestClassifyBeforeAnyAckIsNewNotDuplicate(t *testing.T) {
	s := newState() // lastAck == -1
	require.Equal(t, ackNew, s.classify(0))
}

func TestApplyNewAckSlowStart(t *testing.T) {
	s := newState()
	require.Less(t, s.cwnd, s.ssthresh)
	s.applyNewAck(0)
	require.EqualValues(t, 1, s.sendBase)
	require.Equal(t, 0, s.dupAcks)
	require.EqualValues(t, 0, s.lastAck)
	require.Equal(t, config.InitialCwnd+1, s.cwnd)
}

func TestApplyNewAckCongestionAvoidance(t *testing.T) {
	s := newState()
	s.cwnd = s.ssthresh // at threshold: additive growth branch
	before := s.cwnd
	s.applyNewAck(0)
	require.InDelta(t, before+1/before, s.cwnd, 1e-9)
}

func TestOnDuplicateAckFastRetransmitOnThird(t *testing.T) {
	s := newState()
	s.sendBase = 2
	s.nextSeq = 8
	s.cwnd = 10

	require.False(t, s.onDuplicateAck())
	require.False(t, s.onDuplicateAck())
	require.True(t, s.onDuplicateAck())

	require.Equal(t, 3, s.dupAcks) // not reset by design
	require.EqualValues(t, 2, s.nextSeq)
	require.Equal(t, float64(5), s.ssthresh) // floor(10/2)
	require.Equal(t, float64(8), s.cwnd)     // ssthresh + 3
}

func TestOnDuplicateAckFourthRefires(t *testing.T) {
	s := newState()
	s.sendBase = 0
	s.cwnd = 10
	for i := 0; i < 3; i++ {
		s.onDuplicateAck()
	}
	s.nextSeq = 5 // simulate the window refilling before the 4th dup arrives
	require.True(t, s.onDuplicateAck())
	require.EqualValues(t, 0, s.nextSeq)
}

func TestOnDuplicateAckSsthreshFloor(t *testing.T) {
	s := newState()
	s.cwnd = 2 // floor(2/2) = 1, clamped to the 2 minimum
	for i := 0; i < 3; i++ {
		s.onDuplicateAck()
	}
	require.Equal(t, float64(2), s.ssthresh)
}

func TestOnTimeout(t *testing.T) {
	s := newState()
	s.sendBase = 4
	s.nextSeq = 9
	s.cwnd = 16
	s.dupAcks = 2

	s.onTimeout()

	require.Equal(t, float64(8), s.ssthresh)
	require.Equal(t, config.InitialCwnd, s.cwnd)
	require.Equal(t, 0, s.dupAcks)
	require.EqualValues(t, 4, s.nextSeq)
}
