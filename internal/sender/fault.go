package sender

import (
	"math/rand"
	"net"
	"sync"

	"github.com/iLukSbr/reliable-udp-ftp/internal/metrics"
	"github.com/iLukSbr/reliable-udp-ftp/internal/wire"
)

// corruptPayloadOffset is the fixed payload offset a corrupted DATA
// packet's byte flip targets, chosen to fall inside the payload for
// any non-empty chunk while always landing past the checksummed header.
const corruptPayloadOffset = 10

// FaultStats counts the fault injector's on-wire effects for the
// caller's end-of-transfer report.
type FaultStats struct {
	PacketsSent      int
	PacketsCorrupted int
	PacketsDropped   int
	Retransmissions  int
}

// FaultInjector decorates a Writer, dropping or corrupting DATA packets
// on their first transmission only: retransmits of an already-perturbed
// sequence must proceed clean, so the injector never perturbs a
// sequence twice.
type FaultInjector struct {
	next Writer
	m    *metrics.Transfer

	dropSeqs    map[uint32]bool
	corruptSeqs map[uint32]bool
	dropRate    float64
	corruptRate float64
	rng         *rand.Rand

	mu      sync.Mutex
	seen    map[uint32]bool
	errored map[uint32]bool
	stats   FaultStats
}

// NewFaultInjector wraps next. A non-empty dropSeqs replaces dropRate
// entirely (no other sequence is dropped at random), and likewise a
// non-empty corruptSeqs replaces corruptRate. seed makes the probabilistic choices
// reproducible across runs. m receives a live mirror of the injector's
// counters (drops, corruptions, observed retransmissions) as its own
// Prometheus series, distinct from the Sender Engine's own
// retransmission counter; m may be nil to skip mirroring.
func NewFaultInjector(next Writer, dropSeqs, corruptSeqs []uint32, dropRate, corruptRate float64, seed int64, m *metrics.Transfer) *FaultInjector {
	f := &FaultInjector{
		next:        next,
		m:           m,
		dropSeqs:    toSet(dropSeqs),
		corruptSeqs: toSet(corruptSeqs),
		dropRate:    dropRate,
		corruptRate: corruptRate,
		rng:         rand.New(rand.NewSource(seed)),
		seen:        make(map[uint32]bool),
		errored:     make(map[uint32]bool),
	}
	return f
}

func toSet(seqs []uint32) map[uint32]bool {
	s := make(map[uint32]bool, len(seqs))
	for _, seq := range seqs {
		s[seq] = true
	}
	return s
}

// SendTo perturbs b (by dropping it, or by sending a copy with one
// payload byte flipped) when b is the first transmission of a DATA
// packet whose sequence is marked for drop or corruption; every other
// packet passes through untouched. b itself is never modified.
func (f *FaultInjector) SendTo(b []byte, addr *net.UDPAddr) (int, error) {
	typ, payload, err := wire.Decode(b)
	if err != nil || typ != wire.TypeData {
		return f.next.SendTo(b, addr)
	}
	data, ok := payload.(wire.Data)
	if !ok {
		// Decode already reported corruption (nil payload); nothing
		// further for the injector to do.
		return f.next.SendTo(b, addr)
	}
	seq := data.Seq

	f.mu.Lock()
	alreadyErrored := f.errored[seq]
	retransmission := f.seen[seq]
	f.seen[seq] = true
	f.stats.PacketsSent++
	if retransmission {
		f.stats.Retransmissions++
	}
	f.mu.Unlock()

	if f.m != nil {
		if retransmission {
			f.m.AddFaultRetransmissionEvent()
		}
	}

	if alreadyErrored || retransmission {
		return f.next.SendTo(b, addr)
	}

	if f.shouldDrop(seq) {
		f.mu.Lock()
		f.errored[seq] = true
		f.stats.PacketsDropped++
		f.mu.Unlock()
		if f.m != nil {
			f.m.AddFaultPacketsDropped(1)
		}
		return len(b), nil
	}

	if f.shouldCorrupt(seq) {
		corrupted := append([]byte(nil), b...)
		offset := wire.DataHeaderLen + corruptPayloadOffset
		if offset >= len(corrupted) {
			offset = len(corrupted) - 1
		}
		corrupted[offset] ^= 0xFF

		f.mu.Lock()
		f.errored[seq] = true
		f.stats.PacketsCorrupted++
		f.mu.Unlock()
		if f.m != nil {
			f.m.AddFaultPacketsCorrupted(1)
		}
		return f.next.SendTo(corrupted, addr)
	}

	return f.next.SendTo(b, addr)
}

func (f *FaultInjector) shouldDrop(seq uint32) bool {
	if f.dropSeqs[seq] {
		return true
	}
	if len(f.dropSeqs) > 0 {
		return false // explicit list given; rate does not also apply.
	}
	return f.rng.Float64() < f.dropRate
}

func (f *FaultInjector) shouldCorrupt(seq uint32) bool {
	if f.corruptSeqs[seq] {
		return true
	}
	if len(f.corruptSeqs) > 0 {
		return false
	}
	return f.rng.Float64() < f.corruptRate
}

// Stats returns a snapshot of the injector's counters.
func (f *FaultInjector) Stats() FaultStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}
