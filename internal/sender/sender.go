// Package sender implements the Sender Engine: sliding-window
// transmission with congestion control, loss detection via timeout and
// duplicate ACKs, Go-Back-N retransmission, and final EOF emission.
package sender

import (
	"errors"
	"net"
	"path/filepath"
	"time"

	"github.com/iLukSbr/reliable-udp-ftp/internal/chunkio"
	"github.com/iLukSbr/reliable-udp-ftp/internal/config"
	"github.com/iLukSbr/reliable-udp-ftp/internal/logging"
	"github.com/iLukSbr/reliable-udp-ftp/internal/metrics"
	"github.com/iLukSbr/reliable-udp-ftp/internal/netio"
	"github.com/iLukSbr/reliable-udp-ftp/internal/wire"
)

// Writer is the outbound half of a datagram endpoint. *netio.Endpoint
// and *FaultInjector both satisfy it, so Send can run over either
// unchanged.
type Writer interface {
	SendTo(b []byte, addr *net.UDPAddr) (int, error)
}

// Receiver is the inbound half a Send loop drives its retransmission
// timer from.
type Receiver interface {
	RecvFrom() ([]byte, *net.UDPAddr, error)
	SetTimeout(d *time.Duration) error
}

// Stats summarizes one Send call for the caller's end-of-transfer report.
type Stats struct {
	Retransmissions int
}

// Send loads the file, emits METADATA, runs the congestion-controlled
// transmit/ACK loop to completion, then emits EOF. w and r are typically
// the same
// *netio.Endpoint (or a *FaultInjector wrapping one); they are split
// into two interfaces only because a fault injector decorates sends,
// not receives. peer is the session's latched peer address, and sess
// is the correlation ID logging and metrics are scoped to.
func Send(w Writer, r Receiver, peer *net.UDPAddr, filePath string, sess string, m *metrics.Transfer) (Stats, error) {
	log := logging.For("sender", sess)

	chunks, err := chunkio.ReadChunks(filePath, config.ChunkSize)
	if err != nil {
		return Stats{}, err
	}

	meta := wire.EncodeMetadata(wire.Metadata{
		Filename: filepath.Base(filePath),
		Filesize: totalSize(chunks),
	})
	if _, err := w.SendTo(meta, peer); err != nil {
		return Stats{}, err
	}
	log.WithField("chunks", len(chunks)).Info("sent metadata")

	s := newState()
	timeout := config.RetransmitTimeout
	if err := r.SetTimeout(&timeout); err != nil {
		return Stats{}, err
	}

	total := uint32(len(chunks))
	var stats Stats

	for s.sendBase < total {
		window := s.effectiveWindow()
		for s.nextSeq < total && s.nextSeq < s.sendBase+window {
			pkt := wire.EncodeData(s.nextSeq, chunks[s.nextSeq])
			if _, err := w.SendTo(pkt, peer); err != nil {
				return stats, err
			}
			if m != nil {
				m.AddSegmentsSent(1)
				m.AddBytesSent(uint64(len(chunks[s.nextSeq])))
				m.SetCwnd(s.cwnd)
			}
			s.nextSeq++
		}

		// The read deadline is absolute, so it is re-armed for every
		// receive attempt.
		if err := r.SetTimeout(&timeout); err != nil {
			return stats, err
		}
		b, from, err := r.RecvFrom()
		if errors.Is(err, netio.ErrTimeout) {
			if m != nil {
				m.AddTimeout()
				m.AddRetransmissions(1)
			}
			stats.Retransmissions++
			log.WithField("send_base", s.sendBase).Warn("retransmit timeout")
			s.onTimeout()
			continue
		}
		if err != nil {
			return stats, err
		}
		if from.String() != peer.String() {
			continue
		}
		typ, payload, err := wire.Decode(b)
		if err != nil || typ != wire.TypeACK {
			continue
		}
		ack := payload.(wire.Ack).Num

		switch s.classify(ack) {
		case ackNew:
			s.applyNewAck(ack)
			if m != nil {
				m.SetCwnd(s.cwnd)
			}
		case ackDuplicate:
			if m != nil {
				m.AddDupAck()
			}
			if s.onDuplicateAck() {
				stats.Retransmissions++
				log.WithField("send_base", s.sendBase).Info("fast retransmit")
				if m != nil {
					m.AddRetransmissions(1)
					m.SetCwnd(s.cwnd)
				}
			}
		case ackStale:
			// ignored
		}
	}

	if err := r.SetTimeout(nil); err != nil {
		return stats, err
	}
	if _, err := w.SendTo(wire.EncodeEOF(), peer); err != nil {
		return stats, err
	}
	log.Info("sent eof")
	return stats, nil
}

func totalSize(chunks [][]byte) uint64 {
	var n uint64
	for _, c := range chunks {
		n += uint64(len(c))
	}
	return n
}
