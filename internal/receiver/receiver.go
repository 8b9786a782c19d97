// Package receiver implements the Receiver Engine: METADATA intake,
// in-order delivery with an out-of-order reassembly buffer capped at
// the advertised receiver window, cumulative ACK emission, and EOF
// termination.
package receiver

import (
	"errors"
	"net"

	"github.com/iLukSbr/reliable-udp-ftp/internal/chunkio"
	"github.com/iLukSbr/reliable-udp-ftp/internal/config"
	"github.com/iLukSbr/reliable-udp-ftp/internal/logging"
	"github.com/iLukSbr/reliable-udp-ftp/internal/metrics"
	"github.com/iLukSbr/reliable-udp-ftp/internal/wire"
)

// ErrUnexpectedFirstPacket is returned when the first datagram received
// is not METADATA, or arrives from an address other than the session's
// latched peer.
var ErrUnexpectedFirstPacket = errors.New("receiver: expected metadata from peer")

// Endpoint is the inbound/outbound surface Receive drives the
// reassembly loop over; *netio.Endpoint satisfies it directly.
type Endpoint interface {
	SendTo(b []byte, addr *net.UDPAddr) (int, error)
	RecvFrom() ([]byte, *net.UDPAddr, error)
}

// Result summarizes one completed transfer.
type Result struct {
	Path     string
	Filename string
	Filesize uint64
}

// Receive takes in METADATA, reassembles DATA packets into an ordered,
// gap-free sequence bounded by the receiver window, ACKs cumulatively,
// and on EOF writes the file via chunkio.AppendChunks into outputDir.
func Receive(ep Endpoint, peer *net.UDPAddr, outputDir string, sess string, m *metrics.Transfer) (Result, error) {
	log := logging.For("receiver", sess)

	b, from, err := ep.RecvFrom()
	if err != nil {
		return Result{}, err
	}
	if from.String() != peer.String() {
		return Result{}, ErrUnexpectedFirstPacket
	}
	typ, payload, err := wire.Decode(b)
	if err != nil || typ != wire.TypeMetadata {
		return Result{}, ErrUnexpectedFirstPacket
	}
	meta := payload.(wire.Metadata)
	log.WithField("filename", meta.Filename).WithField("filesize", meta.Filesize).Info("received metadata")

	expectedSeq := uint32(0)
	window := make(map[uint32][]byte)
	var delivered [][]byte

	for {
		b, from, err := ep.RecvFrom()
		if err != nil {
			return Result{}, err
		}
		if from.String() != peer.String() {
			continue
		}
		typ, payload, err := wire.Decode(b)
		if err != nil {
			continue
		}

		switch typ {
		case wire.TypeEOF:
			// delivered is already in sequence order: entries are
			// appended only as expected_seq advances one at a time.
			path, err := chunkio.AppendChunks(outputDir, meta.Filename, delivered)
			if err != nil {
				return Result{}, err
			}
			log.WithField("path", path).Info("wrote file")
			return Result{Path: path, Filename: meta.Filename, Filesize: meta.Filesize}, nil

		case wire.TypeData:
			data, ok := payload.(wire.Data)
			if !ok {
				if m != nil {
					m.AddChecksumFailure()
				}
				ack := int64(expectedSeq) - 1
				ep.SendTo(wire.EncodeAck(ack), peer)
				continue
			}
			if m != nil {
				m.AddSegmentsReceived(1)
			}
			switch {
			case data.Seq < expectedSeq:
				// Duplicate of an already-delivered sequence; the
				// cumulative ACK below re-asserts it was received.
			case data.Seq == expectedSeq:
				window[data.Seq] = data.Payload
			case len(window) < config.RecvWindowSize || windowHas(window, data.Seq):
				window[data.Seq] = data.Payload
				if m != nil {
					m.AddOutOfOrderHoldover()
				}
			}
			for {
				payload, ok := window[expectedSeq]
				if !ok {
					break
				}
				delivered = append(delivered, payload)
				if m != nil {
					m.AddBytesReceived(uint64(len(payload)))
				}
				delete(window, expectedSeq)
				expectedSeq++
			}
			ack := int64(expectedSeq) - 1
			ep.SendTo(wire.EncodeAck(ack), peer)

		default:
			// Any other type mid-transfer (stray SYN, etc.) is ignored.
		}
	}
}

func windowHas(window map[uint32][]byte, seq uint32) bool {
	_, ok := window[seq]
	return ok
}
