// Package wire implements the on-the-wire packet codec: eight packet
// types, a weak additive checksum over DATA payloads, and nothing else.
// Every function here is pure and allocates only the buffer it returns;
// none of them touch the network or the filesystem.
package wire

import (
	"encoding/binary"
	"errors"
)

// Type identifies one of the eight packet variants on the wire.
type Type uint8

const (
	TypeSYN Type = iota
	TypeSYNACK
	TypeMetadata
	TypeData
	TypeACK
	TypeEOF
	TypeFIN
	TypeFINACK
)

func (t Type) String() string {
	switch t {
	case TypeSYN:
		return "SYN"
	case TypeSYNACK:
		return "SYN-ACK"
	case TypeMetadata:
		return "METADATA"
	case TypeData:
		return "DATA"
	case TypeACK:
		return "ACK"
	case TypeEOF:
		return "EOF"
	case TypeFIN:
		return "FIN"
	case TypeFINACK:
		return "FIN-ACK"
	default:
		return "UNKNOWN"
	}
}

const (
	// MaxPayload bounds a DATA packet's payload so the full packet fits a
	// 1035-byte datagram, comfortably under a typical 1500-byte MTU.
	MaxPayload = 1024

	// DataHeaderLen is the fixed DATA header size: type, seq, size, checksum.
	DataHeaderLen = 1 + 4 + 2 + 4
	ackLen        = 1 + 4
	metaHeaderLen = 1 + 2 // type, filename_len (filesize follows the name)

	// AckSentinel is the wire value of the "nothing delivered yet" ACK
	// (signed -1 carried as an unsigned 32-bit field).
	AckSentinel uint32 = 0xFFFFFFFF
)

// ErrMalformedPacket is returned when the buffer is shorter than the
// layout its own declared fields imply (truncated header, or a filename
// length that overruns the remaining buffer).
var ErrMalformedPacket = errors.New("wire: malformed packet")

// ErrUnknownType is returned for a type byte outside the eight known
// variants.
var ErrUnknownType = errors.New("wire: unknown packet type")

// Metadata carries the METADATA payload: filename and total file size.
type Metadata struct {
	Filename string
	Filesize uint64
}

// Data carries a decoded, checksum-verified DATA payload.
type Data struct {
	Seq     uint32
	Payload []byte
}

// Ack carries the cumulative ACK number. A negative Num (only ever -1)
// is the sentinel "nothing delivered yet". Decode yields -1 only when
// the raw wire uint32 equals AckSentinel, and the raw value otherwise.
type Ack struct {
	Num int64
}

// Checksum computes the additive checksum over data: (sum of bytes) mod 2^32.
func Checksum(data []byte) uint32 {
	var sum uint64
	for _, b := range data {
		sum += uint64(b)
	}
	return uint32(sum)
}

// EncodeSYN encodes a bare SYN packet.
func EncodeSYN() []byte { return []byte{byte(TypeSYN)} }

// EncodeSYNACK encodes a bare SYN-ACK packet.
func EncodeSYNACK() []byte { return []byte{byte(TypeSYNACK)} }

// EncodeEOF encodes a bare EOF packet.
func EncodeEOF() []byte { return []byte{byte(TypeEOF)} }

// EncodeFIN encodes a bare FIN packet.
func EncodeFIN() []byte { return []byte{byte(TypeFIN)} }

// EncodeFINACK encodes a bare FIN-ACK packet.
func EncodeFINACK() []byte { return []byte{byte(TypeFINACK)} }

// EncodeMetadata encodes a METADATA packet: filename (UTF-8,
// 16-bit-length-prefixed) followed by an 8-byte filesize.
func EncodeMetadata(m Metadata) []byte {
	fn := []byte(m.Filename)
	buf := make([]byte, metaHeaderLen+len(fn)+8)
	buf[0] = byte(TypeMetadata)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(fn)))
	copy(buf[3:3+len(fn)], fn)
	binary.BigEndian.PutUint64(buf[3+len(fn):], m.Filesize)
	return buf
}

// EncodeData encodes a DATA packet for seq carrying payload, computing
// the additive checksum over payload. payload must be <= MaxPayload bytes.
func EncodeData(seq uint32, payload []byte) []byte {
	buf := make([]byte, DataHeaderLen+len(payload))
	buf[0] = byte(TypeData)
	binary.BigEndian.PutUint32(buf[1:5], seq)
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(payload)))
	binary.BigEndian.PutUint32(buf[7:11], Checksum(payload))
	copy(buf[11:], payload)
	return buf
}

// EncodeAck encodes an ACK packet. ack < 0 is carried on the wire as the
// sentinel 0xFFFFFFFF.
func EncodeAck(ack int64) []byte {
	buf := make([]byte, ackLen)
	buf[0] = byte(TypeACK)
	wireVal := AckSentinel
	if ack >= 0 {
		wireVal = uint32(ack)
	}
	binary.BigEndian.PutUint32(buf[1:5], wireVal)
	return buf
}

// Decode parses a raw datagram into its type and typed payload.
//
//   - SYN/SYN-ACK/EOF/FIN/FIN-ACK decode to (type, nil, nil).
//   - METADATA decodes to (TypeMetadata, Metadata{...}, nil).
//   - ACK decodes to (TypeACK, Ack{...}, nil).
//   - DATA decodes to (TypeData, Data{...}, nil) on a valid checksum, or
//     (TypeData, nil, nil) when the payload is corrupt or its declared
//     size does not match the buffer remainder — callers must treat a
//     nil DATA payload as "corrupted, do not deliver".
//   - A truncated buffer (shorter than its own declared layout) or a
//     filename length overrunning the buffer returns ErrMalformedPacket.
//   - An unrecognized type byte returns ErrUnknownType.
func Decode(b []byte) (Type, any, error) {
	if len(b) < 1 {
		return 0, nil, ErrMalformedPacket
	}
	t := Type(b[0])
	switch t {
	case TypeSYN, TypeSYNACK, TypeEOF, TypeFIN, TypeFINACK:
		return t, nil, nil

	case TypeMetadata:
		if len(b) < metaHeaderLen {
			return t, nil, ErrMalformedPacket
		}
		fnLen := int(binary.BigEndian.Uint16(b[1:3]))
		if len(b) < metaHeaderLen+fnLen+8 {
			return t, nil, ErrMalformedPacket
		}
		filename := string(b[3 : 3+fnLen])
		filesize := binary.BigEndian.Uint64(b[3+fnLen : 3+fnLen+8])
		return t, Metadata{Filename: filename, Filesize: filesize}, nil

	case TypeData:
		if len(b) < DataHeaderLen {
			return t, nil, ErrMalformedPacket
		}
		seq := binary.BigEndian.Uint32(b[1:5])
		size := int(binary.BigEndian.Uint16(b[5:7]))
		crc := binary.BigEndian.Uint32(b[7:11])
		if len(b) != DataHeaderLen+size {
			// Declared size disagrees with the datagram's actual
			// remainder: treated as corruption, not malformation.
			return t, nil, nil
		}
		payload := b[DataHeaderLen:]
		if Checksum(payload) != crc {
			return t, nil, nil
		}
		return t, Data{Seq: seq, Payload: append([]byte(nil), payload...)}, nil

	case TypeACK:
		if len(b) < ackLen {
			return t, nil, ErrMalformedPacket
		}
		raw := binary.BigEndian.Uint32(b[1:5])
		if raw == AckSentinel {
			return t, Ack{Num: -1}, nil
		}
		return t, Ack{Num: int64(raw)}, nil

	default:
		return 0, nil, ErrUnknownType
	}
}
