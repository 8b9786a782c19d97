package receiver

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iLukSbr/reliable-udp-ftp/internal/metrics"
	"github.com/iLukSbr/reliable-udp-ftp/internal/wire"
)

type scriptedEndpoint struct {
	sent   [][]byte
	script []scriptedRecv
	pos    int
	peer   *net.UDPAddr
}

type scriptedRecv struct {
	pkt  []byte
	from *net.UDPAddr
}

func (e *scriptedEndpoint) SendTo(b []byte, addr *net.UDPAddr) (int, error) {
	e.sent = append(e.sent, append([]byte(nil), b...))
	return len(b), nil
}

func (e *scriptedEndpoint) RecvFrom() ([]byte, *net.UDPAddr, error) {
	entry := e.script[e.pos]
	e.pos++
	from := entry.from
	if from == nil {
		from = e.peer
	}
	return entry.pkt, from, nil
}

func TestReceiveLosslessTinyFile(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "abc.txt", Filesize: 3})},
			{pkt: wire.EncodeData(0, []byte("abc"))},
			{pkt: wire.EncodeEOF()},
		},
	}

	dir := t.TempDir()
	result, err := Receive(ep, peer, dir, "test-session", nil)
	require.NoError(t, err)
	require.Equal(t, "abc.txt", result.Filename)

	contents, err := os.ReadFile(filepath.Join(dir, "abc.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), contents)

	// ACK(0) sent for the DATA packet; that's the last ACK emitted.
	typ, ack, err := wire.Decode(ep.sent[len(ep.sent)-1])
	require.NoError(t, err)
	require.Equal(t, wire.TypeACK, typ)
	require.Equal(t, int64(0), ack.(wire.Ack).Num)
}

func TestReceiveOutOfOrderDelivery(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "f.bin", Filesize: 3})},
			{pkt: wire.EncodeData(1, []byte("b"))}, // arrives before seq 0
			{pkt: wire.EncodeData(0, []byte("a"))},
			{pkt: wire.EncodeData(2, []byte("c"))},
			{pkt: wire.EncodeEOF()},
		},
	}

	dir := t.TempDir()
	_, err := Receive(ep, peer, dir, "test-session", nil)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "f.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), contents)
}

func TestReceiveCountsOutOfOrderHoldovers(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "f.bin", Filesize: 3})},
			{pkt: wire.EncodeData(1, []byte("b"))}, // held over: arrives before seq 0
			{pkt: wire.EncodeData(2, []byte("c"))}, // held over: still waiting on seq 0
			{pkt: wire.EncodeData(0, []byte("a"))}, // delivers 0, 1, 2 in one pass
			{pkt: wire.EncodeEOF()},
		},
	}

	m := metrics.NewTransfer("receiver", "test-session")
	_, err := Receive(ep, peer, t.TempDir(), "test-session", m)
	require.NoError(t, err)
	require.EqualValues(t, 2, m.Snapshot().OutOfOrderHoldover)
}

func TestReceiveChecksumFailureAcksLastGood(t *testing.T) {
	corrupted := wire.EncodeData(0, []byte("x"))
	corrupted[wire.DataHeaderLen] ^= 0xFF

	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "f.bin", Filesize: 1})},
			{pkt: corrupted},
			{pkt: wire.EncodeData(0, []byte("x"))}, // clean retransmit
			{pkt: wire.EncodeEOF()},
		},
	}

	dir := t.TempDir()
	_, err := Receive(ep, peer, dir, "test-session", nil)
	require.NoError(t, err)

	// First ACK after the corrupted packet must be the sentinel -1.
	typ, ack, err := wire.Decode(ep.sent[0])
	require.NoError(t, err)
	require.Equal(t, wire.TypeACK, typ)
	require.Equal(t, int64(-1), ack.(wire.Ack).Num)
}

func TestReceiveIgnoresPacketsFromOtherAddresses(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	stranger := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5555}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "f.bin", Filesize: 1})},
			{pkt: wire.EncodeData(0, []byte("z")), from: stranger},
			{pkt: wire.EncodeData(0, []byte("a"))},
			{pkt: wire.EncodeEOF()},
		},
	}

	dir := t.TempDir()
	_, err := Receive(ep, peer, dir, "test-session", nil)
	require.NoError(t, err)
	contents, err := os.ReadFile(filepath.Join(dir, "f.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), contents)
}

func TestReceiveRejectsNonMetadataFirstPacket(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	ep := &scriptedEndpoint{
		peer:   peer,
		script: []scriptedRecv{{pkt: wire.EncodeEOF()}},
	}

	_, err := Receive(ep, peer, t.TempDir(), "test-session", nil)
	require.ErrorIs(t, err, ErrUnexpectedFirstPacket)
}

func TestReceiveRejectsMetadataFromWrongAddress(t *testing.T) {
	peer := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	stranger := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9}
	ep := &scriptedEndpoint{
		peer: peer,
		script: []scriptedRecv{
			{pkt: wire.EncodeMetadata(wire.Metadata{Filename: "f.bin"}), from: stranger},
		},
	}

	_, err := Receive(ep, peer, t.TempDir(), "test-session", nil)
	require.ErrorIs(t, err, ErrUnexpectedFirstPacket)
}
