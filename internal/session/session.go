// Package session implements the connection handshake and teardown: a
// two-packet SYN/SYN-ACK connect, its accept-side mirror, and a
// symmetric FIN/FIN-ACK teardown. It owns the peer address and the
// connected flag; it knows nothing about chunks, windows, or ACKs.
package session

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/iLukSbr/reliable-udp-ftp/internal/logging"
	"github.com/iLukSbr/reliable-udp-ftp/internal/netio"
	"github.com/iLukSbr/reliable-udp-ftp/internal/wire"
)

// ErrNotBound is returned by Accept when no prior Bind succeeded.
var ErrNotBound = errors.New("session: not bound")

// ErrNotConnected is returned by operations that require an established
// session (Disconnect, HandleDisconnect) when none exists.
var ErrNotConnected = errors.New("session: not connected")

// ErrUnexpectedPacket is returned when the first packet of a handshake
// is not the type the protocol expects.
var ErrUnexpectedPacket = errors.New("session: unexpected packet type")

// Session is a per-peer connection record: whether the socket is bound,
// whether a peer is connected, and that peer's address. The zero value
// is usable but unbound and unconnected.
type Session struct {
	ep        *netio.Endpoint
	bound     bool
	connected bool
	peerAddr  *net.UDPAddr
	id        string
}

// Bind opens and binds a UDP socket, readying the session to Accept.
func Bind(host string, port int) (*Session, error) {
	ep, err := netio.Bind(host, port)
	if err != nil {
		return nil, err
	}
	return &Session{ep: ep, bound: true}, nil
}

// Connect opens an unbound socket, sends SYN to host:port, and blocks
// (no handshake retry) until SYN-ACK arrives.
func Connect(host string, port int) (*Session, error) {
	ep, err := netio.Unbound()
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		ep.Close()
		return nil, err
	}
	if err := ep.SetTimeout(nil); err != nil {
		ep.Close()
		return nil, err
	}
	if _, err := ep.SendTo(wire.EncodeSYN(), addr); err != nil {
		ep.Close()
		return nil, err
	}

	b, from, err := ep.RecvFrom()
	if err != nil {
		ep.Close()
		return nil, err
	}
	typ, _, err := wire.Decode(b)
	if err != nil {
		ep.Close()
		return nil, err
	}
	if typ != wire.TypeSYNACK {
		ep.Close()
		return nil, ErrUnexpectedPacket
	}

	id := uuid.NewString()
	logging.For("session", id).WithField("peer", from.String()).Info("connected")
	return &Session{ep: ep, connected: true, peerAddr: from, id: id}, nil
}

// Accept blocks (no handshake retry) until a SYN arrives on a bound
// session's socket, replies SYN-ACK, and latches the peer address.
func (s *Session) Accept() error {
	if !s.bound {
		return ErrNotBound
	}
	b, from, err := s.ep.RecvFrom()
	if err != nil {
		return err
	}
	typ, _, err := wire.Decode(b)
	if err != nil {
		return err
	}
	if typ != wire.TypeSYN {
		return ErrUnexpectedPacket
	}
	if _, err := s.ep.SendTo(wire.EncodeSYNACK(), from); err != nil {
		return err
	}
	s.connected = true
	s.peerAddr = from
	s.id = uuid.NewString()
	logging.For("session", s.id).WithField("peer", from.String()).Info("accepted")
	return nil
}

// Disconnect sends FIN and blocks for FIN-ACK, clearing connected state
// on success. It is the closing side's half of teardown.
func (s *Session) Disconnect() error {
	if !s.connected || s.peerAddr == nil {
		return ErrNotConnected
	}
	if err := s.ep.SetTimeout(nil); err != nil {
		return err
	}
	if _, err := s.ep.SendTo(wire.EncodeFIN(), s.peerAddr); err != nil {
		return err
	}
	b, from, err := s.ep.RecvFrom()
	// Duplicate ACKs still queued from the data phase are skipped.
	for err == nil && len(b) > 0 && wire.Type(b[0]) == wire.TypeACK {
		b, from, err = s.ep.RecvFrom()
	}
	if err != nil {
		return err
	}
	if from.String() != s.peerAddr.String() {
		return ErrUnexpectedPacket
	}
	typ, _, err := wire.Decode(b)
	if err != nil {
		return err
	}
	if typ != wire.TypeFINACK {
		return ErrUnexpectedPacket
	}
	logging.For("session", s.id).Info("disconnected")
	s.connected = false
	s.peerAddr = nil
	return nil
}

// HandleDisconnect blocks for FIN and replies FIN-ACK, clearing
// connected state on success. It is the accepting side's half of
// teardown.
func (s *Session) HandleDisconnect() error {
	if !s.connected || s.peerAddr == nil {
		return ErrNotConnected
	}
	b, from, err := s.ep.RecvFrom()
	if err != nil {
		return err
	}
	if from.String() != s.peerAddr.String() {
		return ErrUnexpectedPacket
	}
	typ, _, err := wire.Decode(b)
	if err != nil {
		return err
	}
	if typ != wire.TypeFIN {
		return ErrUnexpectedPacket
	}
	if _, err := s.ep.SendTo(wire.EncodeFINACK(), from); err != nil {
		return err
	}
	logging.For("session", s.id).Info("handled disconnect")
	s.connected = false
	s.peerAddr = nil
	return nil
}

// Close releases the underlying socket.
func (s *Session) Close() error { return s.ep.Close() }

// Endpoint returns the underlying datagram endpoint, for the sender and
// receiver engines to drive the reliable data phase over.
func (s *Session) Endpoint() *netio.Endpoint { return s.ep }

// PeerAddr returns the latched peer address, or nil if not connected.
func (s *Session) PeerAddr() *net.UDPAddr { return s.peerAddr }

// Connected reports whether the session has an established peer.
func (s *Session) Connected() bool { return s.connected }

// ID returns the session's correlation ID, minted on a successful
// Connect or Accept; empty before then.
func (s *Session) ID() string { return s.id }
