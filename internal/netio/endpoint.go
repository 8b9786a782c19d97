// Package netio is a thin wrapper over net.UDPConn exposing exactly the
// surface the transport state machine needs: bind, send-to, receive-from
// with an optional deadline, and close. It performs no framing and no
// retries of its own.
package netio

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// recvBufSize is the fixed receive buffer size.
const recvBufSize = 4096

// ErrTimeout is returned by RecvFrom when the configured deadline elapses
// before a datagram arrives.
var ErrTimeout = errors.New("netio: receive timeout")

// Endpoint wraps a single UDP socket, bound or unbound.
type Endpoint struct {
	conn *net.UDPConn
}

// New wraps an already-constructed *net.UDPConn, for callers that open
// the socket themselves; Bind and Unbound build their Endpoint directly.
func New(conn *net.UDPConn) *Endpoint {
	return &Endpoint{conn: conn}
}

// Bind opens and binds a UDP socket on host:port for receiving.
func Bind(host string, port int) (*Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Endpoint{conn: conn}, nil
}

// Unbound opens an unbound UDP socket suitable for sending to an
// arbitrary peer address (the initiator side of the handshake).
func Unbound() (*Endpoint, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &Endpoint{conn: conn}, nil
}

// SendTo writes b to addr.
func (e *Endpoint) SendTo(b []byte, addr *net.UDPAddr) (int, error) {
	return e.conn.WriteToUDP(b, addr)
}

// RecvFrom blocks for at most the most recently configured timeout (or
// indefinitely if none is set) and returns the received datagram and its
// source address. It returns ErrTimeout if the deadline elapses first.
func (e *Endpoint) RecvFrom() ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, recvBufSize)
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil, ErrTimeout
		}
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

// SetTimeout sets the deadline for subsequent RecvFrom calls. A nil
// duration blocks indefinitely.
func (e *Endpoint) SetTimeout(d *time.Duration) error {
	if d == nil {
		return e.conn.SetReadDeadline(time.Time{})
	}
	return e.conn.SetReadDeadline(time.Now().Add(*d))
}

// LocalAddr returns the socket's local address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

