package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectAcceptHandshake(t *testing.T) {
	recv, err := Bind("127.0.0.1", 0)
	require.NoError(t, err)
	defer recv.Close()

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- recv.Accept() }()

	time.Sleep(10 * time.Millisecond)
	port := recv.Endpoint().LocalAddr().Port
	sender, err := Connect("127.0.0.1", port)
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, <-acceptErr)
	require.True(t, recv.Connected())
	require.True(t, sender.Connected())
	require.NotEmpty(t, recv.ID())
	require.NotEmpty(t, sender.ID())
}

func TestTeardown(t *testing.T) {
	recv, err := Bind("127.0.0.1", 0)
	require.NoError(t, err)
	defer recv.Close()

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- recv.Accept() }()
	time.Sleep(10 * time.Millisecond)

	sender, err := Connect("127.0.0.1", recv.Endpoint().LocalAddr().Port)
	require.NoError(t, err)
	defer sender.Close()
	require.NoError(t, <-acceptErr)

	handleErr := make(chan error, 1)
	go func() { handleErr <- recv.HandleDisconnect() }()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, sender.Disconnect())
	require.NoError(t, <-handleErr)
	require.False(t, sender.Connected())
	require.False(t, recv.Connected())
}

func TestAcceptWithoutBindFails(t *testing.T) {
	s := &Session{}
	require.ErrorIs(t, s.Accept(), ErrNotBound)
}

func TestDisconnectWithoutConnectionFails(t *testing.T) {
	s := &Session{}
	require.ErrorIs(t, s.Disconnect(), ErrNotConnected)
}
