package conn

import (
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ivucica/go-hap/secure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return New(a), b
}

func TestNewConnStartsOpen(t *testing.T) {
	c, peer := pipePair(t)
	defer peer.Close()
	assert.Equal(t, StateOpen, c.State())
}

func TestUpgradeSwitchesToEncrypted(t *testing.T) {
	c, peer := pipePair(t)
	defer peer.Close()

	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	ch, err := secure.NewChannel(secret)
	require.NoError(t, err)

	c.Upgrade(ch)
	assert.Equal(t, StateEncrypted, c.State())
}

func TestReadWriteRoundTripsThroughEncryption(t *testing.T) {
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	a, b := net.Pipe()
	client := New(a)
	server := New(b)

	chA, err := secure.NewChannel(secret)
	require.NoError(t, err)
	chB, err := secure.NewChannel(secret)
	require.NoError(t, err)
	client.Upgrade(chA)
	server.Upgrade(chB)

	msg := []byte("hello over the wire")
	go func() {
		client.Write(msg)
	}()

	buf := make([]byte, len(msg))
	n, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf[:n])
}

func TestSubscribeUnsubscribe(t *testing.T) {
	c, peer := pipePair(t)
	defer peer.Close()

	assert.False(t, c.Subscribed(1, 2))
	c.Subscribe(1, 2)
	assert.True(t, c.Subscribed(1, 2))
	c.Unsubscribe(1, 2)
	assert.False(t, c.Subscribed(1, 2))
}

func TestNotifyEventRequiresEncryptedAndSubscribed(t *testing.T) {
	c, peer := pipePair(t)
	defer peer.Close()

	// Unencrypted: must not panic or block even though subscribed, and
	// queues nothing.
	c.Subscribe(1, 1)
	c.NotifyEvent(1, 1, true, true)
	assert.Empty(t, c.events.values)

	// Encrypted but not subscribed to (1, 2): queues nothing either.
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	ch, err := secure.NewChannel(secret)
	require.NoError(t, err)
	c.Upgrade(ch)
	c.NotifyEvent(1, 2, true, true)
	assert.Empty(t, c.events.values)
}

func TestIdleSinceAdvances(t *testing.T) {
	c, peer := pipePair(t)
	defer peer.Close()
	time.Sleep(2 * time.Millisecond)
	assert.Greater(t, c.IdleSince(), time.Duration(0))
}
