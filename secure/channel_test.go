package secure

import (
	"bytes"
	"crypto/rand"
	"testing"

	gohapcrypto "github.com/ivucica/go-hap/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sharedSecret(t *testing.T) []byte {
	t.Helper()
	s := make([]byte, 32)
	_, err := rand.Read(s)
	require.NoError(t, err)
	return s
}

// controllerChannel builds the controller's end of a channel for secret: it
// reads with the key an accessory-side NewChannel writes with, and writes
// with the key that one reads with.
func controllerChannel(secret []byte) (*Channel, error) {
	return &Channel{
		readKey:  gohapcrypto.HKDF(secret, []byte("Control-Salt"), []byte("Control-Read-Encryption-Key")),
		writeKey: gohapcrypto.HKDF(secret, []byte("Control-Salt"), []byte("Control-Write-Encryption-Key")),
	}, nil
}

func TestRoundTripSingleFrame(t *testing.T) {
	secret := sharedSecret(t)
	a, err := NewChannel(secret)
	require.NoError(t, err)
	b, err := controllerChannel(secret)
	require.NoError(t, err)

	msg := []byte("GET /accessories HTTP/1.1\r\n\r\n")
	wire, err := a.EncryptFrame(msg)
	require.NoError(t, err)

	frames, err := b.Feed(wire)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, msg, frames[0])
}

func TestLargePayloadSplitsIntoMultipleFrames(t *testing.T) {
	secret := sharedSecret(t)
	a, err := NewChannel(secret)
	require.NoError(t, err)
	b, err := controllerChannel(secret)
	require.NoError(t, err)

	msg := bytes.Repeat([]byte{0x42}, maxBlock*3+17)
	wire, err := a.EncryptFrame(msg)
	require.NoError(t, err)

	frames, err := b.Feed(wire)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	var reassembled []byte
	for _, f := range frames {
		reassembled = append(reassembled, f...)
	}
	assert.Equal(t, msg, reassembled)
}

func TestFeedBuffersPartialFrame(t *testing.T) {
	secret := sharedSecret(t)
	a, err := NewChannel(secret)
	require.NoError(t, err)
	b, err := controllerChannel(secret)
	require.NoError(t, err)

	wire, err := a.EncryptFrame([]byte("hello world"))
	require.NoError(t, err)

	frames, err := b.Feed(wire[:5])
	require.NoError(t, err)
	assert.Empty(t, frames)

	frames, err = b.Feed(wire[5:])
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("hello world"), frames[0])
}

func TestFeedRejectsTamperedCiphertext(t *testing.T) {
	secret := sharedSecret(t)
	a, err := NewChannel(secret)
	require.NoError(t, err)
	b, err := controllerChannel(secret)
	require.NoError(t, err)

	wire, err := a.EncryptFrame([]byte("hello world"))
	require.NoError(t, err)
	wire[len(wire)-1] ^= 0xFF

	_, err = b.Feed(wire)
	assert.Error(t, err)
}

func TestDirectionsUseIndependentCounters(t *testing.T) {
	secret := sharedSecret(t)
	a, err := NewChannel(secret)
	require.NoError(t, err)
	b, err := controllerChannel(secret)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		wire, err := a.EncryptFrame([]byte("ping"))
		require.NoError(t, err)
		frames, err := b.Feed(wire)
		require.NoError(t, err)
		require.Len(t, frames, 1)
		assert.Equal(t, []byte("ping"), frames[0])
	}

	// The other direction starts from its own counter 0 although a has
	// already written three frames.
	wire, err := b.EncryptFrame([]byte("pong"))
	require.NoError(t, err)
	frames, err := a.Feed(wire)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("pong"), frames[0])
}
