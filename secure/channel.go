// Package secure implements the length-framed ChaCha20-Poly1305 channel
// that wraps every HTTP byte once pair-verify completes (§4.2).
package secure

import (
	"encoding/binary"
	"fmt"

	gohapcrypto "github.com/ivucica/go-hap/crypto"
)

// maxBlock is the largest plaintext chunk encrypted into a single frame
// (§4.2).
const maxBlock = 1024

// lengthHeaderLen is the little-endian frame length prefix size.
const lengthHeaderLen = 2

// tagLen is the Poly1305 tag appended to every ciphertext.
const tagLen = 16

// Channel encrypts and decrypts the two independent directions of a paired
// connection from a single pair-verify shared secret (§4.2). It is not
// safe for concurrent use from multiple goroutines on the same direction;
// callers serialize reads and writes the way a single connection's
// goroutine already does.
type Channel struct {
	readKey  []byte
	writeKey []byte

	readCounter  uint64
	writeCounter uint64

	recvBuf []byte
}

// NewChannel derives both directions' keys from the shared secret K
// established by pair-verify (§4.2).
func NewChannel(sharedSecret []byte) (*Channel, error) {
	readKey := gohapcrypto.HKDF(sharedSecret, []byte("Control-Salt"), []byte("Control-Write-Encryption-Key"))
	writeKey := gohapcrypto.HKDF(sharedSecret, []byte("Control-Salt"), []byte("Control-Read-Encryption-Key"))
	return &Channel{readKey: readKey, writeKey: writeKey}, nil
}

// EncryptFrame splits plaintext into <=1024-byte blocks and returns the
// concatenated wire frames: len_le16 || ciphertext || tag per block (§4.2).
func (c *Channel) EncryptFrame(plaintext []byte) ([]byte, error) {
	var out []byte
	for len(plaintext) > 0 {
		n := maxBlock
		if n > len(plaintext) {
			n = len(plaintext)
		}
		block := plaintext[:n]
		plaintext = plaintext[n:]

		var lenPrefix [lengthHeaderLen]byte
		binary.LittleEndian.PutUint16(lenPrefix[:], uint16(n))

		nonce := gohapcrypto.CounterNonce(c.writeCounter)
		c.writeCounter++

		ciphertext, err := gohapcrypto.Seal(c.writeKey, nonce, block, lenPrefix[:])
		if err != nil {
			return nil, fmt.Errorf("secure: encrypting frame: %w", err)
		}

		out = append(out, lenPrefix[:]...)
		out = append(out, ciphertext...)
	}
	return out, nil
}

// Feed appends newly-read bytes to the receive buffer and returns every
// fully-buffered frame it can now decrypt, in order. A decryption failure
// is fatal (§4.2): the caller must close the connection and discard the
// Channel.
func (c *Channel) Feed(data []byte) ([][]byte, error) {
	c.recvBuf = append(c.recvBuf, data...)

	var frames [][]byte
	for {
		if len(c.recvBuf) < lengthHeaderLen {
			return frames, nil
		}
		n := int(binary.LittleEndian.Uint16(c.recvBuf[:lengthHeaderLen]))
		total := lengthHeaderLen + n + tagLen
		if len(c.recvBuf) < total {
			return frames, nil
		}

		lenPrefix := c.recvBuf[:lengthHeaderLen]
		ciphertext := c.recvBuf[lengthHeaderLen:total]

		nonce := gohapcrypto.CounterNonce(c.readCounter)
		plaintext, err := gohapcrypto.Open(c.readKey, nonce, ciphertext, lenPrefix)
		if err != nil {
			return frames, fmt.Errorf("secure: decrypting frame: %w", err)
		}
		c.readCounter++
		frames = append(frames, plaintext)
		c.recvBuf = c.recvBuf[total:]
	}
}
