package crypto

import (
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceLen is the length in bytes of a ChaCha20-Poly1305 nonce.
const NonceLen = chacha20poly1305.NonceSize

// PadNonce left-pads a short literal nonce (e.g. "PS-Msg05") with zero
// bytes to NonceLen, as used by the pair-setup and pair-verify envelopes
// (§4.4, §4.5).
func PadNonce(literal string) []byte {
	out := make([]byte, NonceLen)
	copy(out[NonceLen-len(literal):], literal)
	return out
}

// CounterNonce builds the 12-byte nonce used by the secure channel: a
// 4-byte zero prefix followed by an 8-byte little-endian counter (§4.2).
func CounterNonce(counter uint64) []byte {
	out := make([]byte, NonceLen)
	binary.LittleEndian.PutUint64(out[4:], counter)
	return out
}

// NewAEAD constructs a ChaCha20-Poly1305 AEAD from a 32-byte key.
func NewAEAD(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

// Seal encrypts plaintext with key under nonce and aad, returning
// ciphertext||tag.
func Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext||tag with key under nonce and aad.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}
