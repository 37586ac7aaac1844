// Package crypto implements the cryptographic primitives HAP pairing and
// session establishment build on: HKDF-SHA512 key derivation, the SRP-6a
// server role, ChaCha20-Poly1305 AEAD, Ed25519 signatures and X25519 key
// agreement.
package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeyLen is the length in bytes of every key this package derives.
const KeyLen = 32

// HKDF derives a KeyLen-byte key from secret using HKDF-SHA512 with the
// given salt and info, as every HAP key-derivation step does (§4.2, §4.4,
// §4.5).
func HKDF(secret, salt, info []byte) []byte {
	r := hkdf.New(sha512.New, secret, salt, info)
	out := make([]byte, KeyLen)
	if _, err := io.ReadFull(r, out); err != nil {
		// HKDF-SHA512 can only fail to produce 32 bytes if the
		// expansion limit (255 * hash size) is exceeded, which never
		// happens for our fixed KeyLen.
		panic(err)
	}
	return out
}
