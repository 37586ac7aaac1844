package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHKDFDeterministic(t *testing.T) {
	secret := bytes.Repeat([]byte{0x09}, 32)
	k1 := HKDF(secret, []byte("Control-Salt"), []byte("Control-Write-Encryption-Key"))
	k2 := HKDF(secret, []byte("Control-Salt"), []byte("Control-Write-Encryption-Key"))
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, KeyLen)

	k3 := HKDF(secret, []byte("Control-Salt"), []byte("Control-Read-Encryption-Key"))
	assert.NotEqual(t, k1, k3)
}

func TestPadNonce(t *testing.T) {
	n := PadNonce("PS-Msg05")
	require.Len(t, n, NonceLen)
	assert.Equal(t, "PS-Msg05", string(n[NonceLen-8:]))
	for _, b := range n[:NonceLen-8] {
		assert.Equal(t, byte(0), b)
	}
}

func TestCounterNonce(t *testing.T) {
	n0 := CounterNonce(0)
	n1 := CounterNonce(1)
	require.Len(t, n0, NonceLen)
	assert.NotEqual(t, n0, n1)

	// Known-answer vector matching pyhap's hap_crypto.pad_tls_nonce: a
	// 4-byte zero prefix, then the 8-byte little-endian counter.
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, n1)
	assert.Equal(t, []byte{0, 0, 0, 0, 0x39, 0x30, 0, 0, 0, 0, 0, 0}, CounterNonce(0x3039))
}

func TestAEADRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	nonce := CounterNonce(0)
	plaintext := []byte("hello hap")
	aad := []byte{0x09, 0x00}

	ct, err := Seal(key, nonce, plaintext, aad)
	require.NoError(t, err)

	pt, err := Open(key, nonce, ct, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestAEADOpenFailsOnTamperedAAD(t *testing.T) {
	key := bytes.Repeat([]byte{0x02}, 32)
	nonce := CounterNonce(0)
	ct, err := Seal(key, nonce, []byte("data"), []byte{0x01})
	require.NoError(t, err)

	_, err = Open(key, nonce, ct, []byte{0x02})
	assert.Error(t, err)
}

func TestX25519RoundTrip(t *testing.T) {
	client, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	server, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	sharedA, err := X25519(client.Private[:], server.Public[:])
	require.NoError(t, err)
	sharedB, err := X25519(server.Private[:], client.Public[:])
	require.NoError(t, err)

	assert.Equal(t, sharedA, sharedB)
}

func TestSRPHandshakeSucceedsWithCorrectPassword(t *testing.T) {
	server, err := NewSRPServer([]byte("Pair-Setup"), []byte("31-41-592"))
	require.NoError(t, err)

	salt, B := server.Challenge()
	require.Len(t, salt, SaltLen)

	// Emulate the client side of SRP-6a using the same formulas so we can
	// assert the server accepts a correct password and rejects a wrong one.
	a := mustRandBigInt(t)
	M, K := clientRespond(t, []byte("Pair-Setup"), []byte("31-41-592"), salt, B, a)

	err = server.SetA(aPublic(a).Bytes())
	require.NoError(t, err)

	hamk, ok := server.VerifyClientProof(M)
	require.True(t, ok)
	assert.NotEmpty(t, hamk)
	assert.Equal(t, K, server.SessionKey())
}

func TestSRPHandshakeFailsWithWrongPassword(t *testing.T) {
	server, err := NewSRPServer([]byte("Pair-Setup"), []byte("31-41-592"))
	require.NoError(t, err)

	salt, B := server.Challenge()
	a := mustRandBigInt(t)
	M, _ := clientRespond(t, []byte("Pair-Setup"), []byte("00-00-000"), salt, B, a)

	require.NoError(t, server.SetA(aPublic(a).Bytes()))
	_, ok := server.VerifyClientProof(M)
	assert.False(t, ok)
}

// --- test-only client-side SRP, mirroring the server's exact formulas ---

func aPublic(a *big.Int) *big.Int {
	return new(big.Int).Exp(defaultG, a, defaultN)
}

func mustRandBigInt(t *testing.T) *big.Int {
	t.Helper()
	return big.NewInt(123456789012345)
}

func clientRespond(t *testing.T, username, password, salt, B []byte, a *big.Int) (M, K []byte) {
	t.Helper()
	n := defaultN
	g := defaultG
	A := aPublic(a)

	k := hashIntFor(padN(n.Bytes(), n), padN(g.Bytes(), n))
	x := hashIntFor(salt, hashFor(append(append([]byte{}, username...), append([]byte(":"), password...)...)))
	Bb := new(big.Int).SetBytes(B)

	u := hashIntFor(padN(A.Bytes(), n), padN(B, n))

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(g, x, n)
	kgx := new(big.Int).Mod(new(big.Int).Mul(k, gx), n)
	base := new(big.Int).Mod(new(big.Int).Sub(Bb, kgx), n)
	exp := new(big.Int).Add(a, new(big.Int).Mul(u, x))
	S := new(big.Int).Exp(base, exp, n)

	K = hashFor(S.Bytes())

	hN := hashFor(n.Bytes())
	hG := hashFor(g.Bytes())
	xored := make([]byte, len(hN))
	for i := range hN {
		xored[i] = hN[i] ^ hG[i]
	}
	hI := hashFor(username)
	M = hashFor(xored, hI, salt, A.Bytes(), B, K)
	return M, K
}

func hashFor(parts ...[]byte) []byte {
	s := &SRPServer{}
	return s.hash(parts...)
}

func hashIntFor(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hashFor(parts...))
}
