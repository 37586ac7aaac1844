package hap

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"math/big"
	"testing"

	"github.com/google/uuid"
	gohapcrypto "github.com/ivucica/go-hap/crypto"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- minimal SRP-6a client, exercised only by these tests, mirroring the
// math in crypto.SRPServer so the pairing handshake can be driven
// end-to-end without a real iOS controller. ---

const testGroupN = "" +
	"FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1 " +
	"29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD " +
	"EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245 " +
	"E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED " +
	"EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D " +
	"C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F " +
	"83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D " +
	"670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B " +
	"E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9 " +
	"DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510 " +
	"15728E5A 8AAAC42D AD33170D 04507A33 A85521AB DF1CBA64 " +
	"ECFB8504 58DBEF0A 8AEA7157 5D060C7D B3970F85 A6E1E4C7 " +
	"ABF5AE8C DB0933D7 1E8C94E0 4A25619D CEE3D226 1AD2EE6B " +
	"F12FFA06 D98A0864 D8760273 3EC86A64 521F2B18 177B200C " +
	"BBE11757 7A615D6C 770988C0 BAD946E2 08E24FA0 74E5AB31 " +
	"43DB5BFC E0FD108E 4B82D120 A93AD2CA FFFFFFFF FFFFFFFF"

func testN(t *testing.T) *big.Int {
	t.Helper()
	clean := make([]byte, 0, len(testGroupN))
	for i := 0; i < len(testGroupN); i++ {
		if testGroupN[i] != ' ' {
			clean = append(clean, testGroupN[i])
		}
	}
	n, ok := new(big.Int).SetString(string(clean), 16)
	require.True(t, ok)
	return n
}

var testG = big.NewInt(5)

func hashBytes(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hashBytes(parts...))
}

func padTo(b []byte, n *big.Int) []byte {
	width := (n.BitLen() + 7) / 8
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

// srpClientProof computes A, M and K for the given username/password and
// the server's (salt, B), using a random ephemeral a.
func srpClientProof(t *testing.T, username, password, salt, bBytes []byte) (aPub, clientM, sessionKey []byte) {
	t.Helper()
	n := testN(t)
	g := testG

	aBytes := make([]byte, 32)
	_, err := rand.Read(aBytes)
	require.NoError(t, err)
	a := new(big.Int).SetBytes(aBytes)

	A := new(big.Int).Exp(g, a, n)
	B := new(big.Int).SetBytes(bBytes)

	k := hashInt(padTo(n.Bytes(), n), padTo(g.Bytes(), n))
	x := hashInt(salt, hashBytes(append(append([]byte{}, username...), append([]byte(":"), password...)...)))
	u := hashInt(padTo(A.Bytes(), n), padTo(bBytes, n))

	// S = (B - k*g^x)^(a + u*x) mod N
	kgx := new(big.Int).Mod(new(big.Int).Mul(k, new(big.Int).Exp(g, x, n)), n)
	base := new(big.Int).Mod(new(big.Int).Sub(B, kgx), n)
	exp := new(big.Int).Add(a, new(big.Int).Mul(u, x))
	S := new(big.Int).Exp(base, exp, n)

	K := hashBytes(S.Bytes())

	hN := hashBytes(n.Bytes())
	hG := hashBytes(g.Bytes())
	xored := make([]byte, len(hN))
	for i := range hN {
		xored[i] = hN[i] ^ hG[i]
	}
	hI := hashBytes(username)
	M := hashBytes(xored, hI, salt, A.Bytes(), bBytes, K)

	return A.Bytes(), M, K
}

func newTestState(t *testing.T) *db.State {
	t.Helper()
	s, err := db.NewState("10.0.0.9", "123-45-678", 51826)
	require.NoError(t, err)
	return s
}

type fakeNotifier struct{ calls int }

func (f *fakeNotifier) NotifyPairingChanged() { f.calls++ }

// runPairSetup drives a full pair-setup exchange and returns the resulting
// controller identity so pair-verify tests can reuse it.
func runPairSetup(t *testing.T, state *db.State) (clientUUID uuid.UUID, clientPriv ed25519.PrivateKey) {
	t.Helper()
	notifier := &fakeNotifier{}
	ps, errResp := NewPairSetup(state, notifier)
	require.Nil(t, errResp)
	require.NotNil(t, ps)

	m1 := tlv.Encode(tlv.Pair(tlv.TagSequenceNumber, []byte{seqM1}))
	m2Body, err := ps.Handle(m1)
	require.NoError(t, err)
	m2, err := tlv.Decode(m2Body)
	require.NoError(t, err)
	require.Equal(t, seqM2, m2.GetByte(tlv.TagSequenceNumber))
	salt, _ := m2.Get(tlv.TagSalt)
	B, _ := m2.Get(tlv.TagPublicKey)

	A, clientM, K := srpClientProof(t, []byte("Pair-Setup"), state.PinCode, salt, B)

	m3 := tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM3}),
		tlv.Pair(tlv.TagPublicKey, A),
		tlv.Pair(tlv.TagPasswordProof, clientM),
	)
	m4Body, err := ps.Handle(m3)
	require.NoError(t, err)
	m4, err := tlv.Decode(m4Body)
	require.NoError(t, err)
	require.Equal(t, seqM4, m4.GetByte(tlv.TagSequenceNumber))
	_, hasError := m4.Get(tlv.TagErrorCode)
	require.False(t, hasError)

	clientPub, clientPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	clientUUID = uuid.New()
	uN := []byte(clientUUID.String())

	encKey := gohapcrypto.HKDF(K, []byte("Pair-Setup-Encrypt-Salt"), []byte("Pair-Setup-Encrypt-Info"))
	ctrlSign := gohapcrypto.HKDF(K, []byte("Pair-Setup-Controller-Sign-Salt"), []byte("Pair-Setup-Controller-Sign-Info"))
	signed := append(append(append([]byte{}, ctrlSign...), uN...), clientPub...)
	sig := ed25519.Sign(clientPriv, signed)

	inner := tlv.Encode(
		tlv.Pair(tlv.TagUsername, uN),
		tlv.Pair(tlv.TagPublicKey, clientPub),
		tlv.Pair(tlv.TagProof, sig),
	)
	encrypted, err := gohapcrypto.Seal(encKey, gohapcrypto.PadNonce("PS-Msg05"), inner, nil)
	require.NoError(t, err)

	m5 := tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM5}),
		tlv.Pair(tlv.TagEncryptedData, encrypted),
	)
	m6Body, err := ps.Handle(m5)
	require.NoError(t, err)
	m6, err := tlv.Decode(m6Body)
	require.NoError(t, err)
	require.Equal(t, seqM6, m6.GetByte(tlv.TagSequenceNumber))
	_, hasError = m6.Get(tlv.TagErrorCode)
	require.False(t, hasError)

	assert.Equal(t, 1, notifier.calls)
	assert.True(t, state.Paired())
	assert.True(t, state.IsAdmin(clientUUID))

	return clientUUID, clientPriv
}

func TestPairSetupFullHandshake(t *testing.T) {
	state := newTestState(t)
	runPairSetup(t, state)
}

func TestPairSetupRejectsWhenAlreadyPaired(t *testing.T) {
	state := newTestState(t)
	runPairSetup(t, state)

	ps, errResp := NewPairSetup(state, nil)
	assert.Nil(t, ps)
	require.NotNil(t, errResp)
	decoded, err := tlv.Decode(errResp)
	require.NoError(t, err)
	assert.Equal(t, byte(ErrUnavailable), decoded.GetByte(tlv.TagErrorCode))
}

func TestPairVerifyRejectsWhenNotPaired(t *testing.T) {
	state := newTestState(t)
	_, errResp := NewPairVerify(state)
	require.NotNil(t, errResp)
	decoded, err := tlv.Decode(errResp)
	require.NoError(t, err)
	assert.Equal(t, byte(ErrAuthentication), decoded.GetByte(tlv.TagErrorCode))
}

func TestPairVerifyFullHandshake(t *testing.T) {
	state := newTestState(t)
	clientUUID, clientPriv := runPairSetup(t, state)

	pv, errResp := NewPairVerify(state)
	require.Nil(t, errResp)

	clientKP, err := gohapcrypto.GenerateX25519KeyPair()
	require.NoError(t, err)

	m1 := tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM1}),
		tlv.Pair(tlv.TagPublicKey, clientKP.Public[:]),
	)
	m2Body, err := pv.Handle(m1)
	require.NoError(t, err)
	m2, err := tlv.Decode(m2Body)
	require.NoError(t, err)
	require.Equal(t, seqM2, m2.GetByte(tlv.TagSequenceNumber))

	spub, _ := m2.Get(tlv.TagPublicKey)
	shared, err := gohapcrypto.X25519(clientKP.Private[:], spub)
	require.NoError(t, err)
	sessionKey := gohapcrypto.HKDF(shared, []byte("Pair-Verify-Encrypt-Salt"), []byte("Pair-Verify-Encrypt-Info"))

	uN := []byte(clientUUID.String())
	signed := append(append(append([]byte{}, clientKP.Public[:]...), uN...), spub...)
	sig := ed25519.Sign(clientPriv, signed)
	inner := tlv.Encode(
		tlv.Pair(tlv.TagUsername, uN),
		tlv.Pair(tlv.TagProof, sig),
	)
	encrypted, err := gohapcrypto.Seal(sessionKey, gohapcrypto.PadNonce("PV-Msg03"), inner, nil)
	require.NoError(t, err)

	m3 := tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM3}),
		tlv.Pair(tlv.TagEncryptedData, encrypted),
	)
	m4Body, err := pv.Handle(m3)
	require.NoError(t, err)
	m4, err := tlv.Decode(m4Body)
	require.NoError(t, err)
	require.Equal(t, seqM4, m4.GetByte(tlv.TagSequenceNumber))
	_, hasError := m4.Get(tlv.TagErrorCode)
	require.False(t, hasError)

	require.NotNil(t, pv.Channel)
	assert.Equal(t, clientUUID, pv.ClientUUID)
}

func TestHandlePairingsRejectsNonAdmin(t *testing.T) {
	state := newTestState(t)
	outsider := uuid.New()
	body := tlv.Encode(tlv.Pair(tlv.TagRequestType, []byte{pairingsList}))
	resp, err := HandlePairings(state, outsider, body, nil)
	require.NoError(t, err)
	decoded, err := tlv.Decode(resp)
	require.NoError(t, err)
	assert.Equal(t, byte(ErrAuthentication), decoded.GetByte(tlv.TagErrorCode))
}

func TestHandlePairingsAddAndRemove(t *testing.T) {
	state := newTestState(t)
	admin, _ := runPairSetup(t, state)
	notifier := &fakeNotifier{}

	newClient := uuid.New()
	newPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addBody := tlv.Encode(
		tlv.Pair(tlv.TagRequestType, []byte{pairingsAdd}),
		tlv.Pair(tlv.TagUsername, []byte(newClient.String())),
		tlv.Pair(tlv.TagPublicKey, newPub),
		tlv.Pair(tlv.TagPermissions, []byte{byte(db.PermissionUser)}),
	)
	_, err = HandlePairings(state, admin, addBody, notifier)
	require.NoError(t, err)
	assert.Len(t, state.PairedClients(), 2)
	assert.Equal(t, 1, notifier.calls)

	removeBody := tlv.Encode(
		tlv.Pair(tlv.TagRequestType, []byte{pairingsRemove}),
		tlv.Pair(tlv.TagUsername, []byte(newClient.String())),
	)
	_, err = HandlePairings(state, admin, removeBody, notifier)
	require.NoError(t, err)
	assert.Len(t, state.PairedClients(), 1)
	assert.Equal(t, 2, notifier.calls)
}
