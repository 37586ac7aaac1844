package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"math/big"
)

// rfc5054Group3072N is the RFC 5054 / RFC 3526 Group 15 3072-bit safe
// prime, in hex.
const rfc5054Group3072N = "" +
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

// rfc5054Group3072G is the RFC 5054 3072-bit group generator.
const rfc5054Group3072G = 5

var (
	defaultN *big.Int
	defaultG = big.NewInt(rfc5054Group3072G)
)

func init() {
	n, ok := new(big.Int).SetString(stripSpaces(rfc5054Group3072N), 16)
	if !ok {
		panic("crypto: invalid RFC 5054 3072-bit group constant")
	}
	defaultN = n
}

func stripSpaces(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// SaltLen is the length in bytes of the SRP salt (§4.3).
const SaltLen = 16

// SecretLen is the length in bytes of the server's ephemeral secret b.
const SecretLen = 32

// SRPServer implements the server half of SRP-6a over the RFC 5054 3072-bit
// group with SHA-512, as used by pair-setup (§4.3). Usernames and passwords
// are treated as raw bytes, matching HAP's use of the literal username
// "Pair-Setup" and the 8-digit PIN as the password.
type SRPServer struct {
	n *big.Int
	g *big.Int

	username []byte
	password []byte

	salt     []byte
	verifier *big.Int
	k        *big.Int

	b *big.Int
	bPub *big.Int

	a *big.Int // client public value A, set by SetA
	sessionKey []byte
	m          []byte
}

// NewSRPServer creates a fresh SRP-6a server session for the given username
// and password, generating a random salt and server secret, over the fixed
// RFC 3526 Group 15 3072-bit group with SHA-512 (§4.3).
func NewSRPServer(username, password []byte) (*SRPServer, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	b := make([]byte, SecretLen)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return newSRPServerWith(username, password, salt, new(big.Int).SetBytes(b))
}

func newSRPServerWith(username, password, salt []byte, b *big.Int) (*SRPServer, error) {
	s := &SRPServer{
		n:        defaultN,
		g:        defaultG,
		username: username,
		password: password,
		salt:     salt,
		b:        b,
	}
	s.k = s.hashInt(padN(s.n.Bytes(), s.n), padN(s.g.Bytes(), s.n))
	s.verifier = s.computeVerifier()
	s.bPub = s.deriveB()
	return s, nil
}

// padN left-pads b with zeros to the byte length of n (§4.3 PAD(x)).
func padN(b []byte, n *big.Int) []byte {
	width := (n.BitLen() + 7) / 8
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

func (s *SRPServer) hash(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func (s *SRPServer) hashInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(s.hash(parts...))
}

// x = H(s || H(I || ":" || p))
func (s *SRPServer) privateKey() *big.Int {
	inner := s.hash(s.username, []byte(":"), s.password)
	return s.hashInt(s.salt, inner)
}

// v = g^x mod N
func (s *SRPServer) computeVerifier() *big.Int {
	x := s.privateKey()
	return new(big.Int).Exp(s.g, x, s.n)
}

// B = (k*v + g^b) mod N
func (s *SRPServer) deriveB() *big.Int {
	kv := new(big.Int).Mul(s.k, s.verifier)
	gb := new(big.Int).Exp(s.g, s.b, s.n)
	return new(big.Int).Mod(new(big.Int).Add(kv, gb), s.n)
}

// Challenge returns the salt and server public value B to send in M2.
func (s *SRPServer) Challenge() (salt []byte, b []byte) {
	return s.salt, s.bPub.Bytes()
}

// SetA ingests the client's public value A, computes the shared premaster
// secret S, the session key K = H(S), and the client proof M, and returns
// an error if A is degenerate (zero mod N).
func (s *SRPServer) SetA(aBytes []byte) error {
	a := new(big.Int).SetBytes(aBytes)
	if new(big.Int).Mod(a, s.n).Sign() == 0 {
		return fmt.Errorf("crypto: srp: client public value A is invalid")
	}
	s.a = a

	// u = H(PAD(A) || PAD(B))
	u := s.hashInt(padN(aBytes, s.n), padN(s.bPub.Bytes(), s.n))

	// S = (A * v^u)^b mod N
	vu := new(big.Int).Exp(s.verifier, u, s.n)
	avu := new(big.Int).Mod(new(big.Int).Mul(a, vu), s.n)
	S := new(big.Int).Exp(avu, s.b, s.n)

	s.sessionKey = s.hash(S.Bytes())
	s.m = s.clientProof(aBytes)
	return nil
}

// clientProof computes M = H(H(N) XOR H(g) || H(I) || s || A || B || K)
func (s *SRPServer) clientProof(aBytes []byte) []byte {
	hN := s.hash(s.n.Bytes())
	hG := s.hash(s.g.Bytes())
	xored := make([]byte, len(hN))
	for i := range hN {
		xored[i] = hN[i] ^ hG[i]
	}
	hI := s.hash(s.username)
	return s.hash(xored, hI, s.salt, aBytes, s.bPub.Bytes(), s.sessionKey)
}

// VerifyClientProof checks the client's M against the expected value and,
// on success, returns H_AMK = H(A || M || K) to send in M4.
func (s *SRPServer) VerifyClientProof(clientM []byte) ([]byte, bool) {
	if s.m == nil || !constantTimeEqual(s.m, clientM) {
		return nil, false
	}
	return s.hash(s.a.Bytes(), clientM, s.sessionKey), true
}

// SessionKey returns K, valid after a successful SetA.
func (s *SRPServer) SessionKey() []byte {
	return s.sessionKey
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
