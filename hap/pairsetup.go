package hap

import (
	"crypto/ed25519"
	"fmt"

	"github.com/google/uuid"
	gohapcrypto "github.com/ivucica/go-hap/crypto"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/tlv"
)

// Notifier is implemented by whatever owns the mDNS announcement; pairing
// state changes must bump it (§4.4, §4.6).
type Notifier interface {
	NotifyPairingChanged()
}

// PairSetup drives one connection's POST /pair-setup exchange (§4.4). It is
// single-use: once it reaches M6, every further request on it fails. A step
// that fails leaves it at that step, so the step may be sent again. conn
// constructs one PairSetup per connection, on its first /pair-setup
// request, and keeps it for the connection's lifetime.
type PairSetup struct {
	state    *db.State
	notifier Notifier

	srp      *gohapcrypto.SRPServer
	expected byte
}

// NewPairSetup begins a pair-setup exchange against state. It returns an
// error immediately if the accessory is already paired (§4.4 "Rejects with
// UNAVAILABLE TLV error if paired is true").
func NewPairSetup(state *db.State, notifier Notifier) (*PairSetup, []byte) {
	if state.Paired() {
		return nil, errorResponse(seqM2, ErrUnavailable)
	}
	return &PairSetup{state: state, notifier: notifier, expected: seqM1}, nil
}

// Handle processes one TLV-encoded request body and returns the TLV body to
// send back.
func (p *PairSetup) Handle(body []byte) ([]byte, error) {
	req, err := tlv.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("hap: decoding pair-setup request: %w", err)
	}
	seq := req.GetByte(tlv.TagSequenceNumber)

	switch seq {
	case seqM1:
		return p.handleM1(req)
	case seqM3:
		return p.handleM3(req)
	case seqM5:
		return p.handleM5(req)
	default:
		return errorResponse(seqM2, ErrAuthentication), nil
	}
}

func (p *PairSetup) handleM1(req tlv.Container) ([]byte, error) {
	if p.expected != seqM1 {
		return errorResponse(seqM2, ErrAuthentication), nil
	}
	srp, err := gohapcrypto.NewSRPServer([]byte("Pair-Setup"), p.state.PinCode)
	if err != nil {
		return nil, fmt.Errorf("hap: constructing SRP server: %w", err)
	}
	p.srp = srp
	salt, pub := srp.Challenge()
	p.expected = seqM3
	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM2}),
		tlv.Pair(tlv.TagSalt, salt),
		tlv.Pair(tlv.TagPublicKey, pub),
	), nil
}

func (p *PairSetup) handleM3(req tlv.Container) ([]byte, error) {
	if p.expected != seqM3 || p.srp == nil {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	a, ok := req.Get(tlv.TagPublicKey)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	clientM, ok := req.Get(tlv.TagPasswordProof)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	if err := p.srp.SetA(a); err != nil {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	hamk, okProof := p.srp.VerifyClientProof(clientM)
	if !okProof {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	p.expected = seqM5
	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM4}),
		tlv.Pair(tlv.TagPasswordProof, hamk),
	), nil
}

func (p *PairSetup) handleM5(req tlv.Container) ([]byte, error) {
	if p.expected != seqM5 || p.srp == nil {
		return errorResponse(seqM6, ErrAuthentication), nil
	}
	encrypted, ok := req.Get(tlv.TagEncryptedData)
	if !ok {
		return errorResponse(seqM6, ErrAuthentication), nil
	}

	K := p.srp.SessionKey()
	encKey := gohapcrypto.HKDF(K, []byte("Pair-Setup-Encrypt-Salt"), []byte("Pair-Setup-Encrypt-Info"))
	nonce := gohapcrypto.PadNonce("PS-Msg05")

	inner, err := gohapcrypto.Open(encKey, nonce, encrypted, nil)
	if err != nil {
		return errorResponse(seqM6, ErrAuthentication), nil
	}
	innerTLV, err := tlv.Decode(inner)
	if err != nil {
		return errorResponse(seqM6, ErrAuthentication), nil
	}

	uN, ok := innerTLV.Get(tlv.TagUsername)
	if !ok {
		return errorResponse(seqM6, ErrAuthentication), nil
	}
	ltpkBytes, ok := innerTLV.Get(tlv.TagPublicKey)
	if !ok || len(ltpkBytes) != ed25519.PublicKeySize {
		return errorResponse(seqM6, ErrAuthentication), nil
	}
	sig, ok := innerTLV.Get(tlv.TagProof)
	if !ok {
		return errorResponse(seqM6, ErrAuthentication), nil
	}

	ctrlSign := gohapcrypto.HKDF(K, []byte("Pair-Setup-Controller-Sign-Salt"), []byte("Pair-Setup-Controller-Sign-Info"))
	ltpk := ed25519.PublicKey(ltpkBytes)
	signed := append(append(append([]byte{}, ctrlSign...), uN...), ltpk...)
	if !ed25519.Verify(ltpk, signed, sig) {
		return errorResponse(seqM6, ErrAuthentication), nil
	}

	client := clientUUIDFor(uN)
	p.state.AddPairedClient(client, ltpk, db.PermissionAdmin)

	accSign := gohapcrypto.HKDF(K, []byte("Pair-Setup-Accessory-Sign-Salt"), []byte("Pair-Setup-Accessory-Sign-Info"))
	macStr := []byte(p.state.MAC)
	accSigned := append(append(append([]byte{}, accSign...), macStr...), p.state.PublicKey...)
	sigA := ed25519.Sign(p.state.PrivateKey, accSigned)

	respInner := tlv.Encode(
		tlv.Pair(tlv.TagUsername, macStr),
		tlv.Pair(tlv.TagPublicKey, p.state.PublicKey),
		tlv.Pair(tlv.TagProof, sigA),
	)
	respEncrypted, err := gohapcrypto.Seal(encKey, gohapcrypto.PadNonce("PS-Msg06"), respInner, nil)
	if err != nil {
		return nil, fmt.Errorf("hap: encrypting pair-setup M6: %w", err)
	}

	if p.notifier != nil {
		p.notifier.NotifyPairingChanged()
	}

	p.expected = 0 // one-shot: further calls on this PairSetup always fail
	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM6}),
		tlv.Pair(tlv.TagEncryptedData, respEncrypted),
	), nil
}

// clientUUIDFor derives a stable UUID for the raw username bytes a
// controller chooses during pairing. Real controllers send a UUID-shaped
// string; clientUUIDFor parses that directly, and falls back to a
// deterministic name-based UUID for the rare peer that sends something
// else, so the paired-client table always has a concrete key.
func clientUUIDFor(raw []byte) uuid.UUID {
	if parsed, err := uuid.Parse(string(raw)); err == nil {
		return parsed
	}
	return uuid.NewSHA1(uuid.Nil, raw)
}
