package hap

import (
	"crypto/ed25519"
	"fmt"

	"github.com/google/uuid"
	gohapcrypto "github.com/ivucica/go-hap/crypto"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/secure"
	"github.com/ivucica/go-hap/tlv"
)

// PairVerify drives one connection's POST /pair-verify exchange (§4.5). A
// successful M3→M4 leaves Channel and ClientUUID populated; conn swaps the
// connection into encrypted mode using them.
type PairVerify struct {
	state *db.State

	expected byte
	ephemeral gohapcrypto.X25519KeyPair
	cpub      []byte
	spub      []byte
	shared    []byte
	sessionKey []byte

	// Channel and ClientUUID are set once M3→M4 succeeds.
	Channel    *secure.Channel
	ClientUUID uuid.UUID
}

// NewPairVerify begins a pair-verify exchange against state. It returns an
// error response immediately if the accessory has no paired clients yet
// (§4.5 "Rejects with authentication error if paired is false").
func NewPairVerify(state *db.State) (*PairVerify, []byte) {
	if !state.Paired() {
		return nil, errorResponse(seqM2, ErrAuthentication)
	}
	return &PairVerify{state: state, expected: seqM1}, nil
}

// Handle processes one TLV-encoded request body and returns the TLV body to
// send back. Once Handle returns successfully for M3→M4, callers must check
// Channel != nil and switch the connection to encrypted transport.
func (p *PairVerify) Handle(body []byte) ([]byte, error) {
	req, err := tlv.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("hap: decoding pair-verify request: %w", err)
	}
	seq := req.GetByte(tlv.TagSequenceNumber)

	switch seq {
	case seqM1:
		return p.handleM1(req)
	case seqM3:
		return p.handleM3(req)
	default:
		return errorResponse(seqM4, ErrAuthentication), nil
	}
}

func (p *PairVerify) handleM1(req tlv.Container) ([]byte, error) {
	if p.expected != seqM1 {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	cpub, ok := req.Get(tlv.TagPublicKey)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	ephemeral, err := gohapcrypto.GenerateX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("hap: generating pair-verify ephemeral key: %w", err)
	}
	shared, err := gohapcrypto.X25519(ephemeral.Private[:], cpub)
	if err != nil {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	macStr := []byte(p.state.MAC)
	signed := append(append(append([]byte{}, ephemeral.Public[:]...), macStr...), cpub...)
	sig := ed25519.Sign(p.state.PrivateKey, signed)

	sessionKey := gohapcrypto.HKDF(shared, []byte("Pair-Verify-Encrypt-Salt"), []byte("Pair-Verify-Encrypt-Info"))

	innerResp := tlv.Encode(
		tlv.Pair(tlv.TagUsername, macStr),
		tlv.Pair(tlv.TagProof, sig),
	)
	encrypted, err := gohapcrypto.Seal(sessionKey, gohapcrypto.PadNonce("PV-Msg02"), innerResp, nil)
	if err != nil {
		return nil, fmt.Errorf("hap: encrypting pair-verify M2: %w", err)
	}

	p.cpub = append([]byte(nil), cpub...)
	p.spub = append([]byte(nil), ephemeral.Public[:]...)
	p.shared = shared
	p.sessionKey = sessionKey
	p.ephemeral = ephemeral
	p.expected = seqM3

	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM2}),
		tlv.Pair(tlv.TagEncryptedData, encrypted),
		tlv.Pair(tlv.TagPublicKey, p.spub),
	), nil
}

func (p *PairVerify) handleM3(req tlv.Container) ([]byte, error) {
	if p.expected != seqM3 {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	encrypted, ok := req.Get(tlv.TagEncryptedData)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	inner, err := gohapcrypto.Open(p.sessionKey, gohapcrypto.PadNonce("PV-Msg03"), encrypted, nil)
	if err != nil {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	innerTLV, err := tlv.Decode(inner)
	if err != nil {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	uN, ok := innerTLV.Get(tlv.TagUsername)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}
	sig, ok := innerTLV.Get(tlv.TagProof)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	client := clientUUIDFor(uN)
	ltpk, ok := p.state.LookupClient(client)
	if !ok {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	signed := append(append(append([]byte{}, p.cpub...), uN...), p.spub...)
	if !ed25519.Verify(ltpk, signed, sig) {
		return errorResponse(seqM4, ErrAuthentication), nil
	}

	channel, err := secure.NewChannel(p.shared)
	if err != nil {
		return nil, fmt.Errorf("hap: establishing secure channel: %w", err)
	}
	p.Channel = channel
	p.ClientUUID = client

	if p.state.RecordUsernameBytes(client, uN) {
		// RecordUsernameBytes changes state in memory only. Neither Handle
		// nor its caller in package conn persists it; the bytes reach disk
		// with the next State.Persist, which the server runs on a pairing
		// change.
	}

	p.expected = 0
	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seqM4}),
	), nil
}
