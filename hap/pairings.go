package hap

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/tlv"
)

// Pairings-admin request types (§4.6 POST /pairings).
const (
	pairingsAdd    byte = 3
	pairingsRemove byte = 4
	pairingsList   byte = 5
)

// HandlePairings processes one POST /pairings TLV body on behalf of
// requester, who must already be an admin (§4.6). notifier is informed of
// any pairing change so the caller can refresh the mDNS announcement.
func HandlePairings(state *db.State, requester uuid.UUID, body []byte, notifier Notifier) ([]byte, error) {
	req, err := tlv.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("hap: decoding pairings request: %w", err)
	}

	if !state.IsAdmin(requester) {
		return errorResponse(seqM2, ErrAuthentication), nil
	}

	switch req.GetByte(tlv.TagRequestType) {
	case pairingsAdd:
		return handlePairingsAdd(state, req, notifier)
	case pairingsRemove:
		return handlePairingsRemove(state, req, notifier)
	case pairingsList:
		return handlePairingsList(state), nil
	default:
		return errorResponse(seqM2, ErrUnknown), nil
	}
}

func handlePairingsAdd(state *db.State, req tlv.Container, notifier Notifier) ([]byte, error) {
	uN, ok := req.Get(tlv.TagUsername)
	if !ok {
		return errorResponse(seqM2, ErrUnknown), nil
	}
	ltpkBytes, ok := req.Get(tlv.TagPublicKey)
	if !ok || len(ltpkBytes) != ed25519.PublicKeySize {
		return errorResponse(seqM2, ErrUnknown), nil
	}
	permBytes, ok := req.Get(tlv.TagPermissions)
	if !ok || len(permBytes) == 0 {
		return errorResponse(seqM2, ErrUnknown), nil
	}

	client := clientUUIDFor(uN)
	state.AddPairedClient(client, ed25519.PublicKey(ltpkBytes), db.Permission(permBytes[0]))
	state.RecordUsernameBytes(client, uN)
	if notifier != nil {
		notifier.NotifyPairingChanged()
	}
	return tlv.Encode(tlv.Pair(tlv.TagSequenceNumber, []byte{seqM2})), nil
}

func handlePairingsRemove(state *db.State, req tlv.Container, notifier Notifier) ([]byte, error) {
	uN, ok := req.Get(tlv.TagUsername)
	if !ok {
		return errorResponse(seqM2, ErrUnknown), nil
	}
	client := clientUUIDFor(uN)
	if state.RemovePairedClient(client) && notifier != nil {
		notifier.NotifyPairingChanged()
	}
	return tlv.Encode(tlv.Pair(tlv.TagSequenceNumber, []byte{seqM2})), nil
}

func handlePairingsList(state *db.State) []byte {
	out := tlv.Encode(tlv.Pair(tlv.TagSequenceNumber, []byte{seqM2}))

	clients := state.PairedClients()
	first := true
	for client, key := range clients {
		if !first {
			out = append(out, tlv.Encode(tlv.Pair(tlv.TagSeparator, nil))...)
		}
		first = false

		// uuid_to_bytes predates some paired clients (state persisted before
		// this field existed): fall back to the uppercase UUID string iOS
		// 16+ expects rather than leaving the entry unset (SPEC_FULL item 1).
		uN, ok := state.UsernameBytes(client)
		if !ok {
			uN = []byte(strings.ToUpper(client.String()))
		}
		perm, _ := state.ClientPermission(client)

		out = append(out, tlv.Encode(
			tlv.Pair(tlv.TagUsername, uN),
			tlv.Pair(tlv.TagPublicKey, key),
			tlv.Pair(tlv.TagPermissions, []byte{byte(perm)}),
		)...)
	}
	return out
}
