// Package db implements the identity and pairing store (§3 "State"): the
// accessory's stable MAC/PIN/setup-id, its Ed25519 long-term key pair, and
// the table of paired controllers and their permissions.
package db

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	gohapcrypto "github.com/ivucica/go-hap/crypto"
)

// Permission is a paired client's access level.
type Permission int

const (
	// PermissionUser can read/write characteristics but not manage pairings.
	PermissionUser Permission = 0x00
	// PermissionAdmin can additionally add/remove/list pairings (§3, §4.6).
	PermissionAdmin Permission = 0x01
)

// ClientProperties holds the per-client metadata kept alongside its public key.
type ClientProperties struct {
	Permissions Permission
}

// State is the per-accessory singleton identity store described in §3. All
// mutating methods are safe for concurrent use; the driver is the sole
// owner but pair/unpair may be invoked from the connection-handling loop
// while a persistence goroutine reads a consistent snapshot.
type State struct {
	mu sync.RWMutex

	Address       string
	MAC           string
	PinCode       []byte // 8-digit "XXX-XX-XXX" as bytes
	Port          int
	SetupID       string
	ConfigVersion int

	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey

	pairedClients    map[uuid.UUID]ed25519.PublicKey
	clientProperties map[uuid.UUID]ClientProperties
	uuidToBytes      map[uuid.UUID][]byte
}

// NewState creates a fresh identity with a freshly generated Ed25519 key
// pair, random MAC and setup-id, and the given pin code. Use LoadState to
// restore a previously-persisted State instead.
func NewState(address, pin string, port int) (*State, error) {
	pub, priv, err := gohapcrypto.GenerateEd25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("db: generating identity key pair: %w", err)
	}
	mac, err := randomMAC()
	if err != nil {
		return nil, err
	}
	setupID, err := randomSetupID()
	if err != nil {
		return nil, err
	}

	return &State{
		Address:          address,
		MAC:              mac,
		PinCode:          []byte(pin),
		Port:             port,
		SetupID:          setupID,
		ConfigVersion:    1,
		PublicKey:        pub,
		PrivateKey:       priv,
		pairedClients:    map[uuid.UUID]ed25519.PublicKey{},
		clientProperties: map[uuid.UUID]ClientProperties{},
		uuidToBytes:      map[uuid.UUID][]byte{},
	}, nil
}

// Paired reports whether at least one client is paired (§3 invariant
// paired ⇔ paired_clients ≠ ∅).
func (s *State) Paired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairedClients) > 0
}

// IsAdmin reports whether the given client holds admin permissions.
func (s *State) IsAdmin(client uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientProperties[client].Permissions == PermissionAdmin
}

// LookupClient returns the long-term public key for a paired client.
func (s *State) LookupClient(client uuid.UUID) (ed25519.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.pairedClients[client]
	return key, ok
}

// UsernameBytes returns the exact bytes the controller used as its
// username when it first completed pair-verify, if recorded (§4.5, §8
// scenario 7).
func (s *State) UsernameBytes(client uuid.UUID) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.uuidToBytes[client]
	return b, ok
}

// RecordUsernameBytes stores the raw username bytes for client if not
// already recorded. Returns true if it newly recorded them (the caller
// should then persist).
func (s *State) RecordUsernameBytes(client uuid.UUID, raw []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uuidToBytes[client]; ok {
		return false
	}
	s.uuidToBytes[client] = append([]byte(nil), raw...)
	return true
}

// AddPairedClient inserts or updates a paired client's key and permissions
// (pair-setup M5, §4.4, and pairings-add, §4.6). Adding an existing client
// updates its key/permissions without duplicating the entry (§8
// idempotence).
func (s *State) AddPairedClient(client uuid.UUID, key ed25519.PublicKey, perm Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairedClients[client] = key
	s.clientProperties[client] = ClientProperties{Permissions: perm}
}

// RemovePairedClient removes client and, if it was the last admin, removes
// every remaining non-admin client atomically (§3 invariant, §8).
// Returns true if the set of paired clients changed.
func (s *State) RemovePairedClient(client uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pairedClients[client]; !ok {
		// Removing a non-existent client succeeds silently (§8 idempotence).
		return false
	}

	wasLastAdmin := s.clientProperties[client].Permissions == PermissionAdmin && s.countAdminsLocked() == 1

	delete(s.pairedClients, client)
	delete(s.clientProperties, client)
	delete(s.uuidToBytes, client)

	if wasLastAdmin {
		for c := range s.pairedClients {
			delete(s.pairedClients, c)
			delete(s.clientProperties, c)
			delete(s.uuidToBytes, c)
		}
	}
	return true
}

func (s *State) countAdminsLocked() int {
	n := 0
	for _, p := range s.clientProperties {
		if p.Permissions == PermissionAdmin {
			n++
		}
	}
	return n
}

// ClientPermission returns a paired client's permission level.
func (s *State) ClientPermission(client uuid.UUID) (Permission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.clientProperties[client]
	return p.Permissions, ok
}

// PairedClients returns a snapshot of client UUID -> public key.
func (s *State) PairedClients() map[uuid.UUID]ed25519.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ed25519.PublicKey, len(s.pairedClients))
	for k, v := range s.pairedClients {
		out[k] = v
	}
	return out
}

// BumpConfigVersion increments ConfigVersion, which must strictly increase
// across any change to the exposed accessory graph (§8).
func (s *State) BumpConfigVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConfigVersion++
	return s.ConfigVersion
}

func randomMAC() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5]), nil
}

const setupIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomSetupID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, 4)
	for i, v := range b {
		out[i] = setupIDAlphabet[int(v)%len(setupIDAlphabet)]
	}
	return string(out), nil
}

// hexEncode/hexDecode are small helpers kept here (rather than imported from
// encoding/hex at every call site) to match the teacher's to-hex/from-hex
// helper pattern (pyhap util.tohex/fromhex).
func hexEncode(b []byte) string { return hex.EncodeToString(b) }
func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }
