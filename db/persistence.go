package db

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// persistedClientProperties mirrors ClientProperties on disk.
type persistedClientProperties struct {
	Perms int `json:"perms"`
}

// persistedState is the exact on-disk JSON shape from §6:
//
//	{mac, config_version, paired_clients: {uuid: hex(ltpk)},
//	 client_properties: {uuid: {perms: int}},
//	 uuid_to_bytes: {uuid: hex(bytes)},
//	 private_key: hex(seed), public_key: hex}
type persistedState struct {
	MAC              string                                `json:"mac"`
	ConfigVersion    int                                   `json:"config_version"`
	PairedClients    map[string]string                     `json:"paired_clients"`
	ClientProperties map[string]persistedClientProperties  `json:"client_properties"`
	UUIDToBytes      map[string]string                     `json:"uuid_to_bytes"`
	PrivateKey       string                                `json:"private_key"`
	PublicKey        string                                `json:"public_key"`
}

// MarshalJSON renders State in the persistence format of §6.
func (s *State) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := persistedState{
		MAC:              s.MAC,
		ConfigVersion:    s.ConfigVersion,
		PairedClients:    map[string]string{},
		ClientProperties: map[string]persistedClientProperties{},
		UUIDToBytes:      map[string]string{},
		PrivateKey:       hexEncode(s.PrivateKey.Seed()),
		PublicKey:        hexEncode(s.PublicKey),
	}
	for client, key := range s.pairedClients {
		ps.PairedClients[client.String()] = hexEncode(key)
	}
	for client, props := range s.clientProperties {
		ps.ClientProperties[client.String()] = persistedClientProperties{Perms: int(props.Permissions)}
	}
	for client, raw := range s.uuidToBytes {
		ps.UUIDToBytes[client.String()] = hexEncode(raw)
	}
	return json.Marshal(ps)
}

// UnmarshalJSON restores State from the persistence format of §6. The
// caller's Address/Port/SetupID are not touched; only pairing-relevant and
// identity fields are populated.
func (s *State) UnmarshalJSON(data []byte) error {
	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return fmt.Errorf("db: decoding persisted state: %w", err)
	}

	privSeed, err := hexDecode(ps.PrivateKey)
	if err != nil {
		return fmt.Errorf("db: decoding private key: %w", err)
	}
	pub, err := hexDecode(ps.PublicKey)
	if err != nil {
		return fmt.Errorf("db: decoding public key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.MAC = ps.MAC
	s.ConfigVersion = ps.ConfigVersion
	s.PrivateKey = ed25519.NewKeyFromSeed(privSeed)
	s.PublicKey = ed25519.PublicKey(pub)

	s.pairedClients = map[uuid.UUID]ed25519.PublicKey{}
	for clientStr, keyHex := range ps.PairedClients {
		client, err := uuid.Parse(clientStr)
		if err != nil {
			return fmt.Errorf("db: parsing paired client uuid %q: %w", clientStr, err)
		}
		key, err := hexDecode(keyHex)
		if err != nil {
			return fmt.Errorf("db: decoding paired client key for %q: %w", clientStr, err)
		}
		s.pairedClients[client] = key
	}

	s.clientProperties = map[uuid.UUID]ClientProperties{}
	for clientStr, props := range ps.ClientProperties {
		client, err := uuid.Parse(clientStr)
		if err != nil {
			return fmt.Errorf("db: parsing client-properties uuid %q: %w", clientStr, err)
		}
		s.clientProperties[client] = ClientProperties{Permissions: Permission(props.Perms)}
	}

	s.uuidToBytes = map[uuid.UUID][]byte{}
	for clientStr, rawHex := range ps.UUIDToBytes {
		client, err := uuid.Parse(clientStr)
		if err != nil {
			return fmt.Errorf("db: parsing uuid_to_bytes uuid %q: %w", clientStr, err)
		}
		raw, err := hexDecode(rawHex)
		if err != nil {
			return fmt.Errorf("db: decoding uuid_to_bytes value for %q: %w", clientStr, err)
		}
		s.uuidToBytes[client] = raw
	}

	return nil
}

// Persist writes State to path atomically: write-temp, fsync, rename (§3
// Lifecycle, §6 Persistence, §5 "writes fsync before ack").
func (s *State) Persist(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("db: marshaling state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("db: creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("db: writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("db: fsyncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("db: closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("db: renaming temp state file into place: %w", err)
	}
	return nil
}

// LoadState reads and parses a previously-persisted State from path,
// preserving the given address/pin/port which are not part of the
// persisted form. setup_id is not part of the persisted form either (§6):
// it is freshly generated here, matching pyhap's State, whose constructor
// always mints a new setup_id and whose encoder never restores one.
func LoadState(path, address, pin string, port int) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := NewState(address, pin, port)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
