// Package mdns implements the §4.9 advertisement design: publishing the
// accessory as "_hap._tcp.local." with the TXT record fields controllers
// use for discovery and re-pairing cues, and re-publishing whenever the
// fields that matter to a controller change.
package mdns

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/ivucica/go-hap/db"
	"github.com/sirupsen/logrus"
)

// republishDelay is the short pause between unregistering the previous
// announcement and registering the new one, matching the teacher's own
// bonjour re-announce pattern of not overlapping the two.
const republishDelay = 100 * time.Millisecond

// Advertiser owns the single `_hap._tcp.local.` mDNS responder for one
// accessory (§4.9). The driver is its sole owner and calls Update whenever
// paired, ConfigVersion, or the listening address changes.
type Advertiser struct {
	log  *logrus.Entry
	host string

	mu        sync.Mutex
	responder dnssd.Responder
	handle    dnssd.ServiceHandle
	cancel    context.CancelFunc

	lastPaired  bool
	lastVersion int
	lastPort    int
}

// NewAdvertiser constructs an Advertiser for a responder bound to host (the
// machine's mDNS hostname, e.g. "go-hap.local.").
func NewAdvertiser(log *logrus.Entry, host string) (*Advertiser, error) {
	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mdns: creating responder: %w", err)
	}
	return &Advertiser{log: log, host: host, responder: responder}, nil
}

// Run drives the underlying responder's event loop until ctx is canceled.
// The driver runs this in its own goroutine for the lifetime of the server.
func (a *Advertiser) Run(ctx context.Context) error {
	return a.responder.Respond(ctx)
}

// Update (re)publishes the TXT record for state, unregistering any prior
// announcement first (§4.9: "re-published ... whenever paired transitions,
// config_version changes, or the listening address changes"). Calling
// Update when nothing advertisement-relevant changed is a harmless no-op.
func (a *Advertiser) Update(state *db.State, category int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	paired := state.Paired()
	version := state.ConfigVersion
	port := state.Port
	if a.handle != nil && paired == a.lastPaired && version == a.lastVersion && port == a.lastPort {
		return nil
	}

	if a.handle != nil {
		a.responder.Remove(a.handle)
		a.handle = nil
		time.Sleep(republishDelay)
	}

	cfg := dnssd.Config{
		Name:   state.Address,
		Type:   "_hap._tcp",
		Domain: "local",
		Host:   a.host,
		Port:   port,
		Text:   txtRecord(state, category, paired),
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("mdns: building service: %w", err)
	}

	handle, err := a.responder.Add(service)
	if err != nil {
		return fmt.Errorf("mdns: adding service: %w", err)
	}

	a.handle = handle
	a.lastPaired = paired
	a.lastVersion = version
	a.lastPort = port
	a.log.WithFields(logrus.Fields{
		"paired":  paired,
		"c#":      version,
		"address": fmt.Sprintf("%s:%d", a.host, port),
	}).Info("mdns: advertisement updated")
	return nil
}

// Close tears down the announcement. The caller must also cancel the
// context passed to Run.
func (a *Advertiser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle != nil {
		a.responder.Remove(a.handle)
		a.handle = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// txtRecord builds the key/value pairs of §4.9's table.
func txtRecord(state *db.State, category int, paired bool) map[string]string {
	sf := "1"
	if paired {
		sf = "0"
	}
	return map[string]string{
		"md": state.Address,
		"pv": "1.1",
		"id": state.MAC,
		"c#": fmt.Sprintf("%d", state.ConfigVersion),
		"s#": "1",
		"ff": "0",
		"ci": fmt.Sprintf("%d", category),
		"sf": sf,
		"sh": setupHash(state.SetupID, state.MAC),
	}
}

// setupHash computes "sh": base64 of the first 4 bytes of
// SHA-512(setup_id || id) (§4.9).
func setupHash(setupID, mac string) string {
	sum := sha512.Sum512([]byte(setupID + mac))
	return base64.StdEncoding.EncodeToString(sum[:4])
}
