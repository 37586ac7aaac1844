// Package server implements the driver (§2 component 8): it owns the
// listening socket, the connection registry, the mDNS announcer, the event
// bus, persistence and the server's start/stop lifecycle — the one piece
// that ties together packages db, accessory, conn, hap and mdns into a
// runnable HAP accessory server. Named Server/Config/NewServer/ListenAndServe
// after the teacher's own server.go, generalized from its brutella/hc
// plumbing to this core's protocol stack.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ivucica/go-hap/accessory"
	"github.com/ivucica/go-hap/conn"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/hap"
	"github.com/ivucica/go-hap/mdns"
	"github.com/sirupsen/logrus"
)

// idleTimeout is the §4.8 idle-connection timeout: "closed after
// 90 × 60 × 60 seconds."
const idleTimeout = 90 * 60 * 60 * time.Second

// idleSweepInterval is how often the driver's single ticker checks every
// registered connection for idleness (SPEC_FULL item 4: one ticker across
// all connections, not one timer per connection, matching pyhap's
// AccessoryDriver.check_idle being invoked by a loop-level periodic
// callback).
const idleSweepInterval = time.Minute

// Server provides the same start/stop interface shape as the teacher's
// server.Server, retargeted at this protocol stack.
type Server interface {
	ListenAndServe() error
	Port() string
	Stop()
}

// Config configures one driver instance (the ambient Config-struct pattern
// of SPEC_FULL's AMBIENT STACK section).
type Config struct {
	// Port to listen on; "" lets the OS choose a free port, mirroring the
	// teacher's net.Listen(c.Port) behavior.
	Port string
	// StoragePath is where State is persisted (§6). Empty disables
	// persistence (useful for tests).
	StoragePath string
	// PinCode is the 8-digit "XXX-XX-XXX" setup code (§3).
	PinCode string
	// Address is the accessory's display name, used both in the
	// AccessoryInformation service and as the mDNS instance name (§4.9).
	Address string
	// Category hints the iOS pairing UI (§4.9, §6).
	Category accessory.Category
	// AdvertisedHost is the mDNS hostname this accessory answers as, e.g.
	// "go-hap.local.". Required only if Advertise is true.
	AdvertisedHost string
	// Advertise controls whether the driver runs an mDNS responder; off by
	// default in tests that don't want real multicast traffic.
	Advertise bool
	// Log receives structured driver/connection/pairing log lines (§9
	// design note, SPEC_FULL AMBIENT STACK).
	Log *logrus.Logger
}

// driver is the concrete Server. It is the sole owner of State, the
// connection registry and the event bus (§3 Ownership).
type driver struct {
	log   *logrus.Logger
	state *db.State
	graph accessory.Graph

	storagePath string
	category    accessory.Category

	listener net.Listener
	httpSrv  *http.Server

	connsMu sync.Mutex
	conns   map[*conn.Conn]struct{}

	advertiser *mdns.Advertiser
	advCancel  context.CancelFunc

	sweepStop chan struct{}
	sweepDone chan struct{}

	port string
}

// NewServer constructs a driver serving graph. It loads State from
// c.StoragePath if present, or creates a fresh one.
func NewServer(c Config, graph accessory.Graph) (Server, error) {
	log := c.Log
	if log == nil {
		log = logrus.New()
	}

	state, err := loadOrCreateState(c)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", c.Port)
	if err != nil {
		return nil, err
	}

	d := &driver{
		log:         log,
		state:       state,
		graph:       graph,
		storagePath: c.StoragePath,
		category:    c.Category,
		listener:    ln,
		conns:       map[*conn.Conn]struct{}{},
		port:        ExtractPort(ln.Addr()),
	}
	if port, err := strconv.Atoi(d.port); err == nil {
		state.Port = port
	}

	if c.Advertise {
		adv, err := mdns.NewAdvertiser(log.WithField("component", "mdns"), c.AdvertisedHost)
		if err != nil {
			ln.Close()
			return nil, err
		}
		d.advertiser = adv
	}

	mux := conn.NewMux(log, state, graph, d)
	d.httpSrv = &http.Server{
		Handler: mux,
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			if wrapped, ok := c.(*conn.Conn); ok {
				return conn.WithConn(ctx, wrapped)
			}
			return ctx
		},
		ConnState: d.onConnState,
	}

	d.installEventBus()

	return d, nil
}

func loadOrCreateState(c Config) (*db.State, error) {
	if c.StoragePath != "" {
		if _, err := os.Stat(c.StoragePath); err == nil {
			return db.LoadState(c.StoragePath, c.Address, c.PinCode, 0)
		}
	}
	return db.NewState(c.Address, c.PinCode, 0)
}

// installEventBus registers the driver's fan-out callback on every
// characteristic currently in the graph (§4.7). This core's only writer of
// characteristic values is the HTTP handler path (device integrations are
// out of scope, §1), so owning the sole OnChange slot per characteristic is
// sufficient; a concrete device accessory wanting its own side effect would
// chain through this callback rather than replace it.
func (d *driver) installEventBus() {
	for _, acc := range d.graph.AllAccessories() {
		aid := acc.AID()
		for _, svc := range acc.Services() {
			for _, c := range svc.Characteristics() {
				iid := c.IID()
				c.OnChange(func(v interface{}, origin interface{}) {
					d.broadcast(aid, iid, v, origin)
				})
			}
		}
	}
}

// broadcast fans a characteristic change out to every connection
// subscribed to (aid, iid) except origin, the connection (if any) whose
// own request produced the change (§4.7 echo suppression).
func (d *driver) broadcast(aid, iid uint64, value interface{}, origin interface{}) {
	d.connsMu.Lock()
	targets := make([]*conn.Conn, 0, len(d.conns))
	for c := range d.conns {
		if c == origin {
			continue
		}
		targets = append(targets, c)
	}
	d.connsMu.Unlock()

	for _, c := range targets {
		c.NotifyEvent(aid, iid, value, false)
	}
}

// onConnState tracks every *conn.Conn the listener hands to http.Server so
// Stop and the idle sweep can reach them, matching the teacher's
// context.ActiveConnections() registry.
func (d *driver) onConnState(nc net.Conn, state http.ConnState) {
	c, ok := nc.(*conn.Conn)
	if !ok {
		return
	}
	switch state {
	case http.StateNew:
		d.connsMu.Lock()
		d.conns[c] = struct{}{}
		d.connsMu.Unlock()
	case http.StateClosed, http.StateHijacked:
		d.connsMu.Lock()
		delete(d.conns, c)
		d.connsMu.Unlock()
	}
}

// ListenAndServe starts serving. It blocks until the listener is closed.
func (d *driver) ListenAndServe() error {
	d.sweepStop = make(chan struct{})
	d.sweepDone = make(chan struct{})
	go d.runIdleSweep()

	if d.advertiser != nil {
		ctx, cancel := context.WithCancel(context.Background())
		d.advCancel = cancel
		go func() {
			if err := d.advertiser.Run(ctx); err != nil && ctx.Err() == nil {
				d.log.WithError(err).Warn("mdns: responder stopped")
			}
		}()
		if err := d.advertiser.Update(d.state, int(d.category)); err != nil {
			d.log.WithError(err).Warn("mdns: initial advertisement failed")
		}
	}

	wrapped := conn.NewListener(d.listener)
	return d.httpSrv.Serve(wrapped)
}

// Port returns the port the driver listens on.
func (d *driver) Port() string { return d.port }

// Stop closes every registered connection and the listener, and tears down
// the mDNS advertisement (§3 Lifecycle).
func (d *driver) Stop() {
	if d.sweepStop != nil {
		close(d.sweepStop)
		<-d.sweepDone
	}

	d.connsMu.Lock()
	for c := range d.conns {
		c.Close()
	}
	d.connsMu.Unlock()

	if d.advertiser != nil {
		d.advertiser.Close()
	}
	if d.advCancel != nil {
		d.advCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.httpSrv.Shutdown(ctx)
}

// runIdleSweep closes any connection that has carried no traffic for
// idleTimeout, checking every registered connection once per
// idleSweepInterval (§4.8, SPEC_FULL item 4).
func (d *driver) runIdleSweep() {
	defer close(d.sweepDone)
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.sweepStop:
			return
		case <-ticker.C:
			d.connsMu.Lock()
			var stale []*conn.Conn
			for c := range d.conns {
				if c.IdleSince() >= idleTimeout {
					stale = append(stale, c)
				}
			}
			d.connsMu.Unlock()
			for _, c := range stale {
				d.log.WithField("peer", c.RemoteAddr()).Info("closing idle connection")
				c.Close()
			}
		}
	}
}

// NotifyPairingChanged implements hap.Notifier (§4.4, §4.6): any pairing
// mutation bumps ConfigVersion, persists state and refreshes the mDNS
// announcement, matching pyhap's AccessoryDriver.pair/unpair calling
// update_advertisment() (SPEC_FULL item 3).
func (d *driver) NotifyPairingChanged() {
	d.state.BumpConfigVersion()

	if d.storagePath != "" {
		if err := d.state.Persist(d.storagePath); err != nil {
			// §7: persistence failure is logged, never crashes the loop.
			d.log.WithError(err).Error("persisting state failed")
		}
	}

	if d.advertiser != nil {
		if err := d.advertiser.Update(d.state, int(d.category)); err != nil {
			d.log.WithError(err).Warn("mdns: advertisement update failed")
		}
	}
}

var _ hap.Notifier = (*driver)(nil)

// ExtractPort returns the numeric port from addr's string form, e.g.
// "12345" from "[::]:12345".
func ExtractPort(addr net.Addr) string {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return port
}
