// Package conn implements the per-connection protocol state machine (§4.8):
// a net.Conn wrapper that starts in cleartext Open state and, once
// pair-verify completes, transparently encrypts/decrypts every byte
// through package secure — the same role the teacher's netio.HAPTCPListener
// and netio.HAPContext play for its own (unrelated) secure-session wrapper.
package conn

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ivucica/go-hap/hap"
	"github.com/ivucica/go-hap/secure"
)

// State is a connection's position in the §4.8 state machine.
type State int

// States.
const (
	StateOpen State = iota
	StateEncrypted
)

// Conn wraps a raw net.Conn, adding the encrypted-transport upgrade and the
// per-connection pairing/session state every HAP handler needs.
type Conn struct {
	net.Conn

	mu      sync.Mutex
	state   State
	channel *secure.Channel
	pending []byte // decrypted bytes read but not yet consumed

	// writeMu serializes EncryptFrame (which advances the channel's write
	// counter) with the socket write carrying that frame, so two writers —
	// an HTTP response and the event-coalescing flush goroutine — can never
	// put a later counter on the wire ahead of an earlier one.
	writeMu sync.Mutex

	lastActivity time.Time

	// Session state, valid only while the relevant handshake is underway or
	// has completed.
	PairSetup  *hap.PairSetup
	PairVerify *hap.PairVerify
	ClientUUID uuid.UUID
	Paired     bool

	Prepared      *hap.PreparedWrites
	subscriptions map[topicKey]bool

	events *pendingEvents
}

type topicKey struct {
	AID, IID uint64
}

// New wraps inner, starting in Open state.
func New(inner net.Conn) *Conn {
	c := &Conn{
		Conn:          inner,
		state:         StateOpen,
		lastActivity:  time.Now(),
		Prepared:      hap.NewPreparedWrites(),
		subscriptions: map[topicKey]bool{},
	}
	c.events = newPendingEvents(c)
	return c
}

// State reports the connection's current protocol state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Upgrade transitions the connection to Encrypted using channel, the secure
// channel negotiated by pair-verify M1→M4 (§4.5, §4.8).
func (c *Conn) Upgrade(channel *secure.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = channel
	c.state = StateEncrypted
}

// Read implements net.Conn, transparently decrypting once Encrypted (§4.2).
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	encrypted := c.state == StateEncrypted
	c.mu.Unlock()

	c.touch()
	if !encrypted {
		return c.Conn.Read(p)
	}

	for len(c.pending) == 0 {
		raw := make([]byte, 4096)
		n, err := c.Conn.Read(raw)
		if n > 0 {
			c.mu.Lock()
			frames, ferr := c.channel.Feed(raw[:n])
			c.mu.Unlock()
			for _, f := range frames {
				c.pending = append(c.pending, f...)
			}
			if ferr != nil {
				return 0, ferr
			}
		}
		if err != nil {
			return 0, err
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements net.Conn, transparently encrypting once Encrypted (§4.2).
// EncryptFrame and the socket write it feeds are done under writeMu so that
// concurrent writers (an HTTP response and the event-coalescing flush) never
// land their frames on the wire out of nonce-counter order.
func (c *Conn) Write(p []byte) (int, error) {
	c.touch()

	c.mu.Lock()
	encrypted := c.state == StateEncrypted
	c.mu.Unlock()

	if !encrypted {
		return c.Conn.Write(p)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	wire, err := c.channel.EncryptFrame(p)
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if _, err := c.Conn.Write(wire); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// IdleSince returns how long the connection has carried no traffic.
func (c *Conn) IdleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

// Subscribe and Unsubscribe implement hap.Subscriber (§4.6, §4.7).
func (c *Conn) Subscribe(aid, iid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topicKey{aid, iid}] = true
}

func (c *Conn) Unsubscribe(aid, iid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, topicKey{aid, iid})
}

// Subscribed reports whether this connection currently subscribes to
// (aid, iid).
func (c *Conn) Subscribed(aid, iid uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions[topicKey{aid, iid}]
}

// NotifyEvent enqueues a characteristic update for delivery to this
// connection if it is subscribed to (aid, iid) and encrypted (§4.7). The
// driver calls this for every subscriber of a topic except the connection
// that originated the write, so echoes are suppressed.
func (c *Conn) NotifyEvent(aid, iid uint64, value interface{}, immediate bool) {
	if c.State() != StateEncrypted || !c.Subscribed(aid, iid) {
		return
	}
	c.events.Enqueue(aid, iid, value, immediate)
}
