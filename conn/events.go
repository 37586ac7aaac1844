package conn

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// coalesceWindow is how long a non-immediate event waits for siblings
// before flushing (§4.7).
const coalesceWindow = 500 * time.Millisecond

// pendingEvents implements the per-connection coalescing buffer of §4.7:
// the latest value for a given (aid, iid) wins, and a batch of updates
// collapses into a single EVENT frame.
type pendingEvents struct {
	mu     sync.Mutex
	conn   *Conn
	values map[topicKey]interface{}
	timer  *time.Timer
}

func newPendingEvents(c *Conn) *pendingEvents {
	return &pendingEvents{conn: c, values: map[topicKey]interface{}{}}
}

// Enqueue records a new value for (aid, iid). immediate events flush right
// away; others start (or ride) the 0.5s coalescing timer.
func (p *pendingEvents) Enqueue(aid, iid uint64, value interface{}, immediate bool) {
	p.mu.Lock()
	p.values[topicKey{aid, iid}] = value
	hadTimer := p.timer != nil
	p.mu.Unlock()

	if immediate {
		go p.flush()
		return
	}
	if !hadTimer {
		p.mu.Lock()
		p.timer = time.AfterFunc(coalesceWindow, p.flush)
		p.mu.Unlock()
	}
}

func (p *pendingEvents) flush() {
	p.mu.Lock()
	if len(p.values) == 0 {
		p.timer = nil
		p.mu.Unlock()
		return
	}
	batch := make([]map[string]interface{}, 0, len(p.values))
	for k, v := range p.values {
		batch = append(batch, map[string]interface{}{"aid": k.AID, "iid": k.IID, "value": v})
	}
	p.values = map[topicKey]interface{}{}
	p.timer = nil
	p.mu.Unlock()

	body, err := json.Marshal(map[string]interface{}{"characteristics": batch})
	if err != nil {
		return
	}
	frame := fmt.Sprintf("EVENT/1.0 200 OK\r\nContent-Type: application/hap+json\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	p.conn.Write([]byte(frame))
}
