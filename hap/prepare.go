package hap

import (
	"encoding/json"
	"sync"
	"time"
)

// PreparedWrites tracks the (pid -> deadline) table PUT /prepare populates
// for one connection (§4.6). now is injected so tests can control expiry
// without sleeping.
type PreparedWrites struct {
	mu       sync.Mutex
	deadline map[int64]time.Time
	now      func() time.Time
}

// NewPreparedWrites constructs an empty table using the real wall clock.
func NewPreparedWrites() *PreparedWrites {
	return &PreparedWrites{deadline: map[int64]time.Time{}, now: time.Now}
}

type prepareRequest struct {
	PID int64 `json:"pid"`
	TTL int64 `json:"ttl"`
}

// HandlePrepare processes one PUT /prepare body and returns the JSON
// response (§4.6): {"status": 0} on success, {"status": -70410} if ttl is
// missing or non-positive.
func (p *PreparedWrites) HandlePrepare(body []byte) ([]byte, error) {
	var req prepareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return json.Marshal(map[string]int{"status": StatusInvalidValue})
	}
	if req.TTL <= 0 {
		return json.Marshal(map[string]int{"status": StatusInvalidValue})
	}

	p.mu.Lock()
	p.deadline[req.PID] = p.now().Add(time.Duration(req.TTL) * time.Millisecond)
	p.mu.Unlock()

	return json.Marshal(map[string]int{"status": 0})
}

// Consume reports whether pid has a live, unexpired reservation, and
// removes it either way: a prepared write is one-shot (§4.6).
func (p *PreparedWrites) Consume(pid int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	deadline, ok := p.deadline[pid]
	delete(p.deadline, pid)
	if !ok {
		return false
	}
	return !p.now().After(deadline)
}
