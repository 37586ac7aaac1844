package conn

import "net"

// Listener wraps a net.Listener so every accepted connection starts life as
// a *Conn in Open state (§4.8).
type Listener struct {
	net.Listener
}

// NewListener wraps inner.
func NewListener(inner net.Listener) *Listener {
	return &Listener{Listener: inner}
}

// Accept implements net.Listener.
func (l *Listener) Accept() (net.Conn, error) {
	raw, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return New(raw), nil
}
