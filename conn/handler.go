package conn

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ivucica/go-hap/accessory"
	"github.com/ivucica/go-hap/db"
	"github.com/ivucica/go-hap/hap"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// WithConn is installed as http.Server.ConnContext so every request handler
// can recover the *Conn that is actually carrying it (the stdlib
// equivalent of the teacher's HAPContext connection lookup, and the
// idiomatic Go way to do it since Go 1.13 — no hand-rolled context map is
// needed here).
func WithConn(ctx context.Context, c *Conn) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromRequest recovers the *Conn serving r. It panics if none is present,
// which would mean the server was misconfigured without ConnContext.
func FromRequest(r *http.Request) *Conn {
	return r.Context().Value(ctxKey{}).(*Conn)
}

// NewMux builds the paired+pairing HTTP handler for a single accessory or
// bridge graph (§4.4–§4.6). notifier is informed whenever pairing state
// changes so the caller can refresh the mDNS announcement.
func NewMux(log *logrus.Logger, state *db.State, graph accessory.Graph, notifier hap.Notifier) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/pair-setup", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if c.PairSetup == nil {
			ps, errResp := hap.NewPairSetup(state, notifier)
			if errResp != nil {
				writeTLV(w, errResp)
				return
			}
			c.PairSetup = ps
		}
		resp, err := c.PairSetup.Handle(body)
		if err != nil {
			log.WithError(err).Warn("pair-setup handler failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeTLV(w, resp)
	})

	mux.HandleFunc("/pair-verify", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if c.PairVerify == nil {
			pv, errResp := hap.NewPairVerify(state)
			if errResp != nil {
				writeTLV(w, errResp)
				return
			}
			c.PairVerify = pv
		}
		resp, err := c.PairVerify.Handle(body)
		if err != nil {
			log.WithError(err).Warn("pair-verify handler failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeTLV(w, resp)
		if c.PairVerify.Channel != nil {
			c.Upgrade(c.PairVerify.Channel)
			c.ClientUUID = c.PairVerify.ClientUUID
			c.Paired = true
		}
	})

	mux.HandleFunc("/accessories", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if !requireEncrypted(c, w) {
			return
		}
		body, err := hap.HandleGetAccessories(graph)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("/characteristics", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if !requireEncrypted(c, w) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			handleGetCharacteristics(w, r, graph)
		case http.MethodPut:
			handlePutCharacteristics(w, r, c, graph)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/prepare", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if !requireEncrypted(c, w) {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp, err := c.Prepared.HandlePrepare(body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/pairings", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if !requireEncrypted(c, w) {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp, err := hap.HandlePairings(state, c.ClientUUID, body, notifier)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeTLV(w, resp)
	})

	mux.HandleFunc("/resource", func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if !requireEncrypted(c, w) {
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		img, status, err := hap.HandleResource(r.Context(), graph, body)
		if err != nil {
			log.WithError(err).Warn("resource handler failed")
		}
		if status != 0 {
			writeJSON(w, http.StatusMultiStatus, mustJSON(map[string]int{"status": status}))
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	})

	return mux
}

func handleGetCharacteristics(w http.ResponseWriter, r *http.Request, graph accessory.Graph) {
	q := r.URL.Query()
	ids, err := hap.ParseIDList(q.Get("id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	opts := accessory.CharOptions{
		Meta:   q.Get("meta") == "1",
		Perms:  q.Get("perms") == "1",
		Type:   q.Get("type") == "1",
		Events: q.Get("ev") == "1",
	}
	body, status, err := hap.HandleGetCharacteristics(graph, ids, opts)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, body)
}

func handlePutCharacteristics(w http.ResponseWriter, r *http.Request, c *Conn, graph accessory.Graph) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	respBody, status, err := hap.HandlePutCharacteristics(graph, c, c.Prepared, body, c)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, respBody)
}

// requireEncrypted enforces §4.8: only /pair-setup and /pair-verify are
// reachable on an unencrypted connection. §7/§8 scenario 3 want HTTP 401
// with a {"status": -70401} body, not a bare status line.
func requireEncrypted(c *Conn, w http.ResponseWriter) bool {
	if c.State() != StateEncrypted {
		writeJSON(w, http.StatusUnauthorized, mustJSON(map[string]int{"status": hap.StatusUnprivileged}))
		return false
	}
	return true
}

func writeTLV(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/pairing+tlv8")
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/hap+json")
	}
	w.WriteHeader(status)
	w.Write(body)
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}
