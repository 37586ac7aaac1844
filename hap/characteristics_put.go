package hap

import (
	"encoding/json"

	"github.com/ivucica/go-hap/accessory"
)

// Subscriber is implemented by whatever owns the per-connection event
// subscription set (§4.6 PUT /characteristics "ev", §4.7).
type Subscriber interface {
	Subscribe(aid, iid uint64)
	Unsubscribe(aid, iid uint64)
}

type characteristicWrite struct {
	AID   uint64      `json:"aid"`
	IID   uint64      `json:"iid"`
	Value interface{} `json:"value,omitempty"`
	Ev    *bool       `json:"ev,omitempty"`
	R     bool        `json:"r,omitempty"`
}

type putCharacteristicsRequest struct {
	Characteristics []characteristicWrite `json:"characteristics"`
	PID             *int64                `json:"pid,omitempty"`
}

// HandlePutCharacteristics applies one PUT /characteristics body against g,
// subscribing/unsubscribing through sub and consuming any prepared write
// through prepared (§4.6). origin identifies the connection making the
// request; it is threaded through to every Characteristic.SetValueFrom
// call so the driver's event fan-out can exclude it (§4.7). Returns the
// response body and HTTP status: 204 with no body if every entry succeeded
// and none requested a value echo, 207 with a characteristics array
// otherwise.
func HandlePutCharacteristics(g accessory.Graph, sub Subscriber, prepared *PreparedWrites, body []byte, origin interface{}) ([]byte, int, error) {
	var req putCharacteristicsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, 0, err
	}

	if req.PID != nil && !prepared.Consume(*req.PID) {
		entries := make([]map[string]interface{}, len(req.Characteristics))
		for i, w := range req.Characteristics {
			entries[i] = map[string]interface{}{"aid": w.AID, "iid": w.IID, "status": StatusInvalidValue}
		}
		body, err := json.Marshal(map[string]interface{}{"characteristics": entries})
		return body, 207, err
	}

	entries := make([]map[string]interface{}, 0, len(req.Characteristics))
	anyStatus := false

	for _, w := range req.Characteristics {
		c, ok := accessory.FindCharacteristic(g, w.AID, w.IID)
		if !ok {
			entries = append(entries, map[string]interface{}{"aid": w.AID, "iid": w.IID, "status": StatusCommunicationFailure})
			anyStatus = true
			continue
		}

		if w.Ev != nil {
			if *w.Ev {
				sub.Subscribe(w.AID, w.IID)
			} else {
				sub.Unsubscribe(w.AID, w.IID)
			}
		}

		if w.Value == nil {
			entries = append(entries, map[string]interface{}{"aid": w.AID, "iid": w.IID})
			continue
		}

		if !c.Writable() {
			entries = append(entries, map[string]interface{}{"aid": w.AID, "iid": w.IID, "status": StatusReadOnly})
			anyStatus = true
			continue
		}

		if err := c.SetValueFrom(w.Value, origin); err != nil {
			entries = append(entries, map[string]interface{}{"aid": w.AID, "iid": w.IID, "status": StatusCommunicationFailure})
			anyStatus = true
			continue
		}

		entry := map[string]interface{}{"aid": w.AID, "iid": w.IID}
		if w.R {
			entry["value"] = c.Value()
			anyStatus = true
		}
		entries = append(entries, entry)
	}

	if !anyStatus {
		return nil, 204, nil
	}
	body2, err := json.Marshal(map[string]interface{}{"characteristics": entries})
	return body2, 207, err
}
