package hap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ivucica/go-hap/accessory"
)

// HandleGetAccessories renders the GET /accessories body for the whole
// graph (§4.6).
func HandleGetAccessories(g accessory.Graph) ([]byte, error) {
	return json.Marshal(g.AccessoriesDocument())
}

// AIDIID identifies one characteristic within a graph.
type AIDIID struct {
	AID uint64
	IID uint64
}

// ParseIDList parses the GET /characteristics "id" query parameter:
// "aid1.iid1,aid2.iid2,…" (§4.6).
func ParseIDList(raw string) ([]AIDIID, error) {
	parts := strings.Split(raw, ",")
	out := make([]AIDIID, 0, len(parts))
	for _, part := range parts {
		dot := strings.IndexByte(part, '.')
		if dot < 0 {
			return nil, fmt.Errorf("hap: malformed characteristic id %q", part)
		}
		aid, err := strconv.ParseUint(part[:dot], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hap: malformed aid in %q: %w", part, err)
		}
		iid, err := strconv.ParseUint(part[dot+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hap: malformed iid in %q: %w", part, err)
		}
		out = append(out, AIDIID{AID: aid, IID: iid})
	}
	return out, nil
}

// HandleGetCharacteristics resolves every id against g and renders the
// GET /characteristics response body and HTTP status (§4.6): 200 if every
// id resolved to a readable characteristic, 207 otherwise.
func HandleGetCharacteristics(g accessory.Graph, ids []AIDIID, opts accessory.CharOptions) ([]byte, int, error) {
	entries := make([]map[string]interface{}, len(ids))
	allOK := true

	for i, id := range ids {
		c, ok := accessory.FindCharacteristic(g, id.AID, id.IID)
		if !ok {
			entries[i] = map[string]interface{}{"aid": id.AID, "iid": id.IID, "status": StatusCommunicationFailure}
			allOK = false
			continue
		}
		if !c.Readable() {
			entries[i] = map[string]interface{}{"aid": id.AID, "iid": id.IID, "status": StatusWriteOnly}
			allOK = false
			continue
		}
		entries[i] = c.HAPValue(id.AID, opts)
	}

	status := 200
	if !allOK {
		status = 207
	}
	body, err := json.Marshal(map[string]interface{}{"characteristics": entries})
	return body, status, err
}
