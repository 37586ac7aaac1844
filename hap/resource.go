package hap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ivucica/go-hap/accessory"
)

type resourceRequest struct {
	AID          *uint64 `json:"aid,omitempty"`
	ResourceType string  `json:"resource-type"`
	ImageWidth   int     `json:"image-width"`
	ImageHeight  int     `json:"image-height"`
}

// snapshotDeadline bounds how long a Snapshotter may take (§4.6).
const snapshotDeadline = 9 * time.Second

// HandleResource resolves the accessory named by body's "aid" (or the
// graph's sole accessory if omitted) and invokes its Snapshotter, if any
// (§4.6 POST /resource). Returns the JPEG bytes and a HAP status (0 on
// success), or one of the Status* error codes when the accessory or
// capability is missing. This is a HAP status, not an HTTP status code —
// the caller is responsible for picking the HTTP status (§7: always 207
// on failure, the HAP code travels only in the JSON body).
func HandleResource(ctx context.Context, g accessory.Graph, body []byte) ([]byte, int, error) {
	var req resourceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, StatusCommunicationFailure, err
	}

	var acc *accessory.Accessory
	if req.AID != nil {
		found, ok := accessory.FindAccessory(g, *req.AID)
		if !ok {
			return nil, StatusCommunicationFailure, nil
		}
		acc = found
	} else {
		all := g.AllAccessories()
		if len(all) == 0 {
			return nil, StatusCommunicationFailure, nil
		}
		acc = all[0]
	}

	snapper, ok := acc.Snapshotter()
	if !ok {
		return nil, StatusCommunicationFailure, nil
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotDeadline)
	defer cancel()
	img, err := snapper.Snapshot(ctx, req.ImageWidth, req.ImageHeight)
	if err != nil {
		return nil, StatusCommunicationFailure, fmt.Errorf("hap: taking snapshot: %w", err)
	}
	return img, 0, nil
}
