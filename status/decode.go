package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crdbtools/roachload/cfg"
)

// The admin payload schema has drifted across CockroachDB versions: the
// legacy shape nests identity under "desc" and reports liveness explicitly,
// the current shape is flat and only exposes an updatedAt timestamp in
// nanoseconds. All field-name knowledge stays in this file.

type statusPayload struct {
	Nodes []json.RawMessage `json:"nodes"`
}

type legacyNode struct {
	Desc struct {
		NodeID  int64 `json:"node_id"`
		Address struct {
			AddressField string `json:"address_field"`
		} `json:"address"`
	} `json:"desc"`
	Liveness *struct {
		IsLive bool `json:"is_live"`
	} `json:"liveness"`
	StartedAt string `json:"started_at"`
	UpdatedAt string `json:"updated_at"`
}

type currentNode struct {
	NodeID      int64           `json:"node_id"`
	NodeIDCamel int64           `json:"nodeId"`
	Address     string          `json:"address"`
	StartedAt   json.RawMessage `json:"startedAt"`
	UpdatedAt   json.RawMessage `json:"updatedAt"`
}

func decodeNodes(body []byte, version cfg.AdminAPIVersion) ([]NodeRecord, error) {
	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed status payload: %v", err)
	}

	records := make([]NodeRecord, 0, len(payload.Nodes))
	for _, raw := range payload.Nodes {
		v := version
		if v == cfg.APIVersionAuto {
			v = sniffVersion(raw)
		}

		var rec NodeRecord
		switch v {
		case cfg.APIVersionLegacy:
			rec = decodeLegacy(raw)
		default:
			rec = decodeCurrent(raw)
		}
		// Partial records are kept; the liveness policy marks them dead.
		// Dropping them would undercount failed nodes.
		records = append(records, rec)
	}

	return records, nil
}

// sniffVersion inspects one element for the legacy "desc" envelope. A
// cluster mid-upgrade can serve mixed shapes, so sniffing is per element.
func sniffVersion(raw json.RawMessage) cfg.AdminAPIVersion {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return cfg.APIVersionCurrent
	}
	if _, ok := probe["desc"]; ok {
		return cfg.APIVersionLegacy
	}
	return cfg.APIVersionCurrent
}

func decodeLegacy(raw json.RawMessage) NodeRecord {
	var n legacyNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return NodeRecord{}
	}

	rec := NodeRecord{
		NodeID:  n.Desc.NodeID,
		Address: n.Desc.Address.AddressField,
	}

	if n.Liveness != nil {
		live := n.Liveness.IsLive
		rec.ExplicitLive = &live
	}
	if t, err := time.Parse(time.RFC3339, n.StartedAt); err == nil {
		rec.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, n.UpdatedAt); err == nil {
		rec.LastUpdate = t
	}

	return rec
}

func decodeCurrent(raw json.RawMessage) NodeRecord {
	var n currentNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return NodeRecord{}
	}

	rec := NodeRecord{
		NodeID:  n.NodeID,
		Address: n.Address,
	}
	if rec.NodeID == 0 {
		rec.NodeID = n.NodeIDCamel
	}

	if t, ok := parseNanos(n.StartedAt); ok {
		rec.StartedAt = t
	}
	if t, ok := parseNanos(n.UpdatedAt); ok {
		rec.LastUpdate = t
	}

	return rec
}

// parseNanos accepts a nanosecond epoch timestamp encoded either as a JSON
// number or as a quoted string (protobuf JSON emits int64 as strings).
func parseNanos(raw json.RawMessage) (time.Time, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return time.Time{}, false
	}

	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil || nanos <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}
