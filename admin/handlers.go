package admin

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/workload"
)

// Handlers serves cluster health and workload results over HTTP
type Handlers struct {
	poller *health.Poller

	mu      sync.RWMutex
	summary *workload.Summary
}

// NewHandlers creates a Handlers instance over the given poller
func NewHandlers(poller *health.Poller) *Handlers {
	return &Handlers{poller: poller}
}

// SetSummary publishes the most recent workload run result
func (h *Handlers) SetSummary(s *workload.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summary = s
}

func (h *Handlers) lastSummary() *workload.Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.summary
}

// handleClusterHealth handles GET /cluster/health
func (h *Handlers) handleClusterHealth(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.poller.Latest()
	if !ok {
		msg := "no cluster snapshot available"
		if err != nil {
			msg = err.Error()
		}
		writeErrorResponse(w, http.StatusServiceUnavailable, msg)
		return
	}

	resp := map[string]any{
		"timestamp":  snap.Timestamp.UTC().Format(time.RFC3339),
		"live_count": snap.LiveCount,
		"dead_count": snap.DeadCount,
		"healthy":    snap.DeadCount == 0 && snap.LiveCount > 0,
	}
	if err != nil {
		// Stale snapshot: the last poll failed but an older one is served
		resp["last_poll_error"] = err.Error()
	}

	writeJSONResponse(w, resp)
}

// handleClusterMembers handles GET /cluster/members
func (h *Handlers) handleClusterMembers(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.poller.Latest()
	if !ok {
		msg := "no cluster snapshot available"
		if err != nil {
			msg = err.Error()
		}
		writeErrorResponse(w, http.StatusServiceUnavailable, msg)
		return
	}

	members := make([]map[string]any, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		m := map[string]any{
			"node_id": n.Node.NodeID,
			"address": n.Node.Address,
			"live":    n.Live,
		}
		if n.Uptime > 0 {
			m["uptime_seconds"] = int64(n.Uptime.Seconds())
		}
		if !n.Node.LastUpdate.IsZero() {
			m["last_update"] = n.Node.LastUpdate.UTC().Format(time.RFC3339)
		}
		members = append(members, m)
	}

	writeJSONResponse(w, members)
}

// handleWorkloadSummary handles GET /workload/summary
func (h *Handlers) handleWorkloadSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.lastSummary()
	if summary == nil {
		writeErrorResponse(w, http.StatusNotFound, "no workload run recorded")
		return
	}
	writeJSONResponse(w, summary)
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"error": message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
