package health

import (
	"time"

	"github.com/crdbtools/roachload/status"
)

// NodeHealth is one evaluated cluster member
type NodeHealth struct {
	Node   status.NodeRecord
	Live   bool
	Uptime time.Duration // Zero when the start time is unknown
}

// ClusterSnapshot is an immutable aggregate of all nodes at one instant.
// LiveCount+DeadCount always equals len(Nodes).
type ClusterSnapshot struct {
	Timestamp time.Time
	Nodes     []NodeHealth
	LiveCount int
	DeadCount int
}

// Evaluate derives a cluster health snapshot from normalized node records.
// Pure function: no I/O, input order preserved, partial records counted as
// dead rather than dropped.
func Evaluate(now time.Time, staleness time.Duration, nodes []status.NodeRecord) ClusterSnapshot {
	snap := ClusterSnapshot{
		Timestamp: now,
		Nodes:     make([]NodeHealth, 0, len(nodes)),
	}

	for _, rec := range nodes {
		nh := NodeHealth{
			Node: rec,
			Live: rec.LiveAt(now, staleness),
		}
		if !rec.StartedAt.IsZero() && now.After(rec.StartedAt) {
			nh.Uptime = now.Sub(rec.StartedAt)
		}

		if nh.Live {
			snap.LiveCount++
		} else {
			snap.DeadCount++
		}
		snap.Nodes = append(snap.Nodes, nh)
	}

	return snap
}
