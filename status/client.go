package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/telemetry"
	"github.com/rs/zerolog/log"
)

// ErrStatusUnavailable is returned whenever the admin endpoint cannot be
// reached, answers non-200, or produces a payload that cannot be decoded.
// Callers never see transport-level errors directly.
var ErrStatusUnavailable = errors.New("cluster status unavailable")

// NodeRecord is the stable, version-independent view of one cluster member.
// It is rebuilt from scratch on every poll and never mutated in place.
type NodeRecord struct {
	NodeID     int64
	Address    string
	StartedAt  time.Time
	LastUpdate time.Time

	// ExplicitLive carries the admin API's own liveness verdict when the
	// payload includes one; nil means liveness must be inferred from
	// LastUpdate staleness.
	ExplicitLive *bool
}

// LiveAt reports whether the node counts as live at the given instant.
// Without an explicit flag a node is live iff its last update is strictly
// fresher than the staleness threshold; a missing timestamp means dead.
// False positives cannot occur (a dead node stops updating), but a paused
// poller can produce false negatives.
func (r NodeRecord) LiveAt(now time.Time, staleness time.Duration) bool {
	if r.ExplicitLive != nil {
		return *r.ExplicitLive
	}
	if r.LastUpdate.IsZero() {
		return false
	}
	return now.Sub(r.LastUpdate) < staleness
}

// Client fetches node status from the CockroachDB admin endpoint
type Client struct {
	baseURL string
	version cfg.AdminAPIVersion
	http    *http.Client
}

// NewClient creates a status client for the given admin UI base URL
func NewClient(baseURL string, version cfg.AdminAPIVersion, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		version: version,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchNodeStatus performs one GET {base_url}/_status/nodes and normalizes
// the payload into NodeRecords
func (c *Client) FetchNodeStatus(ctx context.Context) ([]NodeRecord, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_status/nodes", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.StatusFetchFailuresTotal.Inc()
		log.Debug().Err(err).Str("base_url", c.baseURL).Msg("Status endpoint unreachable")
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		telemetry.StatusFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: status endpoint returned %d", ErrStatusUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.StatusFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}

	records, err := decodeNodes(body, c.version)
	if err != nil {
		telemetry.StatusFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}

	telemetry.StatusFetchSeconds.Observe(time.Since(start).Seconds())
	return records, nil
}
