package health

import (
	"context"
	"sync"
	"time"

	"github.com/crdbtools/roachload/status"
	"github.com/crdbtools/roachload/telemetry"
	"github.com/rs/zerolog/log"
)

// Fetcher is the slice of the status client the poller needs
type Fetcher interface {
	FetchNodeStatus(ctx context.Context) ([]status.NodeRecord, error)
}

// Poller periodically fetches node status and keeps the latest snapshot
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	staleness time.Duration

	// OnSnapshot, when set before Start, is invoked for every successful
	// evaluation (used by the console monitor)
	OnSnapshot func(ClusterSnapshot)

	mu      sync.RWMutex
	latest  ClusterSnapshot
	hasSnap bool
	lastErr error

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPoller creates a poller; call Start to begin polling
func NewPoller(fetcher Fetcher, interval, staleness time.Duration) *Poller {
	return &Poller{
		fetcher:   fetcher,
		interval:  interval,
		staleness: staleness,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic polling loop
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.pollLoop()
}

// Stop stops the poller and waits for the loop to exit
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// Latest returns the most recent snapshot and the last fetch error. A stale
// snapshot alongside a non-nil error means the endpoint has become
// unreachable since the snapshot was taken.
func (p *Poller) Latest() (ClusterSnapshot, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasSnap, p.lastErr
}

// PollOnce performs a single fetch+evaluate cycle
func (p *Poller) PollOnce(ctx context.Context) (ClusterSnapshot, error) {
	records, err := p.fetcher.FetchNodeStatus(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		return ClusterSnapshot{}, err
	}

	snap := Evaluate(time.Now(), p.staleness, records)

	p.mu.Lock()
	p.latest = snap
	p.hasSnap = true
	p.lastErr = nil
	p.mu.Unlock()

	telemetry.ClusterNodesLive.Set(float64(snap.LiveCount))
	telemetry.ClusterNodesDead.Set(float64(snap.DeadCount))

	return snap, nil
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-ticker.C:
			p.poll()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	snap, err := p.PollOnce(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Cluster status poll failed")
		return
	}

	log.Debug().
		Int("live", snap.LiveCount).
		Int("dead", snap.DeadCount).
		Msg("Cluster snapshot updated")

	if p.OnSnapshot != nil {
		p.OnSnapshot(snap)
	}
}
