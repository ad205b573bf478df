package faulttest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/workload"
)

type stubController struct {
	mu      sync.Mutex
	killed  []int
	started []int
	killErr error
}

func (s *stubController) Kill(ctx context.Context, nodeID int) error {
	if s.killErr != nil {
		return s.killErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = append(s.killed, nodeID)
	return nil
}

func (s *stubController) Start(ctx context.Context, nodeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, nodeID)
	return nil
}

type stubRunner struct {
	summary *workload.Summary
	err     error

	// When set, Run blocks until its context is cancelled and then closes
	// stopped, so tests can observe the workload being torn down
	blockUntilCancel bool
	stopped          chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, opCount, concurrency int) (*workload.Summary, error) {
	if s.blockUntilCancel {
		<-ctx.Done()
		close(s.stopped)
		return nil, ctx.Err()
	}
	return s.summary, s.err
}

// stubSnapshots returns queued snapshots in order, repeating the last one
type stubSnapshots struct {
	mu    sync.Mutex
	queue []health.ClusterSnapshot
	errs  []error
}

func (s *stubSnapshots) PollOnce(ctx context.Context) (health.ClusterSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap health.ClusterSnapshot
	if len(s.queue) > 0 {
		snap = s.queue[0]
		if len(s.queue) > 1 {
			s.queue = s.queue[1:]
		}
	}
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		if len(s.errs) > 1 {
			s.errs = s.errs[1:]
		}
	}
	return snap, err
}

func snapshot(live, dead int) health.ClusterSnapshot {
	return health.ClusterSnapshot{Timestamp: time.Now(), LiveCount: live, DeadCount: dead}
}

func fastConfig(targets ...int) Config {
	return Config{
		TargetNodes:  targets,
		Operations:   100,
		Concurrency:  4,
		FailureDelay: time.Millisecond,
		KillSpacing:  time.Millisecond,
		ObserveDelay: time.Millisecond,
		RecoveryWait: time.Millisecond,
	}
}

func TestScenario_FullCycle(t *testing.T) {
	t.Parallel()

	controller := &stubController{}
	runner := &stubRunner{summary: &workload.Summary{Operations: 100, Success: 92, Failed: 8}}
	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{
		snapshot(3, 0), // baseline
		snapshot(2, 1), // degraded
		snapshot(3, 0), // recovered
	}}

	s := NewScenario(controller, runner, snapshots, fastConfig(2))
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int{2}, controller.killed)
	require.Equal(t, []int{2}, controller.started)

	require.Equal(t, 3, report.Baseline.Live)
	require.Equal(t, 1, report.Degraded.Dead)
	require.Equal(t, 0, report.Recovered.Dead)
	require.Equal(t, 92, report.Workload.Success)
	require.Greater(t, report.RecoveryTime, time.Duration(0))
	require.False(t, report.FinishedAt.IsZero())
}

func TestScenario_MultipleTargets(t *testing.T) {
	t.Parallel()

	controller := &stubController{}
	runner := &stubRunner{summary: &workload.Summary{Operations: 100, Success: 80, Failed: 20}}
	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{
		snapshot(3, 0),
		snapshot(1, 2),
		snapshot(3, 0),
	}}

	s := NewScenario(controller, runner, snapshots, fastConfig(1, 2))
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int{1, 2}, controller.killed)
	require.Equal(t, []int{1, 2}, controller.started)
	require.Equal(t, 2, report.Degraded.Dead)
}

func TestScenario_RefusesUnhealthyCluster(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{snapshot(2, 1)}}
	s := NewScenario(&stubController{}, &stubRunner{}, snapshots, fastConfig(1))

	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unhealthy")
}

func TestScenario_RefusesUnreachableCluster(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{errs: []error{fmt.Errorf("connection refused")}}
	s := NewScenario(&stubController{}, &stubRunner{}, snapshots, fastConfig(1))

	_, err := s.Run(context.Background())
	require.Error(t, err)
}

func TestScenario_RequiresTargets(t *testing.T) {
	t.Parallel()

	s := NewScenario(&stubController{}, &stubRunner{}, &stubSnapshots{}, fastConfig())
	_, err := s.Run(context.Background())
	require.Error(t, err)
}

func TestScenario_KillFailureAborts(t *testing.T) {
	t.Parallel()

	controller := &stubController{killErr: fmt.Errorf("no process on port")}
	runner := &stubRunner{summary: &workload.Summary{}}
	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{snapshot(3, 0)}}

	s := NewScenario(controller, runner, snapshots, fastConfig(2))
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, controller.started)
}

func TestScenario_EarlyFailureStopsWorkload(t *testing.T) {
	t.Parallel()

	controller := &stubController{killErr: fmt.Errorf("no process on port")}
	runner := &stubRunner{blockUntilCancel: true, stopped: make(chan struct{})}
	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{snapshot(3, 0)}}

	s := NewScenario(controller, runner, snapshots, fastConfig(2))
	_, err := s.Run(context.Background())
	require.Error(t, err)

	// The abort must tear down the background workload, not orphan it
	select {
	case <-runner.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("workload still running after scenario aborted")
	}
}

func TestScenario_WorkloadFailureAborts(t *testing.T) {
	t.Parallel()

	controller := &stubController{}
	runner := &stubRunner{err: fmt.Errorf("invalid mix")}
	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{snapshot(3, 0), snapshot(2, 1)}}

	s := NewScenario(controller, runner, snapshots, fastConfig(1))
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "workload failed")
}

func TestScenario_DegradedFetchFailureTolerated(t *testing.T) {
	t.Parallel()

	controller := &stubController{}
	runner := &stubRunner{summary: &workload.Summary{Operations: 10, Success: 10}}
	snapshots := &stubSnapshots{
		queue: []health.ClusterSnapshot{
			snapshot(3, 0), // baseline
			{},             // degraded fetch fails
			snapshot(3, 0), // recovered
		},
		errs: []error{nil, fmt.Errorf("status endpoint down"), nil},
	}

	s := NewScenario(controller, runner, snapshots, fastConfig(1))
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Degraded.Live)
	require.Equal(t, 3, report.Recovered.Live)
}

func TestScenario_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshots := &stubSnapshots{queue: []health.ClusterSnapshot{snapshot(3, 0)}}
	s := NewScenario(&stubController{}, &stubRunner{summary: &workload.Summary{}}, snapshots, fastConfig(1))

	_, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
