package faulttest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/workload"
)

// NodeController is the slice of process control the scenario needs
type NodeController interface {
	Kill(ctx context.Context, nodeID int) error
	Start(ctx context.Context, nodeID int) error
}

// WorkloadRunner drives the background workload during the failure window
type WorkloadRunner interface {
	Run(ctx context.Context, opCount, concurrency int) (*workload.Summary, error)
}

// SnapshotSource produces on-demand cluster snapshots
type SnapshotSource interface {
	PollOnce(ctx context.Context) (health.ClusterSnapshot, error)
}

// Config controls one fault-injection run
type Config struct {
	TargetNodes []int
	Operations  int
	Concurrency int

	FailureDelay time.Duration // workload warm-up before the first kill
	KillSpacing  time.Duration // gap between kills when multiple targets
	ObserveDelay time.Duration // settle time between kill and degraded snapshot
	RecoveryWait time.Duration // rejoin time between restart and final snapshot
}

// SnapshotCounts is the reportable slice of a cluster snapshot
type SnapshotCounts struct {
	Timestamp time.Time `json:"timestamp"`
	Live      int       `json:"live"`
	Dead      int       `json:"dead"`
}

// Report captures the full scenario outcome for JSON output
type Report struct {
	Test        string    `json:"test"`
	TargetNodes []int     `json:"target_nodes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	Baseline  SnapshotCounts `json:"baseline"`
	Degraded  SnapshotCounts `json:"degraded"`
	Recovered SnapshotCounts `json:"recovered"`

	Workload     *workload.Summary `json:"workload"`
	RecoveryTime time.Duration     `json:"recovery_time_ns"`
}

// Scenario kills nodes under a running workload and reports how the
// cluster and the workload behaved
type Scenario struct {
	controller NodeController
	runner     WorkloadRunner
	snapshots  SnapshotSource
	config     Config
}

func NewScenario(controller NodeController, runner WorkloadRunner, snapshots SnapshotSource, config Config) *Scenario {
	if config.FailureDelay == 0 {
		config.FailureDelay = 5 * time.Second
	}
	if config.KillSpacing == 0 {
		config.KillSpacing = 2 * time.Second
	}
	if config.ObserveDelay == 0 {
		config.ObserveDelay = 5 * time.Second
	}
	if config.RecoveryWait == 0 {
		config.RecoveryWait = 10 * time.Second
	}
	return &Scenario{
		controller: controller,
		runner:     runner,
		snapshots:  snapshots,
		config:     config,
	}
}

// Run executes the scenario: verify health, start the workload, kill the
// target nodes, observe the degraded cluster, wait for the workload,
// restart the nodes, and verify recovery.
func (s *Scenario) Run(ctx context.Context) (*Report, error) {
	if len(s.config.TargetNodes) == 0 {
		return nil, fmt.Errorf("at least one target node is required")
	}

	report := &Report{
		Test:        "node_failure",
		TargetNodes: s.config.TargetNodes,
		StartedAt:   time.Now(),
	}

	log.Info().Ints("targets", s.config.TargetNodes).Msg("Verifying cluster health")
	baseline, err := s.snapshots.PollOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("cluster not reachable before test: %w", err)
	}
	if baseline.DeadCount > 0 {
		return nil, fmt.Errorf("cluster unhealthy before test: %d dead nodes", baseline.DeadCount)
	}
	report.Baseline = counts(baseline)

	log.Info().Int("operations", s.config.Operations).Int("concurrency", s.config.Concurrency).Msg("Starting background workload")
	type runResult struct {
		summary *workload.Summary
		err     error
	}
	// The workload gets a scenario-scoped context so an early abort below
	// stops it instead of leaving it running until the caller cancels
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	done := make(chan runResult, 1)
	go func() {
		summary, err := s.runner.Run(runCtx, s.config.Operations, s.config.Concurrency)
		done <- runResult{summary, err}
	}()

	if err := sleep(ctx, s.config.FailureDelay); err != nil {
		return nil, err
	}

	for i, nodeID := range s.config.TargetNodes {
		log.Warn().Int("node", nodeID).Msg("Injecting node failure")
		if err := s.controller.Kill(ctx, nodeID); err != nil {
			return nil, fmt.Errorf("failed to kill node %d: %w", nodeID, err)
		}
		if i < len(s.config.TargetNodes)-1 {
			if err := sleep(ctx, s.config.KillSpacing); err != nil {
				return nil, err
			}
		}
	}

	if err := sleep(ctx, s.config.ObserveDelay); err != nil {
		return nil, err
	}

	// The status endpoint may itself be down when the primary was a target;
	// a fetch failure here is part of the observation, not a test error
	if degraded, err := s.snapshots.PollOnce(ctx); err == nil {
		report.Degraded = counts(degraded)
		log.Info().Int("live", degraded.LiveCount).Int("dead", degraded.DeadCount).Msg("Cluster state with failed nodes")
	} else {
		log.Warn().Err(err).Msg("Status endpoint unreachable during failure window")
	}

	log.Info().Msg("Waiting for workload to complete")
	result := <-done
	if result.err != nil {
		return nil, fmt.Errorf("workload failed: %w", result.err)
	}
	report.Workload = result.summary

	log.Info().Ints("targets", s.config.TargetNodes).Msg("Restarting failed nodes")
	recoveryStart := time.Now()
	for _, nodeID := range s.config.TargetNodes {
		if err := s.controller.Start(ctx, nodeID); err != nil {
			return nil, fmt.Errorf("failed to restart node %d: %w", nodeID, err)
		}
	}

	if err := sleep(ctx, s.config.RecoveryWait); err != nil {
		return nil, err
	}
	report.RecoveryTime = time.Since(recoveryStart)

	recovered, err := s.snapshots.PollOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("cluster not reachable after restart: %w", err)
	}
	report.Recovered = counts(recovered)
	report.FinishedAt = time.Now()

	log.Info().
		Int("live", recovered.LiveCount).
		Int("dead", recovered.DeadCount).
		Dur("recovery", report.RecoveryTime).
		Int("workload_success", report.Workload.Success).
		Int("workload_failed", report.Workload.Failed).
		Msg("Fault injection scenario complete")

	return report, nil
}

func counts(snap health.ClusterSnapshot) SnapshotCounts {
	return SnapshotCounts{
		Timestamp: snap.Timestamp,
		Live:      snap.LiveCount,
		Dead:      snap.DeadCount,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
