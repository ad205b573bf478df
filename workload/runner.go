package workload

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/metrics"
	"github.com/crdbtools/roachload/sqlexec"
)

// SQLExecutor is the slice of the transaction executor the generator needs.
// Kept narrow so tests can drive the runner without a database.
type SQLExecutor interface {
	Query(ctx context.Context, query string, args ...any) (sqlexec.Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	ExecTransaction(ctx context.Context, stmts []sqlexec.Statement) error
}

// Summary is the reporting output of one workload run
type Summary struct {
	RunID       string                   `json:"run_id"`
	StartedAt   time.Time                `json:"started_at"`
	Duration    time.Duration            `json:"duration_ns"`
	Operations  int                      `json:"operations"`
	Concurrency int                      `json:"concurrency"`
	Success     int                      `json:"success"`
	Failed      int                      `json:"failed"`
	TPS         float64                  `json:"tps"`
	ByKind      map[string]metrics.Stats `json:"by_kind"`
}

// Runner drives synthetic operations against the cluster through a bounded
// worker pool
type Runner struct {
	exec     SQLExecutor
	agg      *metrics.Aggregator
	mix      Mix
	refs     *referentCache
	keyspace int
}

// NewRunner builds a runner from the workload configuration
func NewRunner(exec SQLExecutor, agg *metrics.Aggregator, wcfg cfg.WorkloadConfiguration) (*Runner, error) {
	mix, err := NewMix(wcfg.Mix)
	if err != nil {
		return nil, err
	}

	refs, err := newReferentCache()
	if err != nil {
		return nil, err
	}

	keyspace := wcfg.ReferentKeyspace
	if keyspace < 1 {
		keyspace = 1
	}

	return &Runner{
		exec:     exec,
		agg:      agg,
		mix:      mix,
		refs:     refs,
		keyspace: keyspace,
	}, nil
}

// Run dispatches opCount operations across concurrency workers and blocks
// until every one has been executed or accounted for. The returned summary
// always satisfies Success+Failed == opCount, including after cancellation.
func (r *Runner) Run(ctx context.Context, opCount, concurrency int) (*Summary, error) {
	if opCount < 0 {
		return nil, fmt.Errorf("operation count must be >= 0")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1")
	}

	runID := uuid.NewString()
	start := time.Now()
	r.agg.Reset()

	log.Info().
		Str("run_id", runID).
		Int("operations", opCount).
		Int("concurrency", concurrency).
		Float64("mix_total_weight", r.mix.Total()).
		Msg("Starting workload run")

	jobs := make(chan struct{})
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(start.UnixNano() + int64(worker)))
			for range jobs {
				r.runOne(ctx, rng)
			}
		}(w)
	}

	dispatched := 0
dispatch:
	for i := 0; i < opCount; i++ {
		select {
		case jobs <- struct{}{}:
			dispatched++
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Int("dispatched", dispatched).Msg("Workload run cancelled")
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	// Operations never dispatched still count toward the completeness
	// contract; they are recorded as failures of their would-be kind.
	if dispatched < opCount {
		rng := rand.New(rand.NewSource(start.UnixNano()))
		for i := dispatched; i < opCount; i++ {
			r.agg.Record(r.mix.Pick(rng).String(), false, 0)
		}
	}

	duration := time.Since(start)
	success, failed := r.agg.Totals()

	summary := &Summary{
		RunID:       runID,
		StartedAt:   start,
		Duration:    duration,
		Operations:  opCount,
		Concurrency: concurrency,
		Success:     success,
		Failed:      failed,
		ByKind:      r.agg.Summary(),
	}
	if duration > 0 {
		summary.TPS = float64(opCount) / duration.Seconds()
	}

	log.Info().
		Str("run_id", runID).
		Int("success", success).
		Int("failed", failed).
		Dur("duration", duration).
		Float64("tps", summary.TPS).
		Msg("Workload run complete")

	return summary, nil
}

// runOne selects, executes, and records a single operation. Exactly one
// Record call happens per invocation, panics included.
func (r *Runner) runOne(ctx context.Context, rng *rand.Rand) {
	kind := r.mix.Pick(rng)
	start := time.Now()
	err := r.execute(ctx, rng, kind)
	r.agg.Record(kind.String(), err == nil, time.Since(start))

	if err != nil {
		log.Debug().Err(err).Stringer("kind", kind).Msg("Operation failed")
	}
}

func (r *Runner) execute(ctx context.Context, rng *rand.Rand, kind OpKind) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("operation panicked: %v", rec)
		}
	}()

	switch kind {
	case OpCreateOrder:
		return r.executeCreateOrder(ctx, rng)
	case OpReadOrder:
		return r.executeReadOrder(ctx, rng)
	case OpUpdateOrder:
		return r.executeUpdateOrder(ctx, rng)
	case OpAnalytics:
		return r.executeAnalytics(ctx, rng)
	}
	return fmt.Errorf("no handler for operation kind %d", kind)
}
