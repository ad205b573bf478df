package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/metrics"
)

// BenchmarkConfig controls a comparative benchmark: a concurrency sweep at
// the configured mix, then one run per named preset mix at the configured
// concurrency. CoolDown separates consecutive runs so one run's connection
// churn does not bleed into the next measurement.
type BenchmarkConfig struct {
	Operations        int
	ConcurrencyLevels []int
	Presets           []string
	CoolDown          time.Duration

	Base cfg.WorkloadConfiguration
}

// ConcurrencyResult is one point of the concurrency sweep
type ConcurrencyResult struct {
	Concurrency int      `json:"concurrency"`
	Summary     *Summary `json:"summary"`
}

// PresetResult is one run of a named mix
type PresetResult struct {
	Name    string             `json:"name"`
	Mix     map[string]float64 `json:"mix"`
	Summary *Summary           `json:"summary"`
}

// BenchmarkReport is the consolidated JSON output of one benchmark
type BenchmarkReport struct {
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Operations  int                 `json:"operations"`
	Concurrency []ConcurrencyResult `json:"concurrency_sweep"`
	Presets     []PresetResult      `json:"preset_comparison"`
}

// RunBenchmark executes the configured sweeps sequentially. Each sub-run
// gets a fresh runner and aggregator so summaries never mix samples.
func RunBenchmark(ctx context.Context, exec SQLExecutor, bcfg BenchmarkConfig) (*BenchmarkReport, error) {
	if bcfg.Operations < 1 {
		return nil, fmt.Errorf("benchmark operations must be >= 1")
	}
	if len(bcfg.ConcurrencyLevels) == 0 && len(bcfg.Presets) == 0 {
		return nil, fmt.Errorf("benchmark needs at least one concurrency level or preset")
	}

	// Resolve presets up front so a typo fails before any load is generated
	presetCfgs := make([]cfg.WorkloadConfiguration, 0, len(bcfg.Presets))
	for _, name := range bcfg.Presets {
		mix, err := PresetMix(name)
		if err != nil {
			return nil, err
		}
		wcfg := bcfg.Base
		wcfg.Mix = mix
		presetCfgs = append(presetCfgs, wcfg)
	}

	report := &BenchmarkReport{
		StartedAt:  time.Now(),
		Operations: bcfg.Operations,
	}

	for i, level := range bcfg.ConcurrencyLevels {
		if level < 1 {
			return nil, fmt.Errorf("concurrency level must be >= 1, got %d", level)
		}
		if i > 0 {
			if err := coolDown(ctx, bcfg.CoolDown); err != nil {
				return nil, err
			}
		}

		log.Info().Int("concurrency", level).Int("operations", bcfg.Operations).Msg("Benchmark: concurrency sweep run")
		summary, err := benchRun(ctx, exec, bcfg.Base, bcfg.Operations, level)
		if err != nil {
			return nil, err
		}
		report.Concurrency = append(report.Concurrency, ConcurrencyResult{Concurrency: level, Summary: summary})
	}

	for i, name := range bcfg.Presets {
		if len(report.Concurrency) > 0 || i > 0 {
			if err := coolDown(ctx, bcfg.CoolDown); err != nil {
				return nil, err
			}
		}

		wcfg := presetCfgs[i]
		log.Info().Str("preset", name).Int("operations", bcfg.Operations).Msg("Benchmark: preset comparison run")
		summary, err := benchRun(ctx, exec, wcfg, bcfg.Operations, wcfg.Concurrency)
		if err != nil {
			return nil, err
		}
		report.Presets = append(report.Presets, PresetResult{Name: name, Mix: wcfg.Mix, Summary: summary})
	}

	report.FinishedAt = time.Now()
	return report, nil
}

func benchRun(ctx context.Context, exec SQLExecutor, wcfg cfg.WorkloadConfiguration, ops, concurrency int) (*Summary, error) {
	runner, err := NewRunner(exec, metrics.NewAggregator(), wcfg)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, ops, concurrency)
}

func coolDown(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
