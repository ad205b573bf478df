package workload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crdbtools/roachload/cfg"
)

func benchBase() cfg.WorkloadConfiguration {
	return cfg.WorkloadConfiguration{
		Mix:              map[string]float64{"read_order": 100},
		Concurrency:      4,
		ReferentKeyspace: 100,
	}
}

func TestRunBenchmark_ConcurrencySweep(t *testing.T) {
	t.Parallel()

	report, err := RunBenchmark(context.Background(), newFakeExecutor(), BenchmarkConfig{
		Operations:        20,
		ConcurrencyLevels: []int{2, 4},
		Base:              benchBase(),
	})
	require.NoError(t, err)
	require.Len(t, report.Concurrency, 2)
	require.Empty(t, report.Presets)

	require.Equal(t, 2, report.Concurrency[0].Concurrency)
	require.Equal(t, 4, report.Concurrency[1].Concurrency)
	for _, result := range report.Concurrency {
		require.Equal(t, 20, result.Summary.Success+result.Summary.Failed)
		require.Equal(t, result.Concurrency, result.Summary.Concurrency)
	}
	require.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunBenchmark_PresetComparison(t *testing.T) {
	t.Parallel()

	report, err := RunBenchmark(context.Background(), newFakeExecutor(), BenchmarkConfig{
		Operations: 20,
		Presets:    []string{"read_heavy", "write_heavy"},
		Base:       benchBase(),
	})
	require.NoError(t, err)
	require.Len(t, report.Presets, 2)

	require.Equal(t, "read_heavy", report.Presets[0].Name)
	require.Equal(t, 70.0, report.Presets[0].Mix["read_order"])
	require.Equal(t, "write_heavy", report.Presets[1].Name)
	require.Equal(t, 50.0, report.Presets[1].Mix["create_order"])
	for _, result := range report.Presets {
		require.Equal(t, 20, result.Summary.Success+result.Summary.Failed)
		require.Equal(t, 4, result.Summary.Concurrency)
	}
}

func TestRunBenchmark_UnknownPresetFailsBeforeAnyRun(t *testing.T) {
	t.Parallel()

	fake := newFakeExecutor()
	_, err := RunBenchmark(context.Background(), fake, BenchmarkConfig{
		Operations:        20,
		ConcurrencyLevels: []int{2},
		Presets:           []string{"nonsense"},
		Base:              benchBase(),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown workload preset")
	require.Zero(t, fake.queries)
}

func TestRunBenchmark_RejectsEmptyPlan(t *testing.T) {
	t.Parallel()

	_, err := RunBenchmark(context.Background(), newFakeExecutor(), BenchmarkConfig{
		Operations: 20,
		Base:       benchBase(),
	})
	require.Error(t, err)
}

func TestRunBenchmark_CancelledDuringCoolDown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := RunBenchmark(ctx, newFakeExecutor(), BenchmarkConfig{
		Operations:        10,
		ConcurrencyLevels: []int{2, 4},
		CoolDown:          time.Hour,
		Base:              benchBase(),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPresetMix_ReturnsCopy(t *testing.T) {
	t.Parallel()

	mix, err := PresetMix("balanced")
	require.NoError(t, err)
	mix["read_order"] = 0

	again, err := PresetMix("balanced")
	require.NoError(t, err)
	require.Equal(t, 40.0, again["read_order"])
}

func TestPresetNames_StableOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"analytics_heavy", "balanced", "read_heavy", "write_heavy"}, PresetNames())
}
