package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/report"
	"github.com/crdbtools/roachload/workload"
)

var (
	benchmarkOps      int
	benchmarkLevels   []int
	benchmarkPresets  []string
	benchmarkCoolDown time.Duration
	benchmarkOutput   string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Sweep concurrency levels and preset mixes, write a comparative report",
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, _, _, err := newWorkload(true)
		if err != nil {
			return err
		}
		defer exec.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := exec.Ping(ctx); err != nil {
			return err
		}

		result, err := workload.RunBenchmark(ctx, exec, workload.BenchmarkConfig{
			Operations:        benchmarkOps,
			ConcurrencyLevels: benchmarkLevels,
			Presets:           benchmarkPresets,
			CoolDown:          benchmarkCoolDown,
			Base:              cfg.Config.Workload,
		})
		if err != nil {
			return err
		}

		for _, point := range result.Concurrency {
			report.RenderSummary(os.Stdout, point.Summary)
		}
		for _, preset := range result.Presets {
			report.RenderSummary(os.Stdout, preset.Summary)
		}

		output := benchmarkOutput
		if output == "" {
			output = fmt.Sprintf("benchmark-%s.json", time.Now().Format("20060102-150405"))
		}
		return report.WriteFile(output, result)
	},
}

func init() {
	benchmarkCmd.Flags().IntVar(&benchmarkOps, "ops", 500,
		"Operations per benchmark run")
	benchmarkCmd.Flags().IntSliceVar(&benchmarkLevels, "levels", []int{1, 5, 10, 20, 50},
		"Concurrency levels to sweep")
	benchmarkCmd.Flags().StringSliceVar(&benchmarkPresets, "presets", workload.PresetNames(),
		"Named workload mixes to compare")
	benchmarkCmd.Flags().DurationVar(&benchmarkCoolDown, "cooldown", 5*time.Second,
		"Pause between benchmark runs")
	benchmarkCmd.Flags().StringVar(&benchmarkOutput, "output", "",
		"Report file path (default: benchmark-<timestamp>.json)")
	rootCmd.AddCommand(benchmarkCmd)
}
