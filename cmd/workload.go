package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/report"
)

var (
	workloadOps         int
	workloadConcurrency int
	workloadOutput      string
)

var workloadCmd = &cobra.Command{
	Use:   "workload",
	Short: "Run the transactional workload and report per-operation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := cfg.Config.Workload.Operations
		if cmd.Flags().Changed("ops") {
			ops = workloadOps
		}
		concurrency := cfg.Config.Workload.Concurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = workloadConcurrency
		}

		exec, runner, _, err := newWorkload(true)
		if err != nil {
			return err
		}
		defer exec.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if err := exec.Ping(ctx); err != nil {
			return err
		}

		summary, err := runner.Run(ctx, ops, concurrency)
		if err != nil {
			return err
		}

		report.RenderSummary(os.Stdout, summary)
		if workloadOutput != "" {
			return report.WriteFile(workloadOutput, summary)
		}
		return nil
	},
}

func init() {
	workloadCmd.Flags().IntVar(&workloadOps, "ops", 0,
		"Number of operations to run (overrides configuration)")
	workloadCmd.Flags().IntVar(&workloadConcurrency, "concurrency", 0,
		"Number of concurrent workers (overrides configuration)")
	workloadCmd.Flags().StringVar(&workloadOutput, "output", "",
		"Write the run summary as JSON to this file")
	rootCmd.AddCommand(workloadCmd)
}
