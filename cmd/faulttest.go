package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/faulttest"
	"github.com/crdbtools/roachload/nodectl"
	"github.com/crdbtools/roachload/report"
)

var (
	faulttestNodes  []int
	faulttestOutput string
)

var faulttestCmd = &cobra.Command{
	Use:   "faulttest",
	Short: "Kill nodes under a running workload and measure the impact",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(faulttestNodes) == 0 {
			return fmt.Errorf("at least one --node is required")
		}

		poller, err := newPoller()
		if err != nil {
			return err
		}

		exec, runner, _, err := newWorkload(true)
		if err != nil {
			return err
		}
		defer exec.Close()

		controller := nodectl.NewController(cfg.Config.NodeControl, cfg.Config.Cluster.Nodes)

		scenario := faulttest.NewScenario(controller, runner, poller, faulttest.Config{
			TargetNodes: faulttestNodes,
			Operations:  cfg.Config.Workload.Operations,
			Concurrency: cfg.Config.Workload.Concurrency,
		})

		ctx, cancel := signalContext()
		defer cancel()

		if err := exec.Ping(ctx); err != nil {
			return err
		}

		result, err := scenario.Run(ctx)
		if err != nil {
			return err
		}

		output := faulttestOutput
		if output == "" {
			output = fmt.Sprintf("faulttest-%s.json", time.Now().Format("20060102-150405"))
		}
		return report.WriteFile(output, result)
	},
}

func init() {
	faulttestCmd.Flags().IntSliceVar(&faulttestNodes, "node", nil,
		"Node ID to kill during the test (repeatable)")
	faulttestCmd.Flags().StringVar(&faulttestOutput, "output", "",
		"Report file path (default: faulttest-<timestamp>.json)")
	rootCmd.AddCommand(faulttestCmd)
}
