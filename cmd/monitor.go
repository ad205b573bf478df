package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/report"
)

var monitorInterval int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously print cluster health summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if monitorInterval > 0 {
			cfg.Config.Status.PollIntervalSeconds = monitorInterval
		}

		poller, err := newPoller()
		if err != nil {
			return err
		}
		poller.OnSnapshot = func(snap health.ClusterSnapshot) {
			report.RenderSnapshot(os.Stdout, snap)
		}

		ctx, cancel := signalContext()
		defer cancel()

		poller.Start()
		defer poller.Stop()

		// First snapshot failures are only logged; keep watching until
		// interrupted
		<-ctx.Done()
		return nil
	},
}

func init() {
	monitorCmd.Flags().IntVar(&monitorInterval, "interval", 0,
		"Poll interval in seconds (overrides configuration)")
	rootCmd.AddCommand(monitorCmd)
}
