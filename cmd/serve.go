package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/admin"
	"github.com/crdbtools/roachload/cfg"
)

var (
	serveAddr         string
	serveWithWorkload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose cluster health and workload results over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		poller, err := newPoller()
		if err != nil {
			return err
		}
		poller.Start()
		defer poller.Stop()

		handlers := admin.NewHandlers(poller)
		server := admin.NewServer(serveAddr, handlers)

		ctx, cancel := signalContext()
		defer cancel()

		if serveWithWorkload {
			exec, runner, _, err := newWorkload(true)
			if err != nil {
				return err
			}
			defer exec.Close()

			go func() {
				summary, err := runner.Run(ctx, cfg.Config.Workload.Operations, cfg.Config.Workload.Concurrency)
				if err != nil {
					log.Error().Err(err).Msg("Background workload failed")
					return
				}
				handlers.SetSummary(summary)
			}()
		}

		errCh := make(chan error, 1)
		go func() { errCh <- server.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8580",
		"Admin API listen address")
	serveCmd.Flags().BoolVar(&serveWithWorkload, "with-workload", false,
		"Run one workload pass in the background and publish its summary")
	rootCmd.AddCommand(serveCmd)
}
