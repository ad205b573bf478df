package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/metrics"
	"github.com/crdbtools/roachload/sqlexec"
	"github.com/crdbtools/roachload/status"
	"github.com/crdbtools/roachload/telemetry"
	"github.com/crdbtools/roachload/workload"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roachload",
	Short: "CockroachDB cluster monitor and fault-tolerance workload harness",
	Long: `roachload watches a CockroachDB cluster through its admin status
endpoint and drives a concurrent transactional workload against it, so
that node failures can be injected and their impact measured.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Load(configPath); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		var writer io.Writer = zerolog.NewConsoleWriter()
		if cfg.Config.Logging.Format == "json" {
			writer = os.Stdout
		}
		gLog := zerolog.New(writer).With().Timestamp().Logger()

		if cfg.Config.Logging.Verbose {
			log.Logger = gLog.Level(zerolog.DebugLevel)
		} else {
			log.Logger = gLog.Level(zerolog.InfoLevel)
		}

		telemetry.InitializeTelemetry()
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml",
		"Path to the TOML configuration file")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newStatusClient builds the admin status client for the primary node
func newStatusClient() (*status.Client, error) {
	adminURL, err := cfg.AdminURL()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Config.Status.HTTPTimeoutSeconds) * time.Second
	return status.NewClient(adminURL, cfg.Config.Status.APIVersion, timeout), nil
}

// newPoller builds a health poller over the status client
func newPoller() (*health.Poller, error) {
	client, err := newStatusClient()
	if err != nil {
		return nil, err
	}
	interval := time.Duration(cfg.Config.Status.PollIntervalSeconds) * time.Second
	staleness := time.Duration(cfg.Config.Status.StalenessThresholdSeconds) * time.Second
	return health.NewPoller(client, interval, staleness), nil
}

// newWorkload opens the SQL pool and builds the workload runner over it.
// The caller owns the returned executor and must Close it.
func newWorkload(bootstrap bool) (*sqlexec.Executor, *workload.Runner, *metrics.Aggregator, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, nil, nil, err
	}

	exec, err := sqlexec.Open(dsn, cfg.Config.SQL)
	if err != nil {
		return nil, nil, nil, err
	}

	agg := metrics.NewAggregator()
	runner, err := workload.NewRunner(exec, agg, cfg.Config.Workload)
	if err != nil {
		exec.Close()
		return nil, nil, nil, err
	}

	if bootstrap && cfg.Config.Workload.BootstrapSchema {
		ctx, cancel := signalContext()
		defer cancel()
		if err := runner.EnsureSchema(ctx); err != nil {
			exec.Close()
			return nil, nil, nil, err
		}
	}

	return exec, runner, agg, nil
}
