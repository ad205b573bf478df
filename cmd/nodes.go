package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/nodectl"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Start, stop, kill, or restart cluster node processes",
}

func nodeAction(use, short string, action func(*nodectl.Controller, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <node-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid node ID %q", args[0])
			}
			controller := nodectl.NewController(cfg.Config.NodeControl, cfg.Config.Cluster.Nodes)
			return action(controller, nodeID)
		},
	}
}

func init() {
	nodesCmd.AddCommand(
		nodeAction("start", "Start a node and join it to the cluster", func(c *nodectl.Controller, id int) error {
			ctx, cancel := signalContext()
			defer cancel()
			return c.Start(ctx, id)
		}),
		nodeAction("stop", "Gracefully shut a node down", func(c *nodectl.Controller, id int) error {
			ctx, cancel := signalContext()
			defer cancel()
			return c.Stop(ctx, id)
		}),
		nodeAction("kill", "SIGKILL a node process to simulate a crash", func(c *nodectl.Controller, id int) error {
			ctx, cancel := signalContext()
			defer cancel()
			return c.Kill(ctx, id)
		}),
		nodeAction("restart", "Stop and start a node", func(c *nodectl.Controller, id int) error {
			ctx, cancel := signalContext()
			defer cancel()
			return c.Restart(ctx, id)
		}),
	)
	rootCmd.AddCommand(nodesCmd)
}
