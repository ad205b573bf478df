package nodectl

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/cfg"
)

// Controller starts, stops, and crashes cockroach processes for nodes
// reachable from this machine. It shells out to the cockroach binary and
// holds no state between calls.
type Controller struct {
	binary   string
	insecure bool
	nodes    []cfg.NodeConfiguration
}

// NewController builds a controller over the configured topology
func NewController(ncfg cfg.NodeControlConfiguration, nodes []cfg.NodeConfiguration) *Controller {
	binary := ncfg.Binary
	if binary == "" {
		binary = "cockroach"
	}
	return &Controller{
		binary:   binary,
		insecure: ncfg.Insecure,
		nodes:    nodes,
	}
}

// Node resolves a node ID to its configuration
func (c *Controller) Node(nodeID int) (cfg.NodeConfiguration, error) {
	for _, n := range c.nodes {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return cfg.NodeConfiguration{}, fmt.Errorf("node %d not found in topology", nodeID)
}

// Start launches the node's cockroach process in the background, joined to
// the full topology
func (c *Controller) Start(ctx context.Context, nodeID int) error {
	node, err := c.Node(nodeID)
	if err != nil {
		return err
	}

	joins := make([]string, 0, len(c.nodes))
	for _, n := range c.nodes {
		joins = append(joins, fmt.Sprintf("%s:%d", n.Host, n.Port))
	}

	store := node.Store
	if store == "" {
		store = fmt.Sprintf("nodes/node%d", node.ID)
	}

	args := []string{"start"}
	if c.insecure {
		args = append(args, "--insecure")
	}
	args = append(args,
		fmt.Sprintf("--store=%s", store),
		fmt.Sprintf("--listen-addr=%s:%d", node.Host, node.Port),
		fmt.Sprintf("--http-addr=%s:%d", node.Host, node.HTTPPort),
		fmt.Sprintf("--join=%s", strings.Join(joins, ",")),
		"--background",
	)

	log.Info().Int("node", nodeID).Str("addr", fmt.Sprintf("%s:%d", node.Host, node.Port)).Msg("Starting node")
	if out, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to start node %d: %w: %s", nodeID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Stop drains and shuts the node down gracefully via cockroach quit
func (c *Controller) Stop(ctx context.Context, nodeID int) error {
	node, err := c.Node(nodeID)
	if err != nil {
		return err
	}

	args := []string{"quit"}
	if c.insecure {
		args = append(args, "--insecure")
	}
	args = append(args, fmt.Sprintf("--host=%s:%d", node.Host, node.Port))

	log.Info().Int("node", nodeID).Msg("Stopping node")
	if out, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to stop node %d: %w: %s", nodeID, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Kill sends SIGKILL to the process listening on the node's SQL port,
// simulating a crash. No cleanup runs on the target.
func (c *Controller) Kill(ctx context.Context, nodeID int) error {
	node, err := c.Node(nodeID)
	if err != nil {
		return err
	}

	pid, err := pidForPort(ctx, node.Port)
	if err != nil {
		return fmt.Errorf("failed to find process for node %d: %w", nodeID, err)
	}

	log.Warn().Int("node", nodeID).Int("pid", pid).Msg("Killing node process")
	if out, err := exec.CommandContext(ctx, "kill", "-9", strconv.Itoa(pid)).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to kill node %d (pid %d): %w: %s", nodeID, pid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Restart stops the node, waits briefly, and starts it again
func (c *Controller) Restart(ctx context.Context, nodeID int) error {
	if err := c.Stop(ctx, nodeID); err != nil {
		return err
	}

	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.Start(ctx, nodeID)
}

// pidForPort resolves the pid of the process listening on the given port
func pidForPort(ctx context.Context, port int) (int, error) {
	out, err := exec.CommandContext(ctx, "lsof", "-ti", fmt.Sprintf(":%d", port)).Output()
	if err != nil {
		return 0, fmt.Errorf("no process listening on port %d", port)
	}

	// lsof may report one pid per line; the listener comes first
	first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0])
	if first == "" {
		return 0, fmt.Errorf("no process listening on port %d", port)
	}

	pid, err := strconv.Atoi(first)
	if err != nil {
		return 0, fmt.Errorf("unexpected lsof output %q: %w", first, err)
	}
	return pid, nil
}
