package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/health"
	"github.com/crdbtools/roachload/workload"
)

// WriteFile marshals v as indented JSON to path, creating parent
// directories as needed
func WriteFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	log.Info().Str("path", path).Msg("Report written")
	return nil
}

// RenderSummary prints a workload run summary as a console table
func RenderSummary(w io.Writer, s *workload.Summary) {
	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "  operations:  %d (concurrency %d)\n", s.Operations, s.Concurrency)
	fmt.Fprintf(w, "  success:     %d\n", s.Success)
	fmt.Fprintf(w, "  failed:      %d\n", s.Failed)
	fmt.Fprintf(w, "  duration:    %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  throughput:  %.1f ops/s\n\n", s.TPS)

	kinds := make([]string, 0, len(s.ByKind))
	for kind := range s.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOUNT\tOK\tFAILED\tAVG\tMIN\tMAX\tP95")
	for _, kind := range kinds {
		st := s.ByKind[kind]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			kind, st.Count, st.Success, st.Failed,
			st.Avg.Round(time.Microsecond),
			st.Min.Round(time.Microsecond),
			st.Max.Round(time.Microsecond),
			st.P95.Round(time.Microsecond),
		)
	}
	tw.Flush()
}

// RenderSnapshot prints one cluster health snapshot as a console table
func RenderSnapshot(w io.Writer, snap health.ClusterSnapshot) {
	fmt.Fprintf(w, "Cluster at %s: %d live / %d dead\n",
		snap.Timestamp.Format(time.RFC3339), snap.LiveCount, snap.DeadCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tADDRESS\tSTATE\tUPTIME\tLAST UPDATE")
	for _, n := range snap.Nodes {
		state := "DEAD"
		if n.Live {
			state = "LIVE"
		}
		lastUpdate := "-"
		if !n.Node.LastUpdate.IsZero() {
			lastUpdate = n.Node.LastUpdate.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			n.Node.NodeID, n.Node.Address, state,
			n.Uptime.Round(time.Second), lastUpdate)
	}
	tw.Flush()
}
