package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/crdbtools/roachload/telemetry"
)

// minSamplesForP95 is the sample count below which the p95 estimate falls
// back to the observed maximum
const minSamplesForP95 = 21

// Stats is the on-demand summary for one operation kind
type Stats struct {
	Count   int           `json:"count"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Avg     time.Duration `json:"avg_latency_ns"`
	Min     time.Duration `json:"min_latency_ns"`
	Max     time.Duration `json:"max_latency_ns"`
	P95     time.Duration `json:"p95_latency_ns"`
}

type series struct {
	latencies []time.Duration
	success   int
	failed    int
}

// Aggregator is a concurrency-safe recorder of per-kind latency samples and
// outcomes. One instance is owned per workload session; Reset between runs.
type Aggregator struct {
	mu     sync.Mutex
	series map[string]*series
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{series: make(map[string]*series)}
}

// Record folds one operation outcome in. Safe to call from any worker.
func (a *Aggregator) Record(kind string, ok bool, latency time.Duration) {
	a.mu.Lock()
	s := a.series[kind]
	if s == nil {
		s = &series{}
		a.series[kind] = s
	}
	s.latencies = append(s.latencies, latency)
	if ok {
		s.success++
	} else {
		s.failed++
	}
	a.mu.Unlock()

	result := "success"
	if !ok {
		result = "failed"
	}
	telemetry.OperationsTotal.With(kind, result).Inc()
	telemetry.OperationDurationSeconds.With(kind).Observe(latency.Seconds())
}

// Summary computes per-kind statistics over everything recorded so far
func (a *Aggregator) Summary() map[string]Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]Stats, len(a.series))
	for kind, s := range a.series {
		out[kind] = summarize(s)
	}
	return out
}

// Totals returns overall success and failure counts across all kinds
func (a *Aggregator) Totals() (success, failed int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.series {
		success += s.success
		failed += s.failed
	}
	return success, failed
}

// Reset clears all recorded state. Must not race with in-flight Record
// calls; the caller sequences it between runs.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.series = make(map[string]*series)
}

func summarize(s *series) Stats {
	st := Stats{
		Count:   len(s.latencies),
		Success: s.success,
		Failed:  s.failed,
	}
	if st.Count == 0 {
		return st
	}

	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	st.Avg = total / time.Duration(st.Count)

	if st.Count < minSamplesForP95 {
		st.P95 = st.Max
	} else {
		idx := int(0.95 * float64(st.Count-1))
		st.P95 = sorted[idx]
	}

	return st
}
