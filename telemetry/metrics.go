package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// OperationBuckets for end-to-end workload operations (SQL round trips)
	OperationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// PoolWaitBuckets for connection checkout waits
	PoolWaitBuckets = []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// StatusFetchBuckets for admin endpoint round trips
	StatusFetchBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Workload metrics
var (
	// OperationsTotal counts operations by kind and result (success, failed)
	OperationsTotal CounterVec = noopCounterVec{}

	// OperationDurationSeconds measures operation latency by kind
	OperationDurationSeconds HistogramVec = noopHistogramVec{}

	// RetriesTotal counts transient-error retries by reason (serialization, connection)
	RetriesTotal CounterVec = noopCounterVec{}

	// PoolWaitSeconds measures time spent waiting for a pooled connection
	PoolWaitSeconds Histogram = NoopStat{}

	// PoolExhaustedTotal counts checkout attempts that timed out
	PoolExhaustedTotal Counter = NoopStat{}
)

// Cluster probe metrics
var (
	// ClusterNodesLive tracks the number of live nodes in the last snapshot
	ClusterNodesLive Gauge = NoopStat{}

	// ClusterNodesDead tracks the number of dead nodes in the last snapshot
	ClusterNodesDead Gauge = NoopStat{}

	// StatusFetchSeconds measures admin endpoint fetch latency
	StatusFetchSeconds Histogram = NoopStat{}

	// StatusFetchFailuresTotal counts unreachable or non-200 status fetches
	StatusFetchFailuresTotal Counter = NoopStat{}
)

func initMetrics() {
	OperationsTotal = NewCounterVec("operations_total",
		"Workload operations by kind and result", []string{"kind", "result"})
	OperationDurationSeconds = NewHistogramVec("operation_duration_seconds",
		"Workload operation latency by kind", []string{"kind"}, OperationBuckets)
	RetriesTotal = NewCounterVec("retries_total",
		"Transient-error retries by reason", []string{"reason"})
	PoolWaitSeconds = NewHistogram("pool_wait_seconds",
		"Time waiting for a pooled connection", PoolWaitBuckets)
	PoolExhaustedTotal = NewCounter("pool_exhausted_total",
		"Connection checkouts that timed out")

	ClusterNodesLive = NewGauge("cluster_nodes_live",
		"Live nodes in the last health snapshot")
	ClusterNodesDead = NewGauge("cluster_nodes_dead",
		"Dead nodes in the last health snapshot")
	StatusFetchSeconds = NewHistogram("status_fetch_seconds",
		"Admin status endpoint fetch latency", StatusFetchBuckets)
	StatusFetchFailuresTotal = NewCounter("status_fetch_failures_total",
		"Failed admin status fetches")
}
