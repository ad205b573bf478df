package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecord_CountsOutcomes(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.Record("create_order", true, 10*time.Millisecond)
	agg.Record("create_order", false, 20*time.Millisecond)
	agg.Record("read_order", true, 5*time.Millisecond)

	summary := agg.Summary()
	require.Len(t, summary, 2)
	require.Equal(t, 2, summary["create_order"].Count)
	require.Equal(t, 1, summary["create_order"].Success)
	require.Equal(t, 1, summary["create_order"].Failed)
	require.Equal(t, 1, summary["read_order"].Success)

	success, failed := agg.Totals()
	require.Equal(t, 2, success)
	require.Equal(t, 1, failed)
}

func TestSummary_MinMaxAvg(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.Record("read_order", true, 10*time.Millisecond)
	agg.Record("read_order", true, 20*time.Millisecond)
	agg.Record("read_order", true, 30*time.Millisecond)

	st := agg.Summary()["read_order"]
	require.Equal(t, 10*time.Millisecond, st.Min)
	require.Equal(t, 30*time.Millisecond, st.Max)
	require.Equal(t, 20*time.Millisecond, st.Avg)
}

func TestSummary_P95FallsBackToMaxBelow21Samples(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	for i := 1; i <= 20; i++ {
		agg.Record("analytics", true, time.Duration(i)*time.Millisecond)
	}

	st := agg.Summary()["analytics"]
	require.Equal(t, 20, st.Count)
	require.Equal(t, st.Max, st.P95)
	require.Equal(t, 20*time.Millisecond, st.P95)
}

func TestSummary_P95HundredSamples(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	// Record out of order; summary sorts ascending
	for i := 100; i >= 1; i-- {
		agg.Record("update_order", true, time.Duration(i)*time.Millisecond)
	}

	st := agg.Summary()["update_order"]
	require.Equal(t, 100, st.Count)
	require.Equal(t, 95*time.Millisecond, st.P95)
}

func TestSummary_P95Exactly21Samples(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	for i := 1; i <= 21; i++ {
		agg.Record("create_order", true, time.Duration(i)*time.Millisecond)
	}

	st := agg.Summary()["create_order"]
	require.Equal(t, time.Duration(1+int(0.95*20))*time.Millisecond, st.P95)
	require.NotEqual(t, st.Max, st.P95)
}

func TestSummary_EmptyKindAbsent(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	require.Empty(t, agg.Summary())
}

func TestReset_ClearsState(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.Record("read_order", true, time.Millisecond)
	agg.Reset()

	require.Empty(t, agg.Summary())
	success, failed := agg.Totals()
	require.Zero(t, success)
	require.Zero(t, failed)
}

func TestRecord_ConcurrentNoLostUpdates(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()

	const workers = 16
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				agg.Record("create_order", i%2 == 0, time.Duration(i)*time.Microsecond)
			}
		}(w)
	}
	wg.Wait()

	st := agg.Summary()["create_order"]
	require.Equal(t, workers*perWorker, st.Count)
	require.Equal(t, workers*perWorker/2, st.Success)
	require.Equal(t, workers*perWorker/2, st.Failed)
}
