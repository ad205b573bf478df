package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crdbtools/roachload/status"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

const testStaleness = 600 * time.Second

func TestEvaluate_EmptyNodeList(t *testing.T) {
	t.Parallel()

	snap := Evaluate(testNow, testStaleness, nil)
	require.Equal(t, 0, snap.LiveCount)
	require.Equal(t, 0, snap.DeadCount)
	require.Empty(t, snap.Nodes)
	require.Equal(t, snap.LiveCount+snap.DeadCount, len(snap.Nodes))
}

func TestEvaluate_CountInvariant(t *testing.T) {
	t.Parallel()

	live := true
	nodes := []status.NodeRecord{
		{NodeID: 1, Address: "a:1", LastUpdate: testNow.Add(-time.Minute)},
		{NodeID: 2, Address: "b:2", LastUpdate: testNow.Add(-time.Hour)},
		{NodeID: 3, Address: "c:3", ExplicitLive: &live},
		{NodeID: 4}, // partial record
	}

	snap := Evaluate(testNow, testStaleness, nodes)
	require.Len(t, snap.Nodes, 4)
	require.Equal(t, len(snap.Nodes), snap.LiveCount+snap.DeadCount)
	require.Equal(t, 2, snap.LiveCount)
	require.Equal(t, 2, snap.DeadCount)
}

func TestEvaluate_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	nodes := []status.NodeRecord{
		{NodeID: 5, LastUpdate: testNow},
		{NodeID: 1, LastUpdate: testNow},
		{NodeID: 3},
	}

	snap := Evaluate(testNow, testStaleness, nodes)
	require.Equal(t, int64(5), snap.Nodes[0].Node.NodeID)
	require.Equal(t, int64(1), snap.Nodes[1].Node.NodeID)
	require.Equal(t, int64(3), snap.Nodes[2].Node.NodeID)
}

func TestEvaluate_PartialRecordCountedDead(t *testing.T) {
	t.Parallel()

	nodes := []status.NodeRecord{{NodeID: 7}}

	snap := Evaluate(testNow, testStaleness, nodes)
	require.Len(t, snap.Nodes, 1)
	require.False(t, snap.Nodes[0].Live)
	require.Equal(t, 1, snap.DeadCount)
}

func TestEvaluate_StalenessBoundary(t *testing.T) {
	t.Parallel()

	nodes := []status.NodeRecord{
		{NodeID: 1, LastUpdate: testNow.Add(-testStaleness + time.Second)},
		{NodeID: 2, LastUpdate: testNow.Add(-testStaleness)},
	}

	snap := Evaluate(testNow, testStaleness, nodes)
	require.True(t, snap.Nodes[0].Live)
	require.False(t, snap.Nodes[1].Live)
}

func TestEvaluate_Uptime(t *testing.T) {
	t.Parallel()

	nodes := []status.NodeRecord{
		{NodeID: 1, StartedAt: testNow.Add(-2 * time.Hour), LastUpdate: testNow},
		{NodeID: 2, LastUpdate: testNow},
	}

	snap := Evaluate(testNow, testStaleness, nodes)
	require.Equal(t, 2*time.Hour, snap.Nodes[0].Uptime)
	require.Zero(t, snap.Nodes[1].Uptime)
}

type stubFetcher struct {
	records []status.NodeRecord
	err     error
}

func (s *stubFetcher) FetchNodeStatus(ctx context.Context) ([]status.NodeRecord, error) {
	return s.records, s.err
}

func TestPollOnce_Success(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{records: []status.NodeRecord{
		{NodeID: 1, LastUpdate: time.Now()},
		{NodeID: 2},
	}}
	p := NewPoller(fetcher, time.Second, testStaleness)

	snap, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.LiveCount)
	require.Equal(t, 1, snap.DeadCount)

	latest, ok, lastErr := p.Latest()
	require.True(t, ok)
	require.NoError(t, lastErr)
	require.Equal(t, snap.LiveCount, latest.LiveCount)
}

func TestPollOnce_UnavailableKeepsLastSnapshot(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{records: []status.NodeRecord{{NodeID: 1, LastUpdate: time.Now()}}}
	p := NewPoller(fetcher, time.Second, testStaleness)

	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)

	fetcher.err = errors.New("endpoint down")
	fetcher.records = nil
	_, err = p.PollOnce(context.Background())
	require.Error(t, err)

	latest, ok, lastErr := p.Latest()
	require.True(t, ok)
	require.Error(t, lastErr)
	require.Equal(t, 1, latest.LiveCount)
}
