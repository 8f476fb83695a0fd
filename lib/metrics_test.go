package lib

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	// none of these may panic
	m.Start()
	m.Stop()
	m.UpdateChainMetrics(1, time.Second)
	m.CommitmentMined("llmq_50_60")
	m.CommitmentUndone("llmq_50_60")
	m.BlockRejected("WrongWindow")
	m.SetMinableCommitments(3)
	m.GossipResult("accepted")
	require.Nil(t, m.Registry())
}

func TestMetricsRecord(t *testing.T) {
	// two instances never collide because each owns its registry
	m := NewMetricsServer(MetricsConfig{}, NewNullLogger())
	_ = NewMetricsServer(MetricsConfig{}, NewNullLogger())
	m.CommitmentMined("llmq_50_60")
	m.CommitmentMined("llmq_50_60")
	m.CommitmentUndone("llmq_50_60")
	m.BlockRejected("TooManyCommitments")
	m.SetMinableCommitments(4)
	m.UpdateChainMetrics(42, 0)
	require.Equal(t, float64(2), testutil.ToFloat64(m.CommitmentsMined.WithLabelValues("llmq_50_60")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.CommitmentsUndone.WithLabelValues("llmq_50_60")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.BlocksRejected.WithLabelValues("TooManyCommitments")))
	require.Equal(t, float64(4), testutil.ToFloat64(m.MinableCommitments))
	require.Equal(t, float64(42), testutil.ToFloat64(m.ChainHeight))
}
