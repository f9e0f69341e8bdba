package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *KitMetrics
	assert.Nil(t, NewKitMetrics(nil))
	assert.NotPanics(t, func() {
		m.SetState("RUNNING", []string{"RUNNING"})
		m.ObserveStartup(time.Second)
		m.TeardownFailed("close wallet storage")
		m.SetPeers(3)
		m.SetChainHeight(10)
	})
}

func TestKitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewKitMetrics(reg)
	require.NotNil(t, m)

	all := []string{"NEW", "STARTING", "RUNNING"}
	m.SetState("STARTING", all)
	m.SetState("RUNNING", all)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("RUNNING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("STARTING")))

	m.TeardownFailed("close chain storage")
	m.TeardownFailed("close chain storage")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.teardownFailures.WithLabelValues("close chain storage")))

	m.SetPeers(4)
	m.SetChainHeight(123)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.peers))
	assert.Equal(t, 123.0, testutil.ToFloat64(m.chainHeight))

	m.ObserveStartup(2 * time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(m.startupDuration))
}
