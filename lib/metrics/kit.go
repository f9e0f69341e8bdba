package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KitMetrics records a kit's lifecycle and subsystem state. A nil *KitMetrics is
// valid and records nothing.
type KitMetrics struct {
	state            *prometheus.GaugeVec
	startupDuration  prometheus.Histogram
	teardownFailures *prometheus.CounterVec
	peers            prometheus.Gauge
	chainHeight      prometheus.Gauge
}

// NewKitMetrics registers the kit metrics with reg. It returns nil when reg is nil.
func NewKitMetrics(reg prometheus.Registerer) *KitMetrics {
	if reg == nil {
		return nil
	}
	return &KitMetrics{
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walletkit_state",
				Help: "Current lifecycle state of the kit (1 for the active state)",
			},
			[]string{"state"},
		),
		startupDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "walletkit_startup_duration_seconds",
				Help: "Time from start request until the kit was running",
				Buckets: []float64{
					0.1, // storage only
					0.5,
					1,
					5,
					30,
					120,
					600, // blocking startup on a long sync
					3600,
				},
			},
		),
		teardownFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletkit_teardown_failures_total",
				Help: "Shutdown steps that reported an error, by step",
			},
			[]string{"step"},
		),
		peers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "walletkit_connected_peers",
				Help: "Number of connected peers",
			},
		),
		chainHeight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "walletkit_chain_height",
				Help: "Height of the local header chain",
			},
		),
	}
}

// SetState marks current as the active state among all.
func (m *KitMetrics) SetState(current string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

func (m *KitMetrics) ObserveStartup(d time.Duration) {
	if m == nil {
		return
	}
	m.startupDuration.Observe(d.Seconds())
}

func (m *KitMetrics) TeardownFailed(step string) {
	if m == nil {
		return
	}
	m.teardownFailures.WithLabelValues(step).Inc()
}

func (m *KitMetrics) SetPeers(n int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(n))
}

func (m *KitMetrics) SetChainHeight(h int64) {
	if m == nil {
		return
	}
	m.chainHeight.Set(float64(h))
}
