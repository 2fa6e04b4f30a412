package hunter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/s0up4200/sonarr-hunter/status"
)

// Metrics holds the collectors updated by the scheduler
type Metrics struct {
	Cycles          *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	MissingEpisodes prometheus.Gauge
	Searches        *prometheus.CounterVec
	Connection      *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonarr_hunter",
			Name:      "cycles_total",
			Help:      "Number of completed cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonarr_hunter",
			Name:      "cycle_duration_seconds",
			Help:      "Wall clock duration of a cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		MissingEpisodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "sonarr_hunter",
			Name:      "missing_episodes",
			Help:      "Missing episodes found by the last scan.",
		}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonarr_hunter",
			Name:      "search_commands_total",
			Help:      "Search commands sent to Sonarr by result.",
		}, []string{"result"}),
		Connection: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sonarr_hunter",
			Name:      "connection_status",
			Help:      "1 for the current Sonarr connection status, 0 otherwise.",
		}, []string{"status"}),
	}
}

func (m *Metrics) setConnection(current status.ConnectionStatus) {
	for _, s := range status.AllConnectionStatuses() {
		v := 0.0
		if s == current {
			v = 1
		}
		m.Connection.WithLabelValues(s.String()).Set(v)
	}
}
