package tracker

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the tracker's Prometheus collectors.
type Metrics struct {
	AccruedSeconds *prometheus.CounterVec
	Accruals       *prometheus.CounterVec
	Blocks         prometheus.Counter
	Errors         *prometheus.CounterVec
	DailyResets    prometheus.Counter
}

// Error kinds recorded in the errors_total counter.
const (
	errKindRead    = "read"
	errKindWrite   = "write"
	errKindReset   = "reset"
	errKindDeliver = "deliver"
	errKindPanic   = "panic"
)

// NewMetrics creates the tracker collectors and registers them when
// registerer is non-nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		AccruedSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detox",
			Subsystem: "tracker",
			Name:      "accrued_seconds_total",
			Help:      "Seconds of browsing time merged into the store, by tracked domain.",
		}, []string{"domain"}),
		Accruals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detox",
			Subsystem: "tracker",
			Name:      "accruals_total",
			Help:      "Intervals applied to the store, by the signal that cut them.",
		}, []string{"reason"}),
		Blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detox",
			Subsystem: "tracker",
			Name:      "blocks_total",
			Help:      "Sites transitioned to blocked by the budget monitor.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "detox",
			Subsystem: "tracker",
			Name:      "errors_total",
			Help:      "Swallowed failures, by kind.",
		}, []string{"kind"}),
		DailyResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "detox",
			Subsystem: "tracker",
			Name:      "daily_resets_total",
			Help:      "Daily counter resets performed.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.AccruedSeconds, m.Accruals, m.Blocks, m.Errors, m.DailyResets)
	}
	return m
}
