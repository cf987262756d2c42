package notify

import (
	"github.com/mastercactapus/lasersend/stream"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch progress as prometheus collectors.
type Metrics struct {
	LinesSent   prometheus.Counter
	PollRetries prometheus.Counter
	Results     *prometheus.CounterVec
	RoundTrip   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, if not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lasersend_lines_sent_total",
			Help: "Total number of program lines written to the device",
		}),
		PollRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lasersend_poll_retries_total",
			Help: "Total number of ready polls the device did not answer",
		}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lasersend_dispatch_results_total",
			Help: "Finished dispatches by outcome",
		}, []string{"result"}),
		RoundTrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lasersend_line_round_trip_seconds",
			Help:    "Time from the first poll for a line until it was written",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LinesSent, m.PollRetries, m.Results, m.RoundTrip)
	}
	return m
}

func (m *Metrics) LineSent(e stream.LineEvent) {
	m.LinesSent.Inc()
	m.RoundTrip.Observe(e.RoundTrip.Seconds())
}

func (m *Metrics) PollFailed(string, int, int, string, error) {
	m.PollRetries.Inc()
}

func (m *Metrics) Finished(_ string, r stream.Result) {
	result := string(r.Kind())
	if result == "" {
		result = "done"
	}
	m.Results.WithLabelValues(result).Inc()
}
