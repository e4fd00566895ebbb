package cypher

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for query execution. A nil *Metrics is a
// valid no-op receiver so the executor never branches on instrumentation.
type Metrics struct {
	queryTotal    *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec
	queryDuration prometheus.Histogram
	resultSize    prometheus.Histogram
}

// NewMetrics creates the metric set. Call Register to attach it to a
// registry; collectors are not registered globally.
func NewMetrics() *Metrics {
	return &Metrics{
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osdrgraph",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total queries executed, by status",
		}, []string{"status"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osdrgraph",
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Failed queries, by classified error kind",
		}, []string{"kind"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "osdrgraph",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query execution duration",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		resultSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "osdrgraph",
			Subsystem: "query",
			Name:      "result_records",
			Help:      "Record count per successful query",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Register attaches all collectors to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.queryTotal, m.queryErrors, m.queryDuration, m.resultSize,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(res ExecutionResult) {
	if m == nil {
		return
	}
	if res.Success {
		m.queryTotal.WithLabelValues("success").Inc()
		m.resultSize.Observe(float64(len(res.Records)))
	} else {
		m.queryTotal.WithLabelValues("error").Inc()
		m.queryErrors.WithLabelValues(res.ErrorKind.String()).Inc()
	}
	m.queryDuration.Observe(res.Elapsed.Seconds())
}
