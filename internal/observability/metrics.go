package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexreg",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "indexreg",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexreg",
			Subsystem: "registry",
			Name:      "registrations_total",
			Help:      "Operator registrations applied.",
		},
		[]string{"outcome"},
	)
	deregistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexreg",
			Subsystem: "registry",
			Name:      "deregistrations_total",
			Help:      "Operator deregistrations applied.",
		},
		[]string{"outcome"},
	)
	globalOperators = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "indexreg",
			Subsystem: "registry",
			Name:      "operators",
			Help:      "Operators currently in the global set.",
		},
	)
	quorumSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "indexreg",
			Subsystem: "registry",
			Name:      "quorum_size",
			Help:      "Current operator count per quorum.",
		},
		[]string{"quorum"},
	)
	journalRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indexreg",
			Subsystem: "journal",
			Name:      "records_total",
			Help:      "Records appended to the mutation journal.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			registrations, deregistrations,
			globalOperators, quorumSize,
			journalRecords,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordRegistration(success bool) {
	RegisterMetrics()
	registrations.WithLabelValues(outcomeLabel(success)).Inc()
}

func RecordDeregistration(success bool) {
	RegisterMetrics()
	deregistrations.WithLabelValues(outcomeLabel(success)).Inc()
}

func SetGlobalOperators(count uint32) {
	RegisterMetrics()
	globalOperators.Set(float64(count))
}

func SetQuorumSize(quorum uint8, size uint32) {
	RegisterMetrics()
	quorumSize.WithLabelValues(strconv.Itoa(int(quorum))).Set(float64(size))
}

func RecordJournalAppend() {
	RegisterMetrics()
	journalRecords.Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "applied"
	}
	return "rejected"
}
