// Package metrics exposes Prometheus instrumentation for ledger transactions
// and notification delivery, plus a standalone HTTP server for scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "university_ledger"

// Transaction outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeReverted  = "reverted"
)

var (
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Ledger transactions by component, method and outcome",
		},
		[]string{"component", "method", "outcome"},
	)

	transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time spent executing a ledger transaction, including lock wait",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component", "method"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Committed notifications handed to sinks",
		},
		[]string{"sink", "outcome"},
	)

	documents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Credential document store and fetch requests",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(transactions, transactionDuration, notifications, documents)
}

// ObserveTransaction records the outcome and latency of one ledger transaction.
func ObserveTransaction(component, method, outcome string, d time.Duration) {
	transactions.WithLabelValues(component, method, outcome).Inc()
	transactionDuration.WithLabelValues(component, method).Observe(d.Seconds())
}

func NotificationPublished(sink string, err error) {
	notifications.WithLabelValues(sink, outcome(err)).Inc()
}

func DocumentRequest(operation string, err error) {
	documents.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
