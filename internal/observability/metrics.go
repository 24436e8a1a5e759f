package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the document pipeline.
type Metrics struct {
	// Registry owns these metrics. Exposed so the /metrics endpoint can
	// serve exactly this set.
	Registry *prometheus.Registry

	documentsProcessed *prometheus.CounterVec
	confirmations      *prometheus.CounterVec
	statementImports   *prometheus.CounterVec
	strategyWins       *prometheus.CounterVec
	parseDuration      *prometheus.HistogramVec
}

// NewMetrics creates a dedicated registry and registers the application
// metrics in it. A private registry avoids "duplicate collector" panics when
// NewMetrics runs more than once, as it does in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		documentsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistente_documents_processed_total",
				Help: "Documents classified, by detected type.",
			},
			[]string{"type"},
		),
		confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistente_confirmations_total",
				Help: "Confirmation workflow outcomes.",
			},
			[]string{"outcome"},
		),
		statementImports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistente_statement_imports_total",
				Help: "Statement imports, by source format and final parse state.",
			},
			[]string{"source", "state"},
		),
		strategyWins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistente_statement_strategy_wins_total",
				Help: "Which extraction strategy produced the accepted result.",
			},
			[]string{"strategy"},
		),
		parseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistente_statement_parse_duration_seconds",
				Help:    "End-to-end statement parse duration, by source format.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// IncrDocumentProcessed counts one classified document.
func (m *Metrics) IncrDocumentProcessed(docType string) {
	m.documentsProcessed.WithLabelValues(docType).Inc()
}

// IncrConfirmation counts one workflow outcome: confirmed or cancelled.
func (m *Metrics) IncrConfirmation(outcome string) {
	m.confirmations.WithLabelValues(outcome).Inc()
}

// RecordStatementImport counts one import and observes how long it took.
func (m *Metrics) RecordStatementImport(source, state string, d time.Duration) {
	m.statementImports.WithLabelValues(source, state).Inc()
	m.parseDuration.WithLabelValues(source).Observe(d.Seconds())
}

// IncrStrategyWin counts the strategy whose result was accepted.
func (m *Metrics) IncrStrategyWin(strategy string) {
	m.strategyWins.WithLabelValues(strategy).Inc()
}
