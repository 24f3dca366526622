package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Loan metrics
	LoansCreated       prometheus.Counter
	SchedulesGenerated *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec

	// Repayment metrics
	RepaymentsApplied prometheus.Counter
	RepaymentDuration prometheus.Histogram
	RepaymentAmount   prometheus.Histogram
	RepaymentErrors   *prometheus.CounterVec
	CreditOverflow    prometheus.Counter
	ImportRows        *prometheus.CounterVec

	// Delinquency metrics
	DelinquencySweeps  prometheus.Counter
	DelinquencyResults *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		LoansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_loans_created_total",
			Help: "Total number of loan applications created",
		}),
		SchedulesGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_schedules_generated_total",
				Help: "Total number of schedules generated by interest method",
			},
			[]string{"method"},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_status_transitions_total",
				Help: "Total loan status transitions",
			},
			[]string{"from", "to"},
		),

		RepaymentsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_repayments_applied_total",
			Help: "Total number of repayments applied",
		}),
		RepaymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_repayment_duration_seconds",
			Help:    "Duration of repayment allocation",
			Buckets: prometheus.DefBuckets,
		}),
		RepaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_repayment_amount",
			Help:    "Tendered repayment amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		RepaymentErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_repayment_errors_total",
				Help: "Total number of rejected repayments by reason",
			},
			[]string{"reason"},
		),
		CreditOverflow: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_credit_overflow_total",
			Help: "Repayments that left a credit balance",
		}),
		ImportRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_import_rows_total",
				Help: "Bulk import rows by result",
			},
			[]string{"result"},
		),

		DelinquencySweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_delinquency_sweeps_total",
			Help: "Total delinquency sweeps run",
		}),
		DelinquencyResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_delinquency_results_total",
				Help: "Loans evaluated by outcome",
			},
			[]string{"outcome"},
		),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_events_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		PublishErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_publish_errors_total",
				Help: "Outbox publish failures by type",
			},
			[]string{"event_type"},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loanledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_cache_lookups_total",
				Help: "Loan cache lookups by result",
			},
			[]string{"result"},
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
