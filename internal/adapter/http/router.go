package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional fields left nil
// disable the matching middleware.
type RouterConfig struct {
	LoanHandler           *handler.LoanHandler
	RepaymentHandler      *handler.RepaymentHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HistoryHandler        *handler.HistoryHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	RateLimiter           *middleware.RateLimiter
	Metrics               *metrics.Metrics
	MetricsHandler        http.Handler
	Logger                zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Actor)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetrics(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Post("/schedules/preview", cfg.LoanHandler.PreviewSchedule)

		// Loans
		r.Route("/loans", func(r chi.Router) {
			r.Post("/", cfg.LoanHandler.Create)
			r.Get("/", cfg.LoanHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.LoanHandler.Get)
				r.Post("/disburse", cfg.LoanHandler.Disburse)
				r.Post("/transition", cfg.LoanHandler.Transition)
				r.Post("/restructure", cfg.LoanHandler.Restructure)
				r.Post("/evaluate", cfg.LoanHandler.Evaluate)
				r.Get("/penalties", cfg.LoanHandler.Penalties)

				r.Post("/repayments", cfg.RepaymentHandler.Apply)
				r.Get("/repayments", cfg.RepaymentHandler.ListByLoan)

				r.Get("/reconcile", cfg.ReconciliationHandler.ReconcileLoan)
				r.Get("/audit", cfg.HistoryHandler.Audit)
				r.Get("/events", cfg.HistoryHandler.Events)
			})
		})

		r.Post("/repayments/import", cfg.RepaymentHandler.Import)

		r.Get("/reconciliation", cfg.ReconciliationHandler.Report)
		r.Get("/ledger/consistency", cfg.ReconciliationHandler.Consistency)
	})

	return r
}
