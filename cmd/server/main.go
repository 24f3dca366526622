package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/loanledger/internal/adapter/http"
	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/loanledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/loanledger/internal/adapter/repository/redis"
	"github.com/iho/loanledger/internal/infrastructure/catalog"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/eventpublisher"
	"github.com/iho/loanledger/internal/infrastructure/lock"
	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
	"github.com/iho/loanledger/internal/infrastructure/redis"
	"github.com/iho/loanledger/internal/infrastructure/scheduler"
	"github.com/iho/loanledger/internal/usecase"
)

const (
	lockShards         = 64
	limiterIdleTimeout = time.Hour
	limiterCleanupSpec = "@hourly"
	sweepJobName       = "delinquency_sweep"
	limiterCleanupJob  = "rate_limiter_cleanup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	if err := scheduler.Validate(cfg.DelinquencySweepSchedule); err != nil {
		return fmt.Errorf("invalid DELINQUENCY_SWEEP_SCHEDULE: %w", err)
	}

	products, err := loadCatalog(cfg.ProductCatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load product catalog: %w", err)
	}
	lg.Info().Int("products", len(products.Codes())).Msg("product catalog loaded")

	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, lg).Up(); err != nil {
		return err
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	lg.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Options{URL: cfg.RedisURL})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	lg.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	loanRepo := postgresRepo.NewLoanRepository(pool)
	repaymentRepo := postgresRepo.NewRepaymentRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := newOutboxRepository(cfg, pool, lg)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Use cases
	loanUC := usecase.NewLoanUseCase(txManager, loanRepo, outboxRepo, auditRepo, idGen, m, usecase.LoanUseCaseConfig{
		Catalog:               products,
		Cache:                 cache,
		CacheTTL:              cfg.CacheTTL,
		MissedCyclesThreshold: cfg.MissedCyclesThreshold,
	})
	repaymentUC := usecase.NewRepaymentUseCase(
		txManager, loanRepo, repaymentRepo, outboxRepo, auditRepo, idGen,
		lock.New(lockShards), postgresRepo.NewRetrier(lg), cache, m,
	)
	reconciliationUC := usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, ledgerRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LoanHandler: handler.NewLoanHandler(loanUC, cfg.MoneyScale),
		RepaymentHandler: handler.NewRepaymentHandler(repaymentUC, handler.RepaymentConfig{
			MaxImportBytes:    cfg.MaxImportBytes,
			ImportConcurrency: cfg.ImportConcurrency,
		}),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HistoryHandler:        handler.NewHistoryHandler(auditRepo, outboxRepo),
		HealthHandler:         handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           rateLimiter,
		Metrics:               m,
		Logger:                lg,
	})

	// Background work
	jobs := scheduler.New(lg, time.UTC, 0)
	if err := registerJobs(jobs, cfg.DelinquencySweepSchedule, loanUC, rateLimiter, lg); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	bgCtx, cancelBG := context.WithCancel(ctx)
	defer cancelBG()
	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  newPublisher(lg, redisClient, cfg.EventStream, cfg.EventStreamMaxLen),
			Logger:     lg,
			Metrics:    m,
			Interval:   cfg.EventPublisherInterval,
			Retention:  cfg.OutboxRetention,
		})
		go func() {
			if err := publisher.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// loadCatalog reads the product catalog. No path means no products.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Empty(), nil
	}
	return catalog.Load(path)
}

func newOutboxRepository(cfg *config.Config, pool *pgxpool.Pool, lg zerolog.Logger) usecase.OutboxRepository {
	if !cfg.OutboxEnabled {
		lg.Warn().Msg("outbox disabled, loan events are discarded")
		return postgresRepo.NewDiscardOutboxRepository()
	}
	return postgresRepo.NewOutboxRepository(pool)
}

// newPublisher logs every event and, with a redis client, appends it to the event stream.
func newPublisher(lg zerolog.Logger, client goredis.UniversalClient, stream string, maxLen int64) eventpublisher.Publisher {
	logPublisher := eventpublisher.NewLogPublisher(lg)
	if client == nil {
		return logPublisher
	}
	return eventpublisher.MultiPublisher{
		eventpublisher.NewStreamPublisher(client, stream, maxLen),
		logPublisher,
	}
}

type delinquencySweeper interface {
	SweepDelinquency(ctx context.Context, asOf time.Time) (evaluated, defaulted int, err error)
}

type limiterCleaner interface {
	CleanupLimiters(idle time.Duration) int
}

func registerJobs(s *scheduler.Scheduler, sweepSpec string, sweeper delinquencySweeper, limiter limiterCleaner, lg zerolog.Logger) error {
	if err := s.Add(sweepJobName, sweepSpec, sweepJob(sweeper, lg)); err != nil {
		return fmt.Errorf("failed to schedule delinquency sweep: %w", err)
	}
	if limiter == nil {
		return nil
	}
	return s.Add(limiterCleanupJob, limiterCleanupSpec, cleanupJob(limiter, lg))
}

func sweepJob(sweeper delinquencySweeper, lg zerolog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		evaluated, defaulted, err := sweeper.SweepDelinquency(ctx, time.Now().UTC())
		lg.Info().
			Int("evaluated", evaluated).
			Int("defaulted", defaulted).
			Msg("delinquency sweep finished")
		return err
	}
}

func cleanupJob(limiter limiterCleaner, lg zerolog.Logger) scheduler.Job {
	return func(context.Context) error {
		removed := limiter.CleanupLimiters(limiterIdleTimeout)
		lg.Debug().Int("removed", removed).Msg("rate limiters cleaned up")
		return nil
	}
}
