package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	repo "github.com/iho/loanledger/internal/adapter/repository/postgres"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/lock"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
	"github.com/iho/loanledger/internal/usecase"
)

// These tests run against a real database and are skipped unless
// LOANLEDGER_TEST_DATABASE_URL is set.
const testDatabaseEnv = "LOANLEDGER_TEST_DATABASE_URL"

type stack struct {
	pool           *pgxpool.Pool
	loans          *usecase.LoanUseCase
	repayments     *usecase.RepaymentUseCase
	reconciliation *usecase.ReconciliationUseCase
	outbox         *repo.OutboxRepository
}

func newStack(t *testing.T) *stack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv(testDatabaseEnv)
	if dbURL == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	if err := postgres.NewMigrator(dbURL, "../../../../migrations", zerolog.Nop()).Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 10, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE repayments, installments, loans, outbox_events, audit_logs CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	txManager := repo.NewTxManager(pool)
	loanRepo := repo.NewLoanRepository(pool)
	repaymentRepo := repo.NewRepaymentRepository(pool)
	outboxRepo := repo.NewOutboxRepository(pool)
	auditRepo := repo.NewAuditRepository(pool)
	idGen := repo.NewULIDGenerator()

	return &stack{
		pool:  pool,
		loans: usecase.NewLoanUseCase(txManager, loanRepo, outboxRepo, auditRepo, idGen, nil, usecase.LoanUseCaseConfig{}),
		repayments: usecase.NewRepaymentUseCase(
			txManager, loanRepo, repaymentRepo, outboxRepo, auditRepo, idGen,
			lock.New(8), repo.NewRetrier(zerolog.Nop()), nil, nil,
		),
		reconciliation: usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, repo.NewLedgerRepository(pool)),
		outbox:         outboxRepo,
	}
}

var disbursedAt = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func (s *stack) openLoan(t *testing.T, principal int64, term int) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	loan, err := s.loans.CreateLoan(ctx, usecase.CreateLoanInput{
		BorrowerID: "borrower-1",
		Terms: domain.LoanTerms{
			Principal:      decimal.NewFromInt(principal),
			AnnualRate:     decimal.Zero,
			InterestMethod: domain.InterestFlat,
			Term:           term,
			Cycle:          domain.CycleMonthly,
			Currency:       "USD",
		},
		ExpectedDisbursement: disbursedAt,
	})
	if err != nil {
		t.Fatalf("failed to create loan: %v", err)
	}

	loan, err = s.loans.Disburse(ctx, loan.ID, disbursedAt)
	if err != nil {
		t.Fatalf("failed to disburse loan: %v", err)
	}
	return loan
}

func TestIntegrationConcurrentRepaymentsRepayLoan(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	loan := s.openLoan(t, 1000, 10)

	const payments = 10
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	wg.Add(payments)
	for i := range payments {
		go func() {
			defer wg.Done()
			_, err := s.repayments.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{
				LoanID:         loan.ID,
				Amount:         decimal.NewFromInt(100),
				ReceivedAt:     disbursedAt.AddDate(0, 0, 1),
				IdempotencyKey: fmt.Sprintf("pay-%d", i),
			})
			if err != nil {
				t.Errorf("repayment %d failed: %v", i, err)
				return
			}
			succeeded.Add(1)
		}()
	}
	wg.Wait()

	if succeeded.Load() != payments {
		t.Fatalf("expected %d repayments, got %d", payments, succeeded.Load())
	}

	got, err := s.loans.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("failed to load loan: %v", err)
	}
	if !got.CumulativePaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected cumulative paid 1000, got %s", got.CumulativePaid)
	}
	if !got.OutstandingBalance.IsZero() {
		t.Errorf("expected zero outstanding balance, got %s", got.OutstandingBalance)
	}
	if got.Status != domain.LoanClosed {
		t.Errorf("expected closed loan, got %s", got.Status)
	}

	if err := s.reconciliation.CheckLedgerConsistency(ctx); err != nil {
		t.Errorf("expected consistent ledger: %v", err)
	}

	events, err := s.outbox.GetByAggregate(ctx, domain.AggregateTypeLoan, loan.ID, 100, 0)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	applied := 0
	for _, e := range events {
		if e.EventType == domain.EventTypePaymentApplied {
			applied++
		}
	}
	if applied != payments {
		t.Errorf("expected %d payment events, got %d", payments, applied)
	}
}

func TestIntegrationDuplicateKeyAppliedOnce(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	loan := s.openLoan(t, 500, 5)

	const attempts = 5
	var (
		wg         sync.WaitGroup
		succeeded  atomic.Int32
		duplicates atomic.Int32
	)
	wg.Add(attempts)
	for range attempts {
		go func() {
			defer wg.Done()
			_, err := s.repayments.ApplyRepayment(ctx, usecase.ApplyRepaymentInput{
				LoanID:         loan.ID,
				Amount:         decimal.NewFromInt(50),
				ReceivedAt:     disbursedAt.AddDate(0, 0, 1),
				IdempotencyKey: "same-key",
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrDuplicateRepayment):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 || duplicates.Load() != attempts-1 {
		t.Fatalf("expected one success and %d duplicates, got %d and %d", attempts-1, succeeded.Load(), duplicates.Load())
	}

	repayments, err := s.repayments.ListRepayments(ctx, loan.ID, 10, 0)
	if err != nil {
		t.Fatalf("failed to list repayments: %v", err)
	}
	if len(repayments) != 1 {
		t.Fatalf("expected one stored repayment, got %d", len(repayments))
	}
}
