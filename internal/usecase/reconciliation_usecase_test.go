package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

type stubLoanRepository struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Loan, error)
	listFn    func(ctx context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error)
}

func (s *stubLoanRepository) Create(context.Context, usecase.Transaction, *domain.Loan) error {
	return nil
}
func (s *stubLoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	return s.getByIDFn(ctx, id)
}
func (s *stubLoanRepository) GetByIDForUpdate(context.Context, usecase.Transaction, string) (*domain.Loan, error) {
	return nil, errors.New("not implemented")
}
func (s *stubLoanRepository) Update(context.Context, usecase.Transaction, *domain.Loan) error {
	return errors.New("not implemented")
}
func (s *stubLoanRepository) List(ctx context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error) {
	return s.listFn(ctx, filter)
}

type stubRepaymentRepository struct {
	sums map[string]decimal.Decimal
	err  error
}

func (s *stubRepaymentRepository) Create(context.Context, usecase.Transaction, *domain.RepaymentEvent) error {
	return nil
}
func (s *stubRepaymentRepository) GetByIdempotencyKey(context.Context, usecase.Transaction, string, string) (*domain.RepaymentEvent, error) {
	return nil, domain.ErrRepaymentNotFound
}
func (s *stubRepaymentRepository) ListByLoan(context.Context, string, int, int) ([]*domain.RepaymentEvent, error) {
	return nil, nil
}
func (s *stubRepaymentRepository) SumAppliedByLoan(_ context.Context, loanID string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.sums[loanID], nil
}

type stubLedgerRepository struct {
	checkFn func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
}

func (s *stubLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return s.checkFn(ctx)
}

func balancedLedger() *stubLedgerRepository {
	return &stubLedgerRepository{
		checkFn: func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.Zero, decimal.Zero, nil
		},
	}
}

// paidLoan builds an open two-installment loan with paid applied to the
// first installment.
func paidLoan(id string, paid int64) *domain.Loan {
	amount := decimal.NewFromInt(paid)
	return &domain.Loan{
		ID:                 id,
		Status:             domain.LoanOpen,
		TotalRepayable:     decimal.NewFromInt(1000),
		CumulativePaid:     amount,
		OutstandingBalance: decimal.NewFromInt(1000 - paid),
		Installments: []domain.Installment{
			{Sequence: 1, TotalDue: decimal.NewFromInt(500), AmountPaid: amount},
			{Sequence: 2, TotalDue: decimal.NewFromInt(500), AmountPaid: decimal.Zero},
		},
	}
}

func TestReconcileLoan(t *testing.T) {
	t.Parallel()

	loan := paidLoan("loan-1", 300)

	loanRepo := &stubLoanRepository{
		getByIDFn: func(context.Context, string) (*domain.Loan, error) {
			return loan, nil
		},
	}
	repaymentRepo := &stubRepaymentRepository{sums: map[string]decimal.Decimal{
		"loan-1": decimal.NewFromInt(300),
	}}

	uc := usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, balancedLedger())

	result, err := uc.ReconcileLoan(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.RecordedOutstanding.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected outstanding 700, got %s", result.RecordedOutstanding)
	}

	if !result.IsReconciled {
		t.Fatal("expected loan to be marked as reconciled")
	}

	if !result.Difference.IsZero() {
		t.Fatalf("expected zero difference, got %s", result.Difference)
	}

	if result.LastChecked.IsZero() {
		t.Fatal("expected LastChecked timestamp to be set")
	}
}

func TestReconcileLoan_Discrepancies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(l *domain.Loan)
		applied int64
	}{
		{
			name:    "repayment events missing",
			mutate:  func(*domain.Loan) {},
			applied: 200,
		},
		{
			name: "schedule disagrees with cumulative paid",
			mutate: func(l *domain.Loan) {
				l.Installments[1].AmountPaid = decimal.NewFromInt(10)
			},
			applied: 300,
		},
		{
			name: "outstanding drifted",
			mutate: func(l *domain.Loan) {
				l.OutstandingBalance = decimal.NewFromInt(650)
			},
			applied: 300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := paidLoan("loan-1", 300)
			tt.mutate(loan)

			loanRepo := &stubLoanRepository{
				getByIDFn: func(context.Context, string) (*domain.Loan, error) { return loan, nil },
			}
			repaymentRepo := &stubRepaymentRepository{sums: map[string]decimal.Decimal{
				"loan-1": decimal.NewFromInt(tt.applied),
			}}

			uc := usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, balancedLedger())
			result, err := uc.ReconcileLoan(context.Background(), "loan-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsReconciled {
				t.Fatal("expected discrepancy to be detected")
			}
		})
	}
}

func TestReconcileLoan_PropagatesError(t *testing.T) {
	t.Parallel()

	loanRepo := &stubLoanRepository{
		getByIDFn: func(context.Context, string) (*domain.Loan, error) {
			return nil, fmt.Errorf("boom")
		},
	}

	uc := usecase.NewReconciliationUseCase(loanRepo, &stubRepaymentRepository{}, balancedLedger())

	_, err := uc.ReconcileLoan(context.Background(), "missing")
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected propagated error, got %v", err)
	}
}

func TestReconcileAllLoans(t *testing.T) {
	t.Parallel()

	loans := []*domain.Loan{paidLoan("loan-1", 100), paidLoan("loan-2", 200)}

	loanRepo := &stubLoanRepository{
		listFn: func(_ context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error) {
			if filter.Offset > 0 {
				return nil, nil
			}
			return loans, nil
		},
	}
	repaymentRepo := &stubRepaymentRepository{sums: map[string]decimal.Decimal{
		"loan-1": decimal.NewFromInt(100),
		"loan-2": decimal.NewFromInt(200),
	}}

	uc := usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, balancedLedger())

	results, err := uc.ReconcileAllLoans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != len(loans) {
		t.Fatalf("expected %d results, got %d", len(loans), len(results))
	}

	repaymentRepo.err = errors.New("db down")
	if _, err := uc.ReconcileAllLoans(context.Background()); err == nil {
		t.Fatal("expected error when repayment sums fail")
	}
}

func TestCheckLedgerConsistency(t *testing.T) {
	t.Parallel()

	okLedger := &stubLedgerRepository{
		checkFn: func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.NewFromInt(500), decimal.NewFromInt(500), nil
		},
	}

	loanRepo := &stubLoanRepository{
		getByIDFn: func(context.Context, string) (*domain.Loan, error) { return nil, errors.New("unused") },
		listFn:    func(context.Context, usecase.LoanFilter) ([]*domain.Loan, error) { return nil, nil },
	}

	uc := usecase.NewReconciliationUseCase(loanRepo, &stubRepaymentRepository{}, okLedger)
	if err := uc.CheckLedgerConsistency(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badLedger := &stubLedgerRepository{
		checkFn: func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.NewFromInt(100), decimal.NewFromInt(50), nil
		},
	}

	uc = usecase.NewReconciliationUseCase(loanRepo, &stubRepaymentRepository{}, badLedger)
	if err := uc.CheckLedgerConsistency(context.Background()); !errors.Is(err, usecase.ErrInconsistentLedger) {
		t.Fatalf("expected ErrInconsistentLedger, got %v", err)
	}
}

func TestGenerateReconciliationReport(t *testing.T) {
	t.Parallel()

	good := paidLoan("r1", 100)
	bad := paidLoan("r2", 200)
	bad.OutstandingBalance = decimal.NewFromInt(1)

	loanRepo := &stubLoanRepository{
		listFn: func(_ context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error) {
			if filter.Offset > 0 {
				return nil, nil
			}
			return []*domain.Loan{good, bad}, nil
		},
	}
	repaymentRepo := &stubRepaymentRepository{sums: map[string]decimal.Decimal{
		"r1": decimal.NewFromInt(100),
		"r2": decimal.NewFromInt(200),
	}}
	ledgerRepo := &stubLedgerRepository{
		checkFn: func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.NewFromInt(300), decimal.NewFromInt(300), nil
		},
	}

	uc := usecase.NewReconciliationUseCase(loanRepo, repaymentRepo, ledgerRepo)

	report, err := uc.GenerateReconciliationReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalLoans != 2 {
		t.Fatalf("expected total loans 2, got %d", report.TotalLoans)
	}

	if report.ReconciledLoans != 1 {
		t.Fatalf("expected 1 reconciled loan, got %d", report.ReconciledLoans)
	}

	if len(report.Discrepancies) != 1 || report.Discrepancies[0].LoanID != "r2" {
		t.Fatalf("expected r2 to be reported, got %+v", report.Discrepancies)
	}

	if !report.LedgerConsistent {
		t.Fatal("expected ledger to be marked consistent")
	}

	if report.CheckedAt.IsZero() {
		t.Fatal("expected CheckedAt timestamp")
	}
}
