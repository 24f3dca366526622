package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// ErrInconsistentLedger is returned when recorded loan payments do not
// match the repayment events.
var ErrInconsistentLedger = errors.New("ledger is inconsistent: cumulative paid does not match applied repayments")

// ReconciliationUseCase checks loan balances against their schedules and
// repayment events.
type ReconciliationUseCase struct {
	loanRepo      LoanRepository
	repaymentRepo RepaymentRepository
	ledgerRepo    LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	loanRepo LoanRepository,
	repaymentRepo RepaymentRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		ledgerRepo:    ledgerRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LoanID              string
	CumulativePaid      decimal.Decimal
	SchedulePaid        decimal.Decimal
	RepaymentsApplied   decimal.Decimal
	RecordedOutstanding decimal.Decimal
	ExpectedOutstanding decimal.Decimal
	Difference          decimal.Decimal
	IsReconciled        bool
	LastChecked         time.Time
}

// ReconcileLoan compares the loan's cumulative paid amount with the sum of
// its installments and of its repayment events, and checks
// outstanding = total repayable - cumulative paid.
func (uc *ReconciliationUseCase) ReconcileLoan(ctx context.Context, loanID string) (*ReconciliationResult, error) {
	loan, err := uc.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	applied, err := uc.repaymentRepo.SumAppliedByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return reconcile(loan, applied), nil
}

func reconcile(loan *domain.Loan, applied decimal.Decimal) *ReconciliationResult {
	schedulePaid := decimal.Zero
	for _, inst := range loan.Installments {
		schedulePaid = schedulePaid.Add(inst.AmountPaid)
	}

	expected := loan.TotalRepayable.Sub(loan.CumulativePaid)
	result := &ReconciliationResult{
		LoanID:              loan.ID,
		CumulativePaid:      loan.CumulativePaid,
		SchedulePaid:        schedulePaid,
		RepaymentsApplied:   applied,
		RecordedOutstanding: loan.OutstandingBalance,
		ExpectedOutstanding: expected,
		Difference:          loan.CumulativePaid.Sub(applied),
		LastChecked:         time.Now().UTC(),
	}

	result.IsReconciled = loan.CumulativePaid.Equal(applied) &&
		loan.CumulativePaid.Equal(schedulePaid) &&
		loan.OutstandingBalance.Equal(expected) &&
		!expected.IsNegative()

	return result
}

// ReconcileAllLoans reconciles every loan in the system
func (uc *ReconciliationUseCase) ReconcileAllLoans(ctx context.Context) ([]*ReconciliationResult, error) {
	var results []*ReconciliationResult
	for offset := 0; ; offset += sweepPageSize {
		loans, err := uc.loanRepo.List(ctx, LoanFilter{Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}

		for _, loan := range loans {
			applied, err := uc.repaymentRepo.SumAppliedByLoan(ctx, loan.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile loan %s: %w", loan.ID, err)
			}
			results = append(results, reconcile(loan, applied))
		}

		if len(loans) < sweepPageSize {
			break
		}
	}

	return results, nil
}

// CheckLedgerConsistency verifies cumulative paid amounts against repayments
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	cumulativePaid, applied, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if !cumulativePaid.Equal(applied) {
		return fmt.Errorf(
			"%w: cumulative_paid=%s applied=%s difference=%s",
			ErrInconsistentLedger,
			cumulativePaid.String(),
			applied.String(),
			cumulativePaid.Sub(applied).String(),
		)
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalLoans       int
	ReconciledLoans  int
	Discrepancies    []*ReconciliationResult
	LedgerConsistent bool
	CheckedAt        time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllLoans(ctx)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx)

	report := &ReconciliationReport{
		TotalLoans:       len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledLoans++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
