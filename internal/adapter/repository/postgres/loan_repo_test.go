package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

var loanColumnNames = []string{
	"id", "borrower_id", "product_code", "status", "currency", "principal", "terms",
	"total_interest", "total_repayable", "cumulative_paid", "outstanding_balance",
	"fees_paid", "penalties_paid", "maturity_penalty_paid", "credit_balance",
	"missed_cycles_threshold", "application_date", "disbursement_date", "maturity_date",
	"restructured_from", "custom_fields", "version", "created_at", "updated_at",
}

var installmentColumnNames = []string{
	"id", "loan_id", "sequence", "due_date", "principal_due", "interest_due", "total_due",
	"fee_due", "principal_paid", "interest_paid", "fee_paid", "penalty_paid", "amount_paid",
	"remaining", "status",
}

func testTerms() domain.LoanTerms {
	return domain.LoanTerms{
		Principal:      dec("200"),
		AnnualRate:     dec("0.12"),
		InterestMethod: domain.InterestFlat,
		Term:           2,
		Cycle:          domain.CycleMonthly,
		Currency:       "USD",
	}
}

func loanRows(t *testing.T, id string) *pgxmock.Rows {
	t.Helper()
	terms, err := json.Marshal(testTerms())
	if err != nil {
		t.Fatalf("marshal terms: %v", err)
	}
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	return pgxmock.NewRows(loanColumnNames).AddRow(
		id, "borrower-1", "", "open", "USD", "200", terms,
		"4", "204", "102", "102",
		"0", "0", "0", "0",
		int32(3), created, date(2024, 1, 1), date(2024, 3, 1),
		nil, []byte(`{"branch":"north"}`), int64(2), created, created,
	)
}

func installmentRows(loanID string) *pgxmock.Rows {
	return pgxmock.NewRows(installmentColumnNames).
		AddRow(loanID+"-001", loanID, int32(1), date(2024, 2, 1), "100", "2", "102",
			"0", "100", "2", "0", "0", "102", "0", "paid").
		AddRow(loanID+"-002", loanID, int32(2), date(2024, 3, 1), "100", "2", "102",
			"0", "0", "0", "0", "0", "0", "102", "pending")
}

func TestLoanRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM loans WHERE id = \$1`).WithArgs("loan-1").WillReturnRows(loanRows(t, "loan-1"))
	pool.ExpectQuery(`FROM installments WHERE loan_id = \$1`).WithArgs("loan-1").WillReturnRows(installmentRows("loan-1"))

	loan, err := NewLoanRepository(pool).GetByID(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if loan.Status != domain.LoanOpen {
		t.Fatalf("status = %s, want open", loan.Status)
	}
	if !loan.Terms.Principal.Equal(dec("200")) || loan.Terms.InterestMethod != domain.InterestFlat {
		t.Fatalf("terms not decoded: %+v", loan.Terms)
	}
	if !loan.CumulativePaid.Equal(dec("102")) || !loan.OutstandingBalance.Equal(dec("102")) {
		t.Fatalf("balances = %s/%s", loan.CumulativePaid, loan.OutstandingBalance)
	}
	if loan.DisbursementDate == nil || !loan.DisbursementDate.Equal(date(2024, 1, 1)) {
		t.Fatalf("disbursement date = %v", loan.DisbursementDate)
	}
	if loan.RestructuredFrom != "" {
		t.Fatalf("restructured from = %q, want empty", loan.RestructuredFrom)
	}
	if loan.CustomFields["branch"] != "north" {
		t.Fatalf("custom fields = %v", loan.CustomFields)
	}
	if len(loan.Installments) != 2 {
		t.Fatalf("installments = %d, want 2", len(loan.Installments))
	}
	second := loan.Installments[1]
	if second.Sequence != 2 || !second.Remaining.Equal(dec("102")) || second.Status != domain.InstallmentPending {
		t.Fatalf("second installment = %+v", second)
	}

	assertExpectations(t, pool)
}

func TestLoanRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM loans WHERE id = \$1`).WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(loanColumnNames))

	_, err := NewLoanRepository(pool).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestLoanRepositoryGetByIDForUpdateUsesTransaction(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(`FROM loans WHERE id = \$1 FOR UPDATE`).WithArgs("loan-1").WillReturnRows(loanRows(t, "loan-1"))
	pool.ExpectQuery(`FROM installments`).WithArgs("loan-1").WillReturnRows(installmentRows("loan-1"))
	pool.ExpectRollback()

	loan, err := NewLoanRepository(pool).GetByIDForUpdate(context.Background(), tx, "loan-1")
	if err != nil {
		t.Fatalf("GetByIDForUpdate: %v", err)
	}
	if loan.Version != 2 {
		t.Fatalf("version = %d, want 2", loan.Version)
	}

	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	assertExpectations(t, pool)
}

func TestLoanRepositoryCreateWritesSchedule(t *testing.T) {
	loan, err := domain.NewLoan("loan-1", testTerms(), date(2024, 1, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatalf("NewLoan: %v", err)
	}

	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`INSERT INTO loans`).WithArgs(anyArgs(24)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO installments`).WithArgs(anyArgs(15)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO installments`).WithArgs(anyArgs(15)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`DELETE FROM installments`).
		WithArgs("loan-1", []string{"loan-1-001", "loan-1-002"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCommit()

	if err := NewLoanRepository(pool).Create(context.Background(), tx, loan); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if loan.Installments[0].ID != "loan-1-001" {
		t.Fatalf("installment id = %q, want loan-1-001", loan.Installments[0].ID)
	}
	assertExpectations(t, pool)
}

func TestLoanRepositoryUpdate(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		wantErr     error
		wantVersion int64
	}{
		{name: "bumps version", affected: 1, wantVersion: 5},
		{name: "stale version", affected: 0, wantErr: ErrVersionConflict, wantVersion: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, err := domain.NewLoan("loan-1", testTerms(), date(2024, 1, 1), date(2024, 1, 1))
			if err != nil {
				t.Fatalf("NewLoan: %v", err)
			}
			loan.Version = 4

			pool := newMockPool(t)
			tx := beginTx(t, pool)
			pool.ExpectExec(`UPDATE loans`).WithArgs(anyArgs(17)...).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			if tt.wantErr == nil {
				pool.ExpectExec(`INSERT INTO installments`).WithArgs(anyArgs(15)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
				pool.ExpectExec(`INSERT INTO installments`).WithArgs(anyArgs(15)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
				pool.ExpectExec(`DELETE FROM installments`).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("DELETE", 0))
			}

			err = NewLoanRepository(pool).Update(context.Background(), tx, loan)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update error = %v, want %v", err, tt.wantErr)
			}
			if loan.Version != tt.wantVersion {
				t.Fatalf("version = %d, want %d", loan.Version, tt.wantVersion)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestLoanRepositoryList(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM loans`).WithArgs("open", "", int32(50), int32(0)).WillReturnRows(loanRows(t, "loan-1"))
	pool.ExpectQuery(`FROM installments`).WithArgs("loan-1").WillReturnRows(installmentRows("loan-1"))

	loans, err := NewLoanRepository(pool).List(context.Background(), usecase.LoanFilter{
		Status: domain.LoanOpen,
		Limit:  50,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(loans) != 1 || loans[0].ID != "loan-1" || len(loans[0].Installments) != 2 {
		t.Fatalf("unexpected loans: %+v", loans)
	}
	assertExpectations(t, pool)
}

func TestLoanRepositoryListPropagatesError(t *testing.T) {
	pool := newMockPool(t)
	boom := errors.New("connection reset")
	pool.ExpectQuery(`FROM loans`).WithArgs(anyArgs(4)...).WillReturnError(boom)

	_, err := NewLoanRepository(pool).List(context.Background(), usecase.LoanFilter{Limit: 10})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

