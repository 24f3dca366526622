package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

func TestLoanFromDomain(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	loan := &domain.Loan{
		ID:                 "loan-1",
		BorrowerID:         "b-1",
		Status:             domain.LoanOpen,
		TotalRepayable:     decimal.RequireFromString("224.00"),
		OutstandingBalance: decimal.RequireFromString("112.00"),
		MaturityDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Installments: []domain.Installment{
			{Sequence: 1, DueDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), TotalDue: decimal.NewFromInt(112), Status: domain.InstallmentPaid},
			{Sequence: 2, DueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), TotalDue: decimal.NewFromInt(112), Status: domain.InstallmentPending},
		},
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := LoanFromDomain(loan)
	if resp.ID != "loan-1" || resp.Status != domain.LoanOpen || resp.Version != 3 {
		t.Fatalf("unexpected loan response: %+v", resp)
	}
	if resp.MaturityDate != "2026-03-01" {
		t.Fatalf("unexpected maturity date %s", resp.MaturityDate)
	}
	if len(resp.Installments) != 2 || resp.Installments[0].DueDate != "2026-02-01" {
		t.Fatalf("unexpected installments %+v", resp.Installments)
	}

	list := LoansFromDomain([]*domain.Loan{loan})
	if len(list) != 1 || list[0].ID != loan.ID {
		t.Fatalf("LoansFromDomain returned %+v", list)
	}
}

func TestScheduleFromDomain(t *testing.T) {
	schedule := []domain.Installment{
		{Sequence: 1, PrincipalDue: decimal.NewFromInt(100), InterestDue: decimal.NewFromInt(12), TotalDue: decimal.NewFromInt(112)},
		{Sequence: 2, PrincipalDue: decimal.NewFromInt(100), InterestDue: decimal.NewFromInt(12), TotalDue: decimal.NewFromInt(112)},
	}

	resp := ScheduleFromDomain(schedule)
	if !resp.TotalPrincipal.Equal(decimal.NewFromInt(200)) ||
		!resp.TotalInterest.Equal(decimal.NewFromInt(24)) ||
		!resp.TotalRepayable.Equal(decimal.NewFromInt(224)) {
		t.Fatalf("unexpected totals %+v", resp)
	}
}

func TestDueFromSummary(t *testing.T) {
	summary := &usecase.DueSummary{
		AsOf:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Penalties: decimal.NewFromInt(7),
		Total:     decimal.NewFromInt(119),
		Snapshot: domain.PenaltySnapshot{
			Installments: map[int]decimal.Decimal{3: decimal.NewFromInt(2), 1: decimal.NewFromInt(5)},
			Maturity:     decimal.Zero,
		},
	}

	resp := DueFromSummary(summary)
	if resp.AsOf != "2026-04-01" {
		t.Fatalf("unexpected as_of %s", resp.AsOf)
	}
	if len(resp.InstallmentPenalties) != 2 || resp.InstallmentPenalties[0].Sequence != 1 || resp.InstallmentPenalties[1].Sequence != 3 {
		t.Fatalf("penalties should be ordered by sequence: %+v", resp.InstallmentPenalties)
	}
}

func TestImportFromResults(t *testing.T) {
	results := []usecase.ImportResult{
		{Line: 4, LoanID: "l-2", Status: usecase.ImportFailed, Error: "boom"},
		{Line: 2, LoanID: "l-1", Status: usecase.ImportApplied, RepaymentID: "r-1"},
		{Line: 3, LoanID: "l-1", Status: usecase.ImportDuplicate},
	}

	resp := ImportFromResults(results)
	if resp.Applied != 1 || resp.Duplicate != 1 || resp.Failed != 1 {
		t.Fatalf("unexpected counts %+v", resp)
	}
	if resp.Rows[0].Line != 2 || resp.Rows[2].Line != 4 {
		t.Fatalf("rows should be ordered by line: %+v", resp.Rows)
	}
}

func TestReportFromDomain(t *testing.T) {
	report := &usecase.ReconciliationReport{
		TotalLoans:      2,
		ReconciledLoans: 1,
		Discrepancies: []*usecase.ReconciliationResult{
			{LoanID: "loan-2", Difference: decimal.NewFromInt(5)},
		},
		LedgerConsistent: true,
	}

	resp := ReportFromDomain(report)
	if resp.TotalLoans != 2 || len(resp.Discrepancies) != 1 || resp.Discrepancies[0].LoanID != "loan-2" {
		t.Fatalf("unexpected report %+v", resp)
	}
}
