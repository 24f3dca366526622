package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// openLoan builds a disbursed loan from terms.
func openLoan(t *testing.T, terms LoanTerms, disbursed time.Time) *Loan {
	t.Helper()

	loan, err := NewLoan("loan-1", terms, disbursed, disbursed)
	if err != nil {
		t.Fatalf("NewLoan: %v", err)
	}
	if _, err := loan.Transition(LoanOpen, TransitionContext{At: disbursed}); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	return loan
}

type row struct {
	fee, interest, principal string
	due                      time.Time
}

// loanWithRows builds an open loan with a hand-written schedule.
func loanWithRows(rows ...row) *Loan {
	installments := make([]Installment, len(rows))
	for i, r := range rows {
		installments[i] = newInstallment(i+1, r.due, dec(r.principal), dec(r.interest))
		installments[i].FeeDue = dec(r.fee)
	}

	loan := &Loan{
		ID:                    "loan-1",
		Terms:                 LoanTerms{Currency: "USD", Scale: 2},
		Status:                LoanOpen,
		MissedCyclesThreshold: DefaultMissedCyclesThreshold,
		CumulativePaid:        decimal.Zero,
		FeesPaid:              decimal.Zero,
		PenaltiesPaid:         decimal.Zero,
		MaturityPenaltyPaid:   decimal.Zero,
		CreditBalance:         decimal.Zero,
	}
	loan.setSchedule(installments)
	return loan
}

func emptySnapshot(asOf time.Time) PenaltySnapshot {
	return PenaltySnapshot{AsOf: asOf, Installments: map[int]decimal.Decimal{}, Maturity: decimal.Zero}
}
