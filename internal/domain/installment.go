package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus tracks the repayment progress of one schedule row.
type InstallmentStatus string

const (
	InstallmentPending       InstallmentStatus = "pending"
	InstallmentPartiallyPaid InstallmentStatus = "partially_paid"
	InstallmentPaid          InstallmentStatus = "paid"
	InstallmentOverdue       InstallmentStatus = "overdue"
)

// Installment is one row of an amortization schedule.
// AmountPaid + Remaining always equals TotalDue. Fees and late penalties are
// tracked beside the scheduled amount and never change TotalDue.
type Installment struct {
	ID            string            `json:"id"`
	Sequence      int               `json:"sequence"`
	DueDate       time.Time         `json:"due_date"`
	PrincipalDue  decimal.Decimal   `json:"principal_due"`
	InterestDue   decimal.Decimal   `json:"interest_due"`
	TotalDue      decimal.Decimal   `json:"total_due"`
	PrincipalPaid decimal.Decimal   `json:"principal_paid"`
	InterestPaid  decimal.Decimal   `json:"interest_paid"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	Remaining     decimal.Decimal   `json:"remaining"`
	FeeDue        decimal.Decimal   `json:"fee_due"`
	FeePaid       decimal.Decimal   `json:"fee_paid"`
	PenaltyPaid   decimal.Decimal   `json:"penalty_paid"`
	Status        InstallmentStatus `json:"status"`
}

func newInstallment(seq int, due time.Time, principal, interest decimal.Decimal) Installment {
	total := principal.Add(interest)
	return Installment{
		Sequence:      seq,
		DueDate:       due,
		PrincipalDue:  principal,
		InterestDue:   interest,
		TotalDue:      total,
		PrincipalPaid: decimal.Zero,
		InterestPaid:  decimal.Zero,
		AmountPaid:    decimal.Zero,
		Remaining:     total,
		FeeDue:        decimal.Zero,
		FeePaid:       decimal.Zero,
		PenaltyPaid:   decimal.Zero,
		Status:        InstallmentPending,
	}
}

func (i *Installment) PrincipalRemaining() decimal.Decimal {
	return i.PrincipalDue.Sub(i.PrincipalPaid)
}

func (i *Installment) InterestRemaining() decimal.Decimal {
	return i.InterestDue.Sub(i.InterestPaid)
}

func (i *Installment) FeeRemaining() decimal.Decimal {
	return i.FeeDue.Sub(i.FeePaid)
}

// IsSettled reports whether principal and interest are fully paid.
func (i *Installment) IsSettled() bool {
	return !i.Remaining.IsPositive()
}

// PastDue reports whether the installment is unpaid after its due date.
func (i *Installment) PastDue(asOf time.Time) bool {
	return !i.IsSettled() && DateOnly(i.DueDate).Before(DateOnly(asOf))
}

// PenaltyEligible reports whether the installment is past due beyond grace.
func (i *Installment) PenaltyEligible(asOf time.Time, graceDays int) bool {
	return i.PastDue(asOf) && DaysBetween(i.DueDate, asOf) > graceDays
}

func (i *Installment) applyInterest(amount decimal.Decimal) {
	i.InterestPaid = i.InterestPaid.Add(amount)
	i.recompute()
}

func (i *Installment) applyPrincipal(amount decimal.Decimal) {
	i.PrincipalPaid = i.PrincipalPaid.Add(amount)
	i.recompute()
}

func (i *Installment) recompute() {
	i.AmountPaid = i.PrincipalPaid.Add(i.InterestPaid)
	i.Remaining = i.TotalDue.Sub(i.AmountPaid)

	switch {
	case i.IsSettled():
		i.Status = InstallmentPaid
	case i.AmountPaid.IsPositive():
		i.Status = InstallmentPartiallyPaid
	case i.Status == InstallmentOverdue:
	default:
		i.Status = InstallmentPending
	}
}
