package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PenaltySnapshot is the penalty owed on a loan as of a date. It is derived
// on demand and never persisted.
type PenaltySnapshot struct {
	AsOf         time.Time
	Installments map[int]decimal.Decimal
	Maturity     decimal.Decimal
}

// ForInstallment returns the late penalty owed on an installment.
func (s PenaltySnapshot) ForInstallment(seq int) decimal.Decimal {
	if v, ok := s.Installments[seq]; ok {
		return v
	}
	return decimal.Zero
}

// Total returns late and maturity penalties together.
func (s PenaltySnapshot) Total() decimal.Decimal {
	total := s.Maturity
	for _, v := range s.Installments {
		total = total.Add(v)
	}
	return total
}

// ComputePenalties calculates late and maturity penalties owed as of asOf.
// It does not modify the loan.
func ComputePenalties(loan *Loan, asOf time.Time) (PenaltySnapshot, error) {
	snapshot := PenaltySnapshot{
		AsOf:         asOf,
		Installments: make(map[int]decimal.Decimal),
		Maturity:     decimal.Zero,
	}

	money, err := NewMoney(loan.Terms.Scale)
	if err != nil {
		return snapshot, err
	}

	late := loan.Terms.LatePenalty
	if late.Enabled() {
		for i := range loan.Installments {
			inst := &loan.Installments[i]
			if !inst.PenaltyEligible(asOf, loan.Terms.GraceDays) {
				continue
			}

			periods := accrualPeriods(late.Frequency, inst.DueDate, loan.Terms.GraceDays, asOf)
			perPeriod := late.Rate
			if late.Kind == ChargePercentage {
				perPeriod = late.Rate.Mul(inst.Remaining)
			}

			accrued := money.Round(perPeriod.Mul(decimal.NewFromInt(int64(periods))))
			if owed := accrued.Sub(inst.PenaltyPaid); owed.IsPositive() {
				snapshot.Installments[inst.Sequence] = owed
			}
		}
	}

	if maturityPenaltyApplies(loan, asOf) {
		spec := loan.Terms.MaturityPenalty
		amount := spec.Rate
		if spec.Kind == ChargePercentage {
			amount = spec.Rate.Mul(loan.OutstandingBalance)
		}
		snapshot.Maturity = maxDecimal(money.Round(amount).Sub(loan.MaturityPenaltyPaid), decimal.Zero)
	}

	return snapshot, nil
}

func maturityPenaltyApplies(loan *Loan, asOf time.Time) bool {
	if !loan.Terms.MaturityPenalty.Enabled() || len(loan.Installments) == 0 {
		return false
	}
	if loan.Status == LoanClosed || !loan.OutstandingBalance.IsPositive() {
		return false
	}
	return DateOnly(asOf).After(DateOnly(loan.MaturityDate))
}

// accrualPeriods counts the accrual periods started after the grace period
// ended. The caller guarantees asOf is past due date plus grace.
func accrualPeriods(freq PenaltyFrequency, due time.Time, graceDays int, asOf time.Time) int {
	start := DateOnly(due).AddDate(0, 0, graceDays)
	days := DaysBetween(start, asOf)
	if days <= 0 {
		return 0
	}

	switch freq {
	case PenaltyWeekly:
		return (days + 6) / 7
	case PenaltyMonthly:
		periods := 1
		for addMonthsClamped(start, periods).Before(DateOnly(asOf)) {
			periods++
		}
		return periods
	default:
		return days
	}
}
