package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is a state of the loan lifecycle.
type LoanStatus string

const (
	LoanProcessing   LoanStatus = "processing"
	LoanOpen         LoanStatus = "open"
	LoanDefault      LoanStatus = "default"
	LoanClosed       LoanStatus = "closed"
	LoanRestructured LoanStatus = "restructured"
	LoanDenied       LoanStatus = "denied"
	LoanNotTakenUp   LoanStatus = "not_taken_up"
)

// DefaultMissedCyclesThreshold is used when a loan carries no threshold.
const DefaultMissedCyclesThreshold = 3

// Loan is the aggregate root owning the schedule and balances.
// OutstandingBalance = TotalRepayable - CumulativePaid and never goes below
// zero. CumulativePaid counts principal and interest only.
type Loan struct {
	ID                    string
	BorrowerID            string
	ProductCode           string
	Terms                 LoanTerms
	Installments          []Installment
	TotalInterest         decimal.Decimal
	TotalRepayable        decimal.Decimal
	CumulativePaid        decimal.Decimal
	OutstandingBalance    decimal.Decimal
	FeesPaid              decimal.Decimal
	PenaltiesPaid         decimal.Decimal
	MaturityPenaltyPaid   decimal.Decimal
	CreditBalance         decimal.Decimal
	Status                LoanStatus
	MissedCyclesThreshold int
	ApplicationDate       time.Time
	DisbursementDate      *time.Time
	MaturityDate          time.Time
	RestructuredFrom      string
	CustomFields          map[string]any
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewLoan creates a loan in processing with a schedule generated from the
// expected disbursement date.
func NewLoan(id string, terms LoanTerms, expectedDisbursement, now time.Time) (*Loan, error) {
	installments, err := GenerateSchedule(terms, expectedDisbursement)
	if err != nil {
		return nil, err
	}

	loan := &Loan{
		ID:                    id,
		Terms:                 terms,
		Status:                LoanProcessing,
		MissedCyclesThreshold: DefaultMissedCyclesThreshold,
		ApplicationDate:       DateOnly(expectedDisbursement),
		CumulativePaid:        decimal.Zero,
		FeesPaid:              decimal.Zero,
		PenaltiesPaid:         decimal.Zero,
		MaturityPenaltyPaid:   decimal.Zero,
		CreditBalance:         decimal.Zero,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	loan.setSchedule(installments)

	return loan, nil
}

// Reschedule regenerates the schedule from the actual disbursement date.
// Only loans that have not been disbursed can be rescheduled.
func (l *Loan) Reschedule(disbursement time.Time) error {
	if l.Status != LoanProcessing {
		return fmt.Errorf("%w: cannot reschedule a %s loan", ErrInvalidTransition, l.Status)
	}

	installments, err := GenerateSchedule(l.Terms, disbursement)
	if err != nil {
		return err
	}

	l.setSchedule(installments)
	return nil
}

func (l *Loan) setSchedule(installments []Installment) {
	l.Installments = installments
	l.TotalInterest = decimal.Zero
	l.TotalRepayable = decimal.Zero
	for _, inst := range installments {
		l.TotalInterest = l.TotalInterest.Add(inst.InterestDue)
		l.TotalRepayable = l.TotalRepayable.Add(inst.TotalDue)
	}
	if n := len(installments); n > 0 {
		l.MaturityDate = installments[n-1].DueDate
	}
	l.recalculate()
}

// recalculate derives CumulativePaid and OutstandingBalance from the schedule.
func (l *Loan) recalculate() {
	paid := decimal.Zero
	for _, inst := range l.Installments {
		paid = paid.Add(inst.AmountPaid)
	}
	l.CumulativePaid = paid
	l.OutstandingBalance = maxDecimal(l.TotalRepayable.Sub(paid), decimal.Zero)
}

// TotalFeesDue sums fees over the whole schedule.
func (l *Loan) TotalFeesDue() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.Installments {
		total = total.Add(inst.FeeDue)
	}
	return total
}

// Installment returns the installment with the given sequence.
func (l *Loan) Installment(seq int) (*Installment, bool) {
	for i := range l.Installments {
		if l.Installments[i].Sequence == seq {
			return &l.Installments[i], true
		}
	}
	return nil, false
}

// IsPayable reports whether the loan accepts repayments.
func (l *Loan) IsPayable() bool {
	return l.Status == LoanOpen || l.Status == LoanDefault
}

// MarkOverdue flags unpaid installments whose due date has passed and
// returns how many changed.
func (l *Loan) MarkOverdue(asOf time.Time) int {
	changed := 0
	for i := range l.Installments {
		inst := &l.Installments[i]
		if inst.PastDue(asOf) && inst.Status != InstallmentOverdue {
			inst.Status = InstallmentOverdue
			changed++
		}
	}
	return changed
}

// ConsecutiveMissedCycles returns the longest run of consecutive installments
// that are past due beyond the grace period.
func (l *Loan) ConsecutiveMissedCycles(asOf time.Time) int {
	longest, run := 0, 0
	for i := range l.Installments {
		if l.Installments[i].PenaltyEligible(asOf, l.Terms.GraceDays) {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return longest
}

// Clone returns a deep copy so callers can compute on it and commit only on
// success.
func (l *Loan) Clone() *Loan {
	c := *l
	c.Installments = make([]Installment, len(l.Installments))
	copy(c.Installments, l.Installments)
	c.Terms.Fees = append([]FeeSpec(nil), l.Terms.Fees...)
	if l.DisbursementDate != nil {
		d := *l.DisbursementDate
		c.DisbursementDate = &d
	}
	if l.CustomFields != nil {
		c.CustomFields = make(map[string]any, len(l.CustomFields))
		for k, v := range l.CustomFields {
			c.CustomFields[k] = v
		}
	}
	return &c
}
