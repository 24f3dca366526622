package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is how a tendered amount was split. Credit holds overpayment.
type Allocation struct {
	Fees      decimal.Decimal `json:"fees"`
	Penalty   decimal.Decimal `json:"penalty"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Credit    decimal.Decimal `json:"credit"`
}

// Total sums every component.
func (a Allocation) Total() decimal.Decimal {
	return a.Fees.Add(a.Penalty).Add(a.Interest).Add(a.Principal).Add(a.Credit)
}

// AllocationLine is the part of a repayment applied to one installment.
type AllocationLine struct {
	Sequence  int             `json:"sequence"`
	Fees      decimal.Decimal `json:"fees"`
	Penalty   decimal.Decimal `json:"penalty"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
}

func (l AllocationLine) isZero() bool {
	return l.Fees.IsZero() && l.Penalty.IsZero() && l.Interest.IsZero() && l.Principal.IsZero()
}

// AllocationSplit is a caller supplied breakdown, used by bulk imports that
// carry their own split.
type AllocationSplit struct {
	Fees      decimal.Decimal
	Penalty   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

// Total sums the split.
func (s AllocationSplit) Total() decimal.Decimal {
	return s.Fees.Add(s.Penalty).Add(s.Interest).Add(s.Principal)
}

// RepaymentRequest is a tendered repayment before allocation.
type RepaymentRequest struct {
	Amount         decimal.Decimal
	ReceivedAt     time.Time
	CollectedAt    time.Time
	IdempotencyKey string
	Method         string
	Collector      string
	Notes          string
	Split          *AllocationSplit
}

// RepaymentEvent is the immutable record of an accepted repayment.
// Corrections are new events, never edits.
type RepaymentEvent struct {
	ID              string           `json:"id"`
	LoanID          string           `json:"loan_id"`
	Amount          decimal.Decimal  `json:"amount"`
	ReceivedAt      time.Time        `json:"received_at"`
	CollectedAt     time.Time        `json:"collected_at"`
	Allocation      Allocation       `json:"allocation"`
	MaturityPenalty decimal.Decimal  `json:"maturity_penalty"`
	Lines           []AllocationLine `json:"lines"`
	IdempotencyKey  string           `json:"idempotency_key"`
	Method          string           `json:"method,omitempty"`
	Collector       string           `json:"collector,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
