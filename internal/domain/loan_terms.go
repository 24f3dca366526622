package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InterestMethod selects how a schedule splits interest across installments.
type InterestMethod string

const (
	InterestFlat                     InterestMethod = "flat"
	InterestReducingEqualInstallment InterestMethod = "reducing_equal_installment"
	InterestReducingEqualPrincipal   InterestMethod = "reducing_equal_principal"
	InterestOnly                     InterestMethod = "interest_only"
	InterestCompound                 InterestMethod = "compound"
)

// ChargeKind distinguishes fixed amounts from percentage rates.
type ChargeKind string

const (
	ChargeFixed      ChargeKind = "fixed"
	ChargePercentage ChargeKind = "percentage"
)

// PenaltyFrequency is the accrual period of a late penalty.
type PenaltyFrequency string

const (
	PenaltyDaily   PenaltyFrequency = "daily"
	PenaltyWeekly  PenaltyFrequency = "weekly"
	PenaltyMonthly PenaltyFrequency = "monthly"
)

// FeeCharge says when a fee falls due.
type FeeCharge string

const (
	FeeUpfront        FeeCharge = "upfront"
	FeePerInstallment FeeCharge = "per_installment"
)

// PenaltySpec configures the late penalty. A zero Kind disables it.
// Percentage rates are fractions of the overdue remaining amount.
type PenaltySpec struct {
	Kind      ChargeKind       `json:"kind,omitempty" toml:"kind"`
	Rate      decimal.Decimal  `json:"rate" toml:"rate"`
	Frequency PenaltyFrequency `json:"frequency,omitempty" toml:"frequency"`
}

// Enabled reports whether the penalty accrues at all.
func (p PenaltySpec) Enabled() bool {
	return p.Kind != "" && p.Rate.IsPositive()
}

// MaturityPenaltySpec configures the one-time penalty after maturity.
type MaturityPenaltySpec struct {
	Kind ChargeKind      `json:"kind,omitempty" toml:"kind"`
	Rate decimal.Decimal `json:"rate" toml:"rate"`
}

func (p MaturityPenaltySpec) Enabled() bool {
	return p.Kind != "" && p.Rate.IsPositive()
}

// FeeSpec is one entry of a product fee schedule. Percentage upfront fees
// apply to the principal, percentage per-installment fees to the row total.
type FeeSpec struct {
	Name   string          `json:"name" toml:"name"`
	Kind   ChargeKind      `json:"kind" toml:"kind"`
	Amount decimal.Decimal `json:"amount" toml:"amount"`
	Charge FeeCharge       `json:"charge" toml:"charge"`
}

// LoanTerms are the contractual parameters a schedule is generated from.
// They are immutable once the loan is disbursed.
type LoanTerms struct {
	Principal            decimal.Decimal     `json:"principal"`
	AnnualRate           decimal.Decimal     `json:"annual_rate"`
	InterestMethod       InterestMethod      `json:"interest_method"`
	Term                 int                 `json:"term"`
	Cycle                Cycle               `json:"cycle"`
	GraceDays            int                 `json:"grace_days"`
	LatePenalty          PenaltySpec         `json:"late_penalty"`
	MaturityPenalty      MaturityPenaltySpec `json:"maturity_penalty"`
	Fees                 []FeeSpec           `json:"fees,omitempty"`
	FirstRepaymentDate   *time.Time          `json:"first_repayment_date,omitempty"`
	FirstRepaymentAmount *decimal.Decimal    `json:"first_repayment_amount,omitempty"`
	Currency             string              `json:"currency"`
	Scale                int32               `json:"scale"`
}

// RatePerCycle converts the nominal annual rate to the periodic rate.
func (t LoanTerms) RatePerCycle() (decimal.Decimal, error) {
	periods, err := t.Cycle.PeriodsPerYear()
	if err != nil {
		return decimal.Zero, err
	}
	return t.AnnualRate.DivRound(decimal.NewFromInt(periods), powPrecision), nil
}

// Validate checks the terms for structural errors. A term below one cycle
// returns ErrInvalidTerm, everything else ErrInvalidTerms.
func (t LoanTerms) Validate() error {
	if t.Term < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTerm, t.Term)
	}
	if !t.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidTerms)
	}
	if t.AnnualRate.IsNegative() {
		return fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidTerms)
	}
	if t.GraceDays < 0 {
		return fmt.Errorf("%w: grace period cannot be negative", ErrInvalidTerms)
	}
	if _, err := NewMoney(t.Scale); err != nil {
		return err
	}
	if _, err := t.Cycle.PeriodsPerYear(); err != nil {
		return err
	}

	switch t.InterestMethod {
	case InterestFlat, InterestReducingEqualInstallment, InterestReducingEqualPrincipal, InterestOnly, InterestCompound:
	default:
		return fmt.Errorf("%w: unknown interest method %q", ErrInvalidTerms, t.InterestMethod)
	}

	if err := validatePenalty(t.LatePenalty); err != nil {
		return err
	}
	if t.MaturityPenalty.Kind != "" {
		if err := validateChargeKind(t.MaturityPenalty.Kind, t.MaturityPenalty.Rate); err != nil {
			return fmt.Errorf("maturity penalty: %w", err)
		}
	}

	for _, fee := range t.Fees {
		if fee.Name == "" {
			return fmt.Errorf("%w: fee name is required", ErrInvalidTerms)
		}
		if err := validateChargeKind(fee.Kind, fee.Amount); err != nil {
			return fmt.Errorf("fee %s: %w", fee.Name, err)
		}
		if fee.Charge != FeeUpfront && fee.Charge != FeePerInstallment {
			return fmt.Errorf("%w: fee %s has unknown charge %q", ErrInvalidTerms, fee.Name, fee.Charge)
		}
	}

	if t.FirstRepaymentAmount != nil && !t.FirstRepaymentAmount.IsPositive() {
		return fmt.Errorf("%w: first repayment amount must be positive", ErrInvalidTerms)
	}

	return nil
}

func validatePenalty(p PenaltySpec) error {
	if p.Kind == "" {
		return nil
	}
	if err := validateChargeKind(p.Kind, p.Rate); err != nil {
		return fmt.Errorf("late penalty: %w", err)
	}
	switch p.Frequency {
	case PenaltyDaily, PenaltyWeekly, PenaltyMonthly:
		return nil
	default:
		return fmt.Errorf("%w: unknown penalty frequency %q", ErrInvalidTerms, p.Frequency)
	}
}

func validateChargeKind(kind ChargeKind, rate decimal.Decimal) error {
	switch kind {
	case ChargeFixed, ChargePercentage:
	default:
		return fmt.Errorf("%w: unknown charge kind %q", ErrInvalidTerms, kind)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: rate cannot be negative", ErrInvalidTerms)
	}
	return nil
}
