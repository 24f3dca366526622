package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// TermsRequest carries loan terms. With a product code only the principal is
// required and the remaining fields override the product defaults.
type TermsRequest struct {
	Principal            decimal.Decimal            `json:"principal"`
	AnnualRate           decimal.Decimal            `json:"annual_rate"`
	InterestMethod       domain.InterestMethod      `json:"interest_method"`
	Term                 int                        `json:"term"`
	Cycle                domain.Cycle               `json:"cycle"`
	GraceDays            int                        `json:"grace_days"`
	LatePenalty          domain.PenaltySpec         `json:"late_penalty"`
	MaturityPenalty      domain.MaturityPenaltySpec `json:"maturity_penalty"`
	Fees                 []domain.FeeSpec           `json:"fees,omitempty"`
	FirstRepaymentDate   *Date                      `json:"first_repayment_date,omitempty"`
	FirstRepaymentAmount *decimal.Decimal           `json:"first_repayment_amount,omitempty"`
	Currency             string                     `json:"currency"`
	Scale                int32                      `json:"scale"`
}

// ToDomain converts to domain terms, filling the scale when unset.
func (r TermsRequest) ToDomain(defaultScale int32) domain.LoanTerms {
	scale := r.Scale
	if scale == 0 {
		scale = defaultScale
	}
	return domain.LoanTerms{
		Principal:            r.Principal,
		AnnualRate:           r.AnnualRate,
		InterestMethod:       r.InterestMethod,
		Term:                 r.Term,
		Cycle:                r.Cycle,
		GraceDays:            r.GraceDays,
		LatePenalty:          r.LatePenalty,
		MaturityPenalty:      r.MaturityPenalty,
		Fees:                 r.Fees,
		FirstRepaymentDate:   r.FirstRepaymentDate.Ptr(),
		FirstRepaymentAmount: r.FirstRepaymentAmount,
		Currency:             r.Currency,
		Scale:                scale,
	}
}

// CreateLoanRequest represents a loan application.
type CreateLoanRequest struct {
	ProductCode           string         `json:"product_code,omitempty"`
	BorrowerID            string         `json:"borrower_id"`
	Terms                 TermsRequest   `json:"terms"`
	ExpectedDisbursement  Date           `json:"expected_disbursement_date"`
	MissedCyclesThreshold int            `json:"missed_cycles_threshold,omitempty"`
	CustomFields          map[string]any `json:"custom_fields,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateLoanRequest) ToUseCaseInput(defaultScale int32, now time.Time) usecase.CreateLoanInput {
	return usecase.CreateLoanInput{
		ProductCode:           r.ProductCode,
		BorrowerID:            r.BorrowerID,
		Terms:                 r.Terms.ToDomain(defaultScale),
		ExpectedDisbursement:  r.ExpectedDisbursement.OrNow(now),
		MissedCyclesThreshold: r.MissedCyclesThreshold,
		CustomFields:          r.CustomFields,
	}
}

// SchedulePreviewRequest asks for a schedule without creating a loan.
type SchedulePreviewRequest struct {
	ProductCode      string       `json:"product_code,omitempty"`
	Terms            TermsRequest `json:"terms"`
	DisbursementDate Date         `json:"disbursement_date"`
}

// DisburseRequest records the actual disbursement date.
type DisburseRequest struct {
	DisbursementDate Date `json:"disbursement_date"`
}

// TransitionRequest moves a loan to another status.
type TransitionRequest struct {
	Status domain.LoanStatus `json:"status"`
	Reason string            `json:"reason,omitempty"`
}

// RestructureRequest describes the replacement loan.
type RestructureRequest struct {
	Terms  TermsRequest `json:"terms"`
	Date   Date         `json:"date"`
	Reason string       `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RestructureRequest) ToUseCaseInput(defaultScale int32) usecase.RestructureInput {
	return usecase.RestructureInput{
		Terms:  r.Terms.ToDomain(defaultScale),
		At:     r.Date.Time,
		Reason: r.Reason,
	}
}

// EvaluateRequest runs delinquency evaluation as of a date.
type EvaluateRequest struct {
	AsOf Date `json:"as_of"`
}

// SplitRequest is a caller supplied allocation.
type SplitRequest struct {
	Fees      decimal.Decimal `json:"fees"`
	Penalty   decimal.Decimal `json:"penalty"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
}

// ApplyRepaymentRequest represents a tendered repayment.
type ApplyRepaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    Date            `json:"payment_date"`
	CollectionDate Date            `json:"collection_date"`
	IdempotencyKey string          `json:"idempotency_key"`
	Method         string          `json:"payment_method,omitempty"`
	Collector      string          `json:"collector,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Split          *SplitRequest   `json:"split,omitempty"`
}

// ToUseCaseInput converts to use case input. headerKey is used when the body
// carries no idempotency key.
func (r *ApplyRepaymentRequest) ToUseCaseInput(loanID, headerKey string, now time.Time) usecase.ApplyRepaymentInput {
	key := r.IdempotencyKey
	if key == "" {
		key = headerKey
	}
	received := r.PaymentDate.OrNow(now)
	input := usecase.ApplyRepaymentInput{
		LoanID:         loanID,
		Amount:         r.Amount,
		ReceivedAt:     received,
		CollectedAt:    r.CollectionDate.OrNow(received),
		IdempotencyKey: key,
		Method:         r.Method,
		Collector:      r.Collector,
		Notes:          r.Notes,
	}
	if r.Split != nil {
		input.Split = &domain.AllocationSplit{
			Fees:      r.Split.Fees,
			Penalty:   r.Split.Penalty,
			Interest:  r.Split.Interest,
			Principal: r.Split.Principal,
		}
	}
	return input
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
