package domain

import "time"

// Event types
const (
	EventTypeLoanCreated       = "loan.created"
	EventTypeScheduleGenerated = "schedule.generated"
	EventTypePaymentApplied    = "payment.applied"
	EventTypeStatusChanged     = "loan.status_changed"
	EventTypeLoanRestructured  = "loan.restructured"
)

// Aggregate types
const (
	AggregateTypeLoan = "loan"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// ScheduleGeneratedEvent payload
type ScheduleGeneratedEvent struct {
	LoanID         string `json:"loan_id"`
	InterestMethod string `json:"interest_method"`
	Installments   int    `json:"installments"`
	TotalInterest  string `json:"total_interest"`
	TotalRepayable string `json:"total_repayable"`
	FirstDueDate   string `json:"first_due_date"`
	MaturityDate   string `json:"maturity_date"`
}

// PaymentAppliedEvent payload
type PaymentAppliedEvent struct {
	LoanID             string `json:"loan_id"`
	RepaymentID        string `json:"repayment_id"`
	IdempotencyKey     string `json:"idempotency_key"`
	Amount             string `json:"amount"`
	Fees               string `json:"fees"`
	Penalty            string `json:"penalty"`
	Interest           string `json:"interest"`
	Principal          string `json:"principal"`
	Credit             string `json:"credit"`
	OutstandingBalance string `json:"outstanding_balance"`
	ReceivedAt         string `json:"received_at"`
}

// StatusChangedEvent payload
type StatusChangedEvent struct {
	LoanID string `json:"loan_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
	At     string `json:"at"`
}

// LoanRestructuredEvent payload
type LoanRestructuredEvent struct {
	OriginalLoanID string `json:"original_loan_id"`
	NewLoanID      string `json:"new_loan_id"`
	Principal      string `json:"principal"`
}

// NewScheduleGeneratedEvent builds the payload for a loan's current schedule.
func NewScheduleGeneratedEvent(loan *Loan) ScheduleGeneratedEvent {
	ev := ScheduleGeneratedEvent{
		LoanID:         loan.ID,
		InterestMethod: string(loan.Terms.InterestMethod),
		Installments:   len(loan.Installments),
		TotalInterest:  loan.TotalInterest.String(),
		TotalRepayable: loan.TotalRepayable.String(),
		MaturityDate:   loan.MaturityDate.Format(time.DateOnly),
	}
	if len(loan.Installments) > 0 {
		ev.FirstDueDate = loan.Installments[0].DueDate.Format(time.DateOnly)
	}
	return ev
}

// NewPaymentAppliedEvent builds the payload for an accepted repayment.
func NewPaymentAppliedEvent(loan *Loan, r *RepaymentEvent) PaymentAppliedEvent {
	return PaymentAppliedEvent{
		LoanID:             loan.ID,
		RepaymentID:        r.ID,
		IdempotencyKey:     r.IdempotencyKey,
		Amount:             r.Amount.String(),
		Fees:               r.Allocation.Fees.String(),
		Penalty:            r.Allocation.Penalty.String(),
		Interest:           r.Allocation.Interest.String(),
		Principal:          r.Allocation.Principal.String(),
		Credit:             r.Allocation.Credit.String(),
		OutstandingBalance: loan.OutstandingBalance.String(),
		ReceivedAt:         r.ReceivedAt.Format(time.DateOnly),
	}
}

// NewStatusChangedEvent builds the payload for a status change.
func NewStatusChangedEvent(c StatusChange) StatusChangedEvent {
	return StatusChangedEvent{
		LoanID: c.LoanID,
		From:   string(c.From),
		To:     string(c.To),
		Reason: c.Reason,
		At:     c.At.UTC().Format(time.RFC3339),
	}
}
