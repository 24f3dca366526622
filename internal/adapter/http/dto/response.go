package dto

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// InstallmentResponse represents one schedule row.
type InstallmentResponse struct {
	Sequence      int                      `json:"sequence"`
	DueDate       string                   `json:"due_date"`
	PrincipalDue  decimal.Decimal          `json:"principal_due"`
	InterestDue   decimal.Decimal          `json:"interest_due"`
	TotalDue      decimal.Decimal          `json:"total_due"`
	PrincipalPaid decimal.Decimal          `json:"principal_paid"`
	InterestPaid  decimal.Decimal          `json:"interest_paid"`
	AmountPaid    decimal.Decimal          `json:"amount_paid"`
	Remaining     decimal.Decimal          `json:"remaining"`
	FeeDue        decimal.Decimal          `json:"fee_due"`
	FeePaid       decimal.Decimal          `json:"fee_paid"`
	PenaltyPaid   decimal.Decimal          `json:"penalty_paid"`
	Status        domain.InstallmentStatus `json:"status"`
}

// InstallmentsFromDomain converts schedule rows to responses.
func InstallmentsFromDomain(installments []domain.Installment) []InstallmentResponse {
	result := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		result[i] = InstallmentResponse{
			Sequence:      inst.Sequence,
			DueDate:       inst.DueDate.Format(time.DateOnly),
			PrincipalDue:  inst.PrincipalDue,
			InterestDue:   inst.InterestDue,
			TotalDue:      inst.TotalDue,
			PrincipalPaid: inst.PrincipalPaid,
			InterestPaid:  inst.InterestPaid,
			AmountPaid:    inst.AmountPaid,
			Remaining:     inst.Remaining,
			FeeDue:        inst.FeeDue,
			FeePaid:       inst.FeePaid,
			PenaltyPaid:   inst.PenaltyPaid,
			Status:        inst.Status,
		}
	}
	return result
}

// ScheduleResponse is a previewed schedule with its totals.
type ScheduleResponse struct {
	Installments   []InstallmentResponse `json:"installments"`
	TotalPrincipal decimal.Decimal       `json:"total_principal"`
	TotalInterest  decimal.Decimal       `json:"total_interest"`
	TotalRepayable decimal.Decimal       `json:"total_repayable"`
}

// ScheduleFromDomain converts a generated schedule.
func ScheduleFromDomain(installments []domain.Installment) *ScheduleResponse {
	resp := &ScheduleResponse{Installments: InstallmentsFromDomain(installments)}
	for _, inst := range installments {
		resp.TotalPrincipal = resp.TotalPrincipal.Add(inst.PrincipalDue)
		resp.TotalInterest = resp.TotalInterest.Add(inst.InterestDue)
		resp.TotalRepayable = resp.TotalRepayable.Add(inst.TotalDue)
	}
	return resp
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID                    string                `json:"id"`
	BorrowerID            string                `json:"borrower_id"`
	ProductCode           string                `json:"product_code,omitempty"`
	Status                domain.LoanStatus     `json:"status"`
	Terms                 domain.LoanTerms      `json:"terms"`
	TotalInterest         decimal.Decimal       `json:"total_interest"`
	TotalRepayable        decimal.Decimal       `json:"total_repayable"`
	CumulativePaid        decimal.Decimal       `json:"cumulative_paid"`
	OutstandingBalance    decimal.Decimal       `json:"outstanding_balance"`
	FeesPaid              decimal.Decimal       `json:"fees_paid"`
	PenaltiesPaid         decimal.Decimal       `json:"penalties_paid"`
	MaturityPenaltyPaid   decimal.Decimal       `json:"maturity_penalty_paid"`
	CreditBalance         decimal.Decimal       `json:"credit_balance"`
	MissedCyclesThreshold int                   `json:"missed_cycles_threshold"`
	ApplicationDate       time.Time             `json:"application_date"`
	DisbursementDate      *time.Time            `json:"disbursement_date,omitempty"`
	MaturityDate          string                `json:"maturity_date"`
	RestructuredFrom      string                `json:"restructured_from,omitempty"`
	CustomFields          map[string]any        `json:"custom_fields,omitempty"`
	Installments          []InstallmentResponse `json:"installments"`
	Version               int64                 `json:"version"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// LoanFromDomain converts a domain loan to a response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:                    l.ID,
		BorrowerID:            l.BorrowerID,
		ProductCode:           l.ProductCode,
		Status:                l.Status,
		Terms:                 l.Terms,
		TotalInterest:         l.TotalInterest,
		TotalRepayable:        l.TotalRepayable,
		CumulativePaid:        l.CumulativePaid,
		OutstandingBalance:    l.OutstandingBalance,
		FeesPaid:              l.FeesPaid,
		PenaltiesPaid:         l.PenaltiesPaid,
		MaturityPenaltyPaid:   l.MaturityPenaltyPaid,
		CreditBalance:         l.CreditBalance,
		MissedCyclesThreshold: l.MissedCyclesThreshold,
		ApplicationDate:       l.ApplicationDate,
		DisbursementDate:      l.DisbursementDate,
		MaturityDate:          l.MaturityDate.Format(time.DateOnly),
		RestructuredFrom:      l.RestructuredFrom,
		CustomFields:          l.CustomFields,
		Installments:          InstallmentsFromDomain(l.Installments),
		Version:               l.Version,
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
	}
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// RestructureResponse carries both sides of a restructure.
type RestructureResponse struct {
	Original    *LoanResponse `json:"original"`
	Replacement *LoanResponse `json:"replacement"`
}

// RepaymentResponse represents a repayment event.
type RepaymentResponse struct {
	ID              string                  `json:"id"`
	LoanID          string                  `json:"loan_id"`
	Amount          decimal.Decimal         `json:"amount"`
	ReceivedAt      time.Time               `json:"received_at"`
	CollectedAt     time.Time               `json:"collected_at"`
	Allocation      domain.Allocation       `json:"allocation"`
	MaturityPenalty decimal.Decimal         `json:"maturity_penalty"`
	Lines           []domain.AllocationLine `json:"lines"`
	IdempotencyKey  string                  `json:"idempotency_key"`
	Method          string                  `json:"payment_method,omitempty"`
	Collector       string                  `json:"collector,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// RepaymentFromDomain converts a repayment event.
func RepaymentFromDomain(r *domain.RepaymentEvent) *RepaymentResponse {
	return &RepaymentResponse{
		ID:              r.ID,
		LoanID:          r.LoanID,
		Amount:          r.Amount,
		ReceivedAt:      r.ReceivedAt,
		CollectedAt:     r.CollectedAt,
		Allocation:      r.Allocation,
		MaturityPenalty: r.MaturityPenalty,
		Lines:           r.Lines,
		IdempotencyKey:  r.IdempotencyKey,
		Method:          r.Method,
		Collector:       r.Collector,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}

// RepaymentsFromDomain converts repayment events.
func RepaymentsFromDomain(repayments []*domain.RepaymentEvent) []*RepaymentResponse {
	result := make([]*RepaymentResponse, len(repayments))
	for i, r := range repayments {
		result[i] = RepaymentFromDomain(r)
	}
	return result
}

// ApplyRepaymentResponse is the outcome of an accepted repayment.
type ApplyRepaymentResponse struct {
	Repayment    *RepaymentResponse   `json:"repayment"`
	Loan         *LoanResponse        `json:"loan"`
	StatusChange *domain.StatusChange `json:"status_change,omitempty"`
}

// ApplyRepaymentFromResult converts a use case result.
func ApplyRepaymentFromResult(r *usecase.ApplyRepaymentResult) *ApplyRepaymentResponse {
	return &ApplyRepaymentResponse{
		Repayment:    RepaymentFromDomain(r.Repayment),
		Loan:         LoanFromDomain(r.Loan),
		StatusChange: r.StatusChange,
	}
}

// InstallmentPenalty is the late penalty owed on one installment.
type InstallmentPenalty struct {
	Sequence int             `json:"sequence"`
	Penalty  decimal.Decimal `json:"penalty"`
}

// DueResponse is what a borrower owes as of a date.
type DueResponse struct {
	AsOf                 string               `json:"as_of"`
	Fees                 decimal.Decimal      `json:"fees"`
	Penalties            decimal.Decimal      `json:"penalties"`
	Interest             decimal.Decimal      `json:"interest"`
	Principal            decimal.Decimal      `json:"principal"`
	Total                decimal.Decimal      `json:"total"`
	MaturityPenalty      decimal.Decimal      `json:"maturity_penalty"`
	InstallmentPenalties []InstallmentPenalty `json:"installment_penalties"`
}

// DueFromSummary converts a due summary, listing penalties by sequence.
func DueFromSummary(s *usecase.DueSummary) *DueResponse {
	resp := &DueResponse{
		AsOf:                 s.AsOf.Format(time.DateOnly),
		Fees:                 s.Fees,
		Penalties:            s.Penalties,
		Interest:             s.Interest,
		Principal:            s.Principal,
		Total:                s.Total,
		MaturityPenalty:      s.Snapshot.Maturity,
		InstallmentPenalties: make([]InstallmentPenalty, 0, len(s.Snapshot.Installments)),
	}
	for seq, amount := range s.Snapshot.Installments {
		resp.InstallmentPenalties = append(resp.InstallmentPenalties, InstallmentPenalty{Sequence: seq, Penalty: amount})
	}
	sort.Slice(resp.InstallmentPenalties, func(i, j int) bool {
		return resp.InstallmentPenalties[i].Sequence < resp.InstallmentPenalties[j].Sequence
	})
	return resp
}

// EvaluationResponse reports a delinquency evaluation.
type EvaluationResponse struct {
	LoanID            string            `json:"loan_id"`
	MarkedOverdue     int               `json:"marked_overdue"`
	ConsecutiveMissed int               `json:"consecutive_missed"`
	Penalties         decimal.Decimal   `json:"penalties"`
	Defaulted         bool              `json:"defaulted"`
	Status            domain.LoanStatus `json:"status"`
}

// EvaluationFromResult converts an evaluation result.
func EvaluationFromResult(r *usecase.EvaluationResult) *EvaluationResponse {
	return &EvaluationResponse{
		LoanID:            r.LoanID,
		MarkedOverdue:     r.MarkedOverdue,
		ConsecutiveMissed: r.ConsecutiveMissed,
		Penalties:         r.Penalties,
		Defaulted:         r.Defaulted,
		Status:            r.Status,
	}
}

// ImportRowResponse is the outcome of one import row.
type ImportRowResponse struct {
	Line           int    `json:"line"`
	LoanID         string `json:"loan_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	RepaymentID    string `json:"repayment_id,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// ImportResponse summarises a bulk import.
type ImportResponse struct {
	Applied   int                 `json:"applied"`
	Duplicate int                 `json:"duplicate"`
	Failed    int                 `json:"failed"`
	Rows      []ImportRowResponse `json:"rows"`
}

// ImportFromResults converts row results ordered by line.
func ImportFromResults(results []usecase.ImportResult) *ImportResponse {
	resp := &ImportResponse{Rows: make([]ImportRowResponse, len(results))}
	for i, r := range results {
		switch r.Status {
		case usecase.ImportApplied:
			resp.Applied++
		case usecase.ImportDuplicate:
			resp.Duplicate++
		default:
			resp.Failed++
		}
		resp.Rows[i] = ImportRowResponse(r)
	}
	sort.SliceStable(resp.Rows, func(i, j int) bool { return resp.Rows[i].Line < resp.Rows[j].Line })
	return resp
}

// ReconciliationResponse represents one loan reconciliation.
type ReconciliationResponse struct {
	LoanID              string          `json:"loan_id"`
	CumulativePaid      decimal.Decimal `json:"cumulative_paid"`
	SchedulePaid        decimal.Decimal `json:"schedule_paid"`
	RepaymentsApplied   decimal.Decimal `json:"repayments_applied"`
	RecordedOutstanding decimal.Decimal `json:"recorded_outstanding"`
	ExpectedOutstanding decimal.Decimal `json:"expected_outstanding"`
	Difference          decimal.Decimal `json:"difference"`
	IsReconciled        bool            `json:"is_reconciled"`
	LastChecked         time.Time       `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		LoanID:              r.LoanID,
		CumulativePaid:      r.CumulativePaid,
		SchedulePaid:        r.SchedulePaid,
		RepaymentsApplied:   r.RepaymentsApplied,
		RecordedOutstanding: r.RecordedOutstanding,
		ExpectedOutstanding: r.ExpectedOutstanding,
		Difference:          r.Difference,
		IsReconciled:        r.IsReconciled,
		LastChecked:         r.LastChecked,
	}
}

// ReconciliationReportResponse represents a ledger-wide report.
type ReconciliationReportResponse struct {
	TotalLoans       int                       `json:"total_loans"`
	ReconciledLoans  int                       `json:"reconciled_loans"`
	Discrepancies    []*ReconciliationResponse `json:"discrepancies"`
	LedgerConsistent bool                      `json:"ledger_consistent"`
	CheckedAt        time.Time                 `json:"checked_at"`
}

// ReportFromDomain converts a reconciliation report.
func ReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	resp := &ReconciliationReportResponse{
		TotalLoans:       r.TotalLoans,
		ReconciledLoans:  r.ReconciledLoans,
		Discrepancies:    make([]*ReconciliationResponse, len(r.Discrepancies)),
		LedgerConsistent: r.LedgerConsistent,
		CheckedAt:        r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = ReconciliationFromResult(d)
	}
	return resp
}

// ConsistencyResponse reports the ledger-wide consistency check.
type ConsistencyResponse struct {
	Consistent bool   `json:"consistent"`
	Message    string `json:"message,omitempty"`
}

// AuditLogResponse represents an audit trail entry.
type AuditLogResponse struct {
	ID           string      `json:"id"`
	Actor        string      `json:"actor"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	RequestID    string      `json:"request_id,omitempty"`
	BeforeState  domain.JSON `json:"before_state,omitempty"`
	AfterState   domain.JSON `json:"after_state,omitempty"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuditLogsFromDomain converts audit entries.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:           l.ID,
			Actor:        l.Actor,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		}
	}
	return result
}

// EventResponse represents an outbox event.
type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// EventsFromDomain converts outbox events.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = &EventResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			Payload:     e.Payload,
			CreatedAt:   e.CreatedAt,
			PublishedAt: e.PublishedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
