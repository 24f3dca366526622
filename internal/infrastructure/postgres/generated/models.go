package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AuditLog struct {
	ID           string             `json:"id"`
	Actor        string             `json:"actor"`
	Action       string             `json:"action"`
	ResourceType string             `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
	IpAddress    string             `json:"ip_address"`
	UserAgent    string             `json:"user_agent"`
	RequestID    string             `json:"request_id"`
	BeforeState  []byte             `json:"before_state"`
	AfterState   []byte             `json:"after_state"`
	Status       string             `json:"status"`
	ErrorMessage string             `json:"error_message"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Installment struct {
	ID            string         `json:"id"`
	LoanID        string         `json:"loan_id"`
	Sequence      int32          `json:"sequence"`
	DueDate       pgtype.Date    `json:"due_date"`
	PrincipalDue  pgtype.Numeric `json:"principal_due"`
	InterestDue   pgtype.Numeric `json:"interest_due"`
	TotalDue      pgtype.Numeric `json:"total_due"`
	FeeDue        pgtype.Numeric `json:"fee_due"`
	PrincipalPaid pgtype.Numeric `json:"principal_paid"`
	InterestPaid  pgtype.Numeric `json:"interest_paid"`
	FeePaid       pgtype.Numeric `json:"fee_paid"`
	PenaltyPaid   pgtype.Numeric `json:"penalty_paid"`
	AmountPaid    pgtype.Numeric `json:"amount_paid"`
	Remaining     pgtype.Numeric `json:"remaining"`
	Status        string         `json:"status"`
}

type Loan struct {
	ID                    string             `json:"id"`
	BorrowerID            string             `json:"borrower_id"`
	ProductCode           string             `json:"product_code"`
	Status                string             `json:"status"`
	Currency              string             `json:"currency"`
	Principal             pgtype.Numeric     `json:"principal"`
	Terms                 []byte             `json:"terms"`
	TotalInterest         pgtype.Numeric     `json:"total_interest"`
	TotalRepayable        pgtype.Numeric     `json:"total_repayable"`
	CumulativePaid        pgtype.Numeric     `json:"cumulative_paid"`
	OutstandingBalance    pgtype.Numeric     `json:"outstanding_balance"`
	FeesPaid              pgtype.Numeric     `json:"fees_paid"`
	PenaltiesPaid         pgtype.Numeric     `json:"penalties_paid"`
	MaturityPenaltyPaid   pgtype.Numeric     `json:"maturity_penalty_paid"`
	CreditBalance         pgtype.Numeric     `json:"credit_balance"`
	MissedCyclesThreshold int32              `json:"missed_cycles_threshold"`
	ApplicationDate       pgtype.Timestamptz `json:"application_date"`
	DisbursementDate      pgtype.Date        `json:"disbursement_date"`
	MaturityDate          pgtype.Date        `json:"maturity_date"`
	RestructuredFrom      pgtype.Text        `json:"restructured_from"`
	CustomFields          []byte             `json:"custom_fields"`
	Version               int64              `json:"version"`
	CreatedAt             pgtype.Timestamptz `json:"created_at"`
	UpdatedAt             pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}

type Repayment struct {
	ID              string             `json:"id"`
	LoanID          string             `json:"loan_id"`
	Amount          pgtype.Numeric     `json:"amount"`
	ReceivedAt      pgtype.Timestamptz `json:"received_at"`
	CollectedAt     pgtype.Timestamptz `json:"collected_at"`
	Fees            pgtype.Numeric     `json:"fees"`
	Penalty         pgtype.Numeric     `json:"penalty"`
	Interest        pgtype.Numeric     `json:"interest"`
	Principal       pgtype.Numeric     `json:"principal"`
	Credit          pgtype.Numeric     `json:"credit"`
	MaturityPenalty pgtype.Numeric     `json:"maturity_penalty"`
	Lines           []byte             `json:"lines"`
	IdempotencyKey  string             `json:"idempotency_key"`
	Method          string             `json:"method"`
	Collector       string             `json:"collector"`
	Notes           string             `json:"notes"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
}
