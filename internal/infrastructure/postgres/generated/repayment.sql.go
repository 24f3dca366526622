package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const repaymentColumns = `id, loan_id, amount, received_at, collected_at, fees, penalty, interest, principal, credit, maturity_penalty, lines, idempotency_key, method, collector, notes, created_at`

const createRepayment = `-- name: CreateRepayment :exec
INSERT INTO repayments (` + repaymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`

type CreateRepaymentParams struct {
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

func (q *Queries) CreateRepayment(ctx context.Context, arg CreateRepaymentParams) error {
	_, err := q.db.Exec(ctx, createRepayment,
		arg.ID,
		arg.LoanID,
		arg.Amount,
		arg.ReceivedAt,
		arg.CollectedAt,
		arg.Fees,
		arg.Penalty,
		arg.Interest,
		arg.Principal,
		arg.Credit,
		arg.MaturityPenalty,
		arg.Lines,
		arg.IdempotencyKey,
		arg.Method,
		arg.Collector,
		arg.Notes,
		arg.CreatedAt,
	)
	return err
}

const getRepaymentByIdempotencyKey = `-- name: GetRepaymentByIdempotencyKey :one
SELECT ` + repaymentColumns + ` FROM repayments WHERE loan_id = $1 AND idempotency_key = $2
`

type GetRepaymentByIdempotencyKeyParams struct {
	LoanID         string `json:"loan_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (q *Queries) GetRepaymentByIdempotencyKey(ctx context.Context, arg GetRepaymentByIdempotencyKeyParams) (Repayment, error) {
	row := q.db.QueryRow(ctx, getRepaymentByIdempotencyKey, arg.LoanID, arg.IdempotencyKey)
	return scanRepayment(row)
}

const listRepaymentsByLoan = `-- name: ListRepaymentsByLoan :many
SELECT ` + repaymentColumns + ` FROM repayments
WHERE loan_id = $1
ORDER BY received_at, created_at
LIMIT $2 OFFSET $3
`

type ListRepaymentsByLoanParams struct {
	LoanID string `json:"loan_id"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) ListRepaymentsByLoan(ctx context.Context, arg ListRepaymentsByLoanParams) ([]Repayment, error) {
	rows, err := q.db.Query(ctx, listRepaymentsByLoan, arg.LoanID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Repayment
	for rows.Next() {
		i, err := scanRepayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumAppliedByLoan = `-- name: SumAppliedByLoan :one
SELECT COALESCE(SUM(interest + principal), 0)::numeric AS applied FROM repayments WHERE loan_id = $1
`

func (q *Queries) SumAppliedByLoan(ctx context.Context, loanID string) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumAppliedByLoan, loanID)
	var applied pgtype.Numeric
	err := row.Scan(&applied)
	return applied, err
}

func scanRepayment(row rowScanner) (Repayment, error) {
	var i Repayment
	err := row.Scan(
		&i.ID,
		&i.LoanID,
		&i.Amount,
		&i.ReceivedAt,
		&i.CollectedAt,
		&i.Fees,
		&i.Penalty,
		&i.Interest,
		&i.Principal,
		&i.Credit,
		&i.MaturityPenalty,
		&i.Lines,
		&i.IdempotencyKey,
		&i.Method,
		&i.Collector,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}
