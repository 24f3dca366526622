package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const installmentColumns = `id, loan_id, sequence, due_date, principal_due, interest_due, total_due, fee_due, principal_paid, interest_paid, fee_paid, penalty_paid, amount_paid, remaining, status`

const upsertInstallment = `-- name: UpsertInstallment :exec
INSERT INTO installments (` + installmentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE
SET due_date = EXCLUDED.due_date,
    principal_due = EXCLUDED.principal_due,
    interest_due = EXCLUDED.interest_due,
    total_due = EXCLUDED.total_due,
    fee_due = EXCLUDED.fee_due,
    principal_paid = EXCLUDED.principal_paid,
    interest_paid = EXCLUDED.interest_paid,
    fee_paid = EXCLUDED.fee_paid,
    penalty_paid = EXCLUDED.penalty_paid,
    amount_paid = EXCLUDED.amount_paid,
    remaining = EXCLUDED.remaining,
    status = EXCLUDED.status
`

type UpsertInstallmentParams struct {
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

func (q *Queries) UpsertInstallment(ctx context.Context, arg UpsertInstallmentParams) error {
	_, err := q.db.Exec(ctx, upsertInstallment,
		arg.ID,
		arg.LoanID,
		arg.Sequence,
		arg.DueDate,
		arg.PrincipalDue,
		arg.InterestDue,
		arg.TotalDue,
		arg.FeeDue,
		arg.PrincipalPaid,
		arg.InterestPaid,
		arg.FeePaid,
		arg.PenaltyPaid,
		arg.AmountPaid,
		arg.Remaining,
		arg.Status,
	)
	return err
}

const deleteStaleInstallments = `-- name: DeleteStaleInstallments :exec
DELETE FROM installments WHERE loan_id = $1 AND NOT (id = ANY($2::text[]))
`

type DeleteStaleInstallmentsParams struct {
	LoanID string   `json:"loan_id"`
	Keep   []string `json:"keep"`
}

func (q *Queries) DeleteStaleInstallments(ctx context.Context, arg DeleteStaleInstallmentsParams) error {
	_, err := q.db.Exec(ctx, deleteStaleInstallments, arg.LoanID, arg.Keep)
	return err
}

const listInstallmentsByLoan = `-- name: ListInstallmentsByLoan :many
SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY sequence
`

func (q *Queries) ListInstallmentsByLoan(ctx context.Context, loanID string) ([]Installment, error) {
	rows, err := q.db.Query(ctx, listInstallmentsByLoan, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Installment
	for rows.Next() {
		var i Installment
		if err := rows.Scan(
			&i.ID,
			&i.LoanID,
			&i.Sequence,
			&i.DueDate,
			&i.PrincipalDue,
			&i.InterestDue,
			&i.TotalDue,
			&i.FeeDue,
			&i.PrincipalPaid,
			&i.InterestPaid,
			&i.FeePaid,
			&i.PenaltyPaid,
			&i.AmountPaid,
			&i.Remaining,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
