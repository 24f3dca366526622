package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const loanColumns = `id, borrower_id, product_code, status, currency, principal, terms, total_interest, total_repayable, cumulative_paid, outstanding_balance, fees_paid, penalties_paid, maturity_penalty_paid, credit_balance, missed_cycles_threshold, application_date, disbursement_date, maturity_date, restructured_from, custom_fields, version, created_at, updated_at`

const createLoan = `-- name: CreateLoan :exec
INSERT INTO loans (` + loanColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
`

type CreateLoanParams struct {
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

func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) error {
	_, err := q.db.Exec(ctx, createLoan,
		arg.ID,
		arg.BorrowerID,
		arg.ProductCode,
		arg.Status,
		arg.Currency,
		arg.Principal,
		arg.Terms,
		arg.TotalInterest,
		arg.TotalRepayable,
		arg.CumulativePaid,
		arg.OutstandingBalance,
		arg.FeesPaid,
		arg.PenaltiesPaid,
		arg.MaturityPenaltyPaid,
		arg.CreditBalance,
		arg.MissedCyclesThreshold,
		arg.ApplicationDate,
		arg.DisbursementDate,
		arg.MaturityDate,
		arg.RestructuredFrom,
		arg.CustomFields,
		arg.Version,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getLoanByID = `-- name: GetLoanByID :one
SELECT ` + loanColumns + ` FROM loans WHERE id = $1
`

func (q *Queries) GetLoanByID(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByID, id)
	return scanLoan(row)
}

const getLoanByIDForUpdate = `-- name: GetLoanByIDForUpdate :one
SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetLoanByIDForUpdate(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByIDForUpdate, id)
	return scanLoan(row)
}

const listLoans = `-- name: ListLoans :many
SELECT ` + loanColumns + ` FROM loans
WHERE ($1::text = '' OR status = $1)
  AND ($2::text = '' OR borrower_id = $2)
ORDER BY created_at, id
LIMIT $3 OFFSET $4
`

type ListLoansParams struct {
	Status     string `json:"status"`
	BorrowerID string `json:"borrower_id"`
	Limit      int32  `json:"limit"`
	Offset     int32  `json:"offset"`
}

func (q *Queries) ListLoans(ctx context.Context, arg ListLoansParams) ([]Loan, error) {
	rows, err := q.db.Query(ctx, listLoans, arg.Status, arg.BorrowerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Loan
	for rows.Next() {
		i, err := scanLoan(rows)
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

const updateLoan = `-- name: UpdateLoan :execrows
UPDATE loans
SET status = $2,
    principal = $3,
    terms = $4,
    total_interest = $5,
    total_repayable = $6,
    cumulative_paid = $7,
    outstanding_balance = $8,
    fees_paid = $9,
    penalties_paid = $10,
    maturity_penalty_paid = $11,
    credit_balance = $12,
    disbursement_date = $13,
    maturity_date = $14,
    custom_fields = $15,
    version = version + 1,
    updated_at = $16
WHERE id = $1 AND version = $17
`

type UpdateLoanParams struct {
	ID                  string             `json:"id"`
	Status              string             `json:"status"`
	Principal           pgtype.Numeric     `json:"principal"`
	Terms               []byte             `json:"terms"`
	TotalInterest       pgtype.Numeric     `json:"total_interest"`
	TotalRepayable      pgtype.Numeric     `json:"total_repayable"`
	CumulativePaid      pgtype.Numeric     `json:"cumulative_paid"`
	OutstandingBalance  pgtype.Numeric     `json:"outstanding_balance"`
	FeesPaid            pgtype.Numeric     `json:"fees_paid"`
	PenaltiesPaid       pgtype.Numeric     `json:"penalties_paid"`
	MaturityPenaltyPaid pgtype.Numeric     `json:"maturity_penalty_paid"`
	CreditBalance       pgtype.Numeric     `json:"credit_balance"`
	DisbursementDate    pgtype.Date        `json:"disbursement_date"`
	MaturityDate        pgtype.Date        `json:"maturity_date"`
	CustomFields        []byte             `json:"custom_fields"`
	UpdatedAt           pgtype.Timestamptz `json:"updated_at"`
	Version             int64              `json:"version"`
}

func (q *Queries) UpdateLoan(ctx context.Context, arg UpdateLoanParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLoan,
		arg.ID,
		arg.Status,
		arg.Principal,
		arg.Terms,
		arg.TotalInterest,
		arg.TotalRepayable,
		arg.CumulativePaid,
		arg.OutstandingBalance,
		arg.FeesPaid,
		arg.PenaltiesPaid,
		arg.MaturityPenaltyPaid,
		arg.CreditBalance,
		arg.DisbursementDate,
		arg.MaturityDate,
		arg.CustomFields,
		arg.UpdatedAt,
		arg.Version,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (Loan, error) {
	var i Loan
	err := row.Scan(
		&i.ID,
		&i.BorrowerID,
		&i.ProductCode,
		&i.Status,
		&i.Currency,
		&i.Principal,
		&i.Terms,
		&i.TotalInterest,
		&i.TotalRepayable,
		&i.CumulativePaid,
		&i.OutstandingBalance,
		&i.FeesPaid,
		&i.PenaltiesPaid,
		&i.MaturityPenaltyPaid,
		&i.CreditBalance,
		&i.MissedCyclesThreshold,
		&i.ApplicationDate,
		&i.DisbursementDate,
		&i.MaturityDate,
		&i.RestructuredFrom,
		&i.CustomFields,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
