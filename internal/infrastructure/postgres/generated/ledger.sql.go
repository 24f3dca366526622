package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const checkLedgerConsistency = `-- name: CheckLedgerConsistency :one
SELECT
    (SELECT COALESCE(SUM(cumulative_paid), 0) FROM loans)::numeric AS total_cumulative_paid,
    (SELECT COALESCE(SUM(interest + principal), 0) FROM repayments)::numeric AS total_applied
`

type CheckLedgerConsistencyRow struct {
	TotalCumulativePaid pgtype.Numeric `json:"total_cumulative_paid"`
	TotalApplied        pgtype.Numeric `json:"total_applied"`
}

func (q *Queries) CheckLedgerConsistency(ctx context.Context) (CheckLedgerConsistencyRow, error) {
	row := q.db.QueryRow(ctx, checkLedgerConsistency)
	var i CheckLedgerConsistencyRow
	err := row.Scan(&i.TotalCumulativePaid, &i.TotalApplied)
	return i, err
}
