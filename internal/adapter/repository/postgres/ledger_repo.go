package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db generated.DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency returns the total cumulative paid over all loans and the
// total principal and interest over all repayments.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (cumulativePaid, repaymentsApplied decimal.Decimal, err error) {
	q := generated.New(r.db)
	result, err := q.CheckLedgerConsistency(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	cumulativePaid, err = toDecimal(result.TotalCumulativePaid)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	repaymentsApplied, err = toDecimal(result.TotalApplied)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return cumulativePaid, repaymentsApplied, nil
}

func toDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(n.Int.String())
	if err != nil {
		return decimal.Zero, err
	}

	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d, nil
}
