package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// RepaymentRepository implements usecase.RepaymentRepository.
type RepaymentRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewRepaymentRepository creates a new RepaymentRepository.
func NewRepaymentRepository(db generated.DBTX) *RepaymentRepository {
	return &RepaymentRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create records a repayment event. A second event with the same
// (loan, idempotency key) fails with domain.ErrDuplicateRepayment.
func (r *RepaymentRepository) Create(ctx context.Context, tx usecase.Transaction, repayment *domain.RepaymentEvent) error {
	q := queriesFor(r.db, tx)

	lines, err := json.Marshal(repayment.Lines)
	if err != nil {
		return fmt.Errorf("marshal allocation lines: %w", err)
	}

	err = q.CreateRepayment(ctx, generated.CreateRepaymentParams{
		ID:              repayment.ID,
		LoanID:          repayment.LoanID,
		Amount:          decimalToNumeric(repayment.Amount),
		ReceivedAt:      timeToPgTimestamptz(repayment.ReceivedAt),
		CollectedAt:     timeToPgTimestamptz(repayment.CollectedAt),
		Fees:            decimalToNumeric(repayment.Allocation.Fees),
		Penalty:         decimalToNumeric(repayment.Allocation.Penalty),
		Interest:        decimalToNumeric(repayment.Allocation.Interest),
		Principal:       decimalToNumeric(repayment.Allocation.Principal),
		Credit:          decimalToNumeric(repayment.Allocation.Credit),
		MaturityPenalty: decimalToNumeric(repayment.MaturityPenalty),
		Lines:           lines,
		IdempotencyKey:  repayment.IdempotencyKey,
		Method:          repayment.Method,
		Collector:       repayment.Collector,
		Notes:           repayment.Notes,
		CreatedAt:       timeToPgTimestamptz(repayment.CreatedAt),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrDuplicateRepayment
		}

		return err
	}

	return nil
}

// GetByIdempotencyKey finds the repayment recorded for a key.
func (r *RepaymentRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, loanID, key string) (*domain.RepaymentEvent, error) {
	q := queriesFor(r.db, tx)

	row, err := q.GetRepaymentByIdempotencyKey(ctx, generated.GetRepaymentByIdempotencyKeyParams{
		LoanID:         loanID,
		IdempotencyKey: key,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRepaymentNotFound
		}

		return nil, err
	}

	return rowToRepayment(row)
}

// ListByLoan returns repayments of a loan ordered by receipt.
func (r *RepaymentRepository) ListByLoan(ctx context.Context, loanID string, limit, offset int) ([]*domain.RepaymentEvent, error) {
	rows, err := r.queries.ListRepaymentsByLoan(ctx, generated.ListRepaymentsByLoanParams{
		LoanID: loanID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	repayments := make([]*domain.RepaymentEvent, 0, len(rows))
	for _, row := range rows {
		repayment, err := rowToRepayment(row)
		if err != nil {
			return nil, err
		}
		repayments = append(repayments, repayment)
	}

	return repayments, nil
}

// SumAppliedByLoan totals principal and interest over the loan's repayments.
func (r *RepaymentRepository) SumAppliedByLoan(ctx context.Context, loanID string) (decimal.Decimal, error) {
	sum, err := r.queries.SumAppliedByLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func rowToRepayment(row generated.Repayment) (*domain.RepaymentEvent, error) {
	var lines []domain.AllocationLine
	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &lines); err != nil {
			return nil, fmt.Errorf("unmarshal allocation lines of repayment %s: %w", row.ID, err)
		}
	}

	return &domain.RepaymentEvent{
		ID:          row.ID,
		LoanID:      row.LoanID,
		Amount:      numericToDecimal(row.Amount),
		ReceivedAt:  row.ReceivedAt.Time,
		CollectedAt: row.CollectedAt.Time,
		Allocation: domain.Allocation{
			Fees:      numericToDecimal(row.Fees),
			Penalty:   numericToDecimal(row.Penalty),
			Interest:  numericToDecimal(row.Interest),
			Principal: numericToDecimal(row.Principal),
			Credit:    numericToDecimal(row.Credit),
		},
		MaturityPenalty: numericToDecimal(row.MaturityPenalty),
		Lines:           lines,
		IdempotencyKey:  row.IdempotencyKey,
		Method:          row.Method,
		Collector:       row.Collector,
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt.Time,
	}, nil
}
