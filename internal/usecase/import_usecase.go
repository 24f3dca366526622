package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/loanledger/internal/domain"
)

// importNamespace seeds idempotency keys derived from row content.
var importNamespace = uuid.MustParse("6f1c1b9e-3f55-4c4e-9a55-2d0f5b8a7c31")

// ImportRow is one repayment of a bulk import file.
type ImportRow struct {
	Line           int
	LoanID         string
	Amount         decimal.Decimal
	Split          *domain.AllocationSplit
	PaymentDate    time.Time
	CollectionDate time.Time
	Method         string
	Collector      string
	Notes          string
	IdempotencyKey string
}

// Import row outcomes.
const (
	ImportApplied   = "applied"
	ImportDuplicate = "duplicate"
	ImportFailed    = "failed"
)

// ImportResult is the outcome of one row.
type ImportResult struct {
	Line           int
	LoanID         string
	IdempotencyKey string
	RepaymentID    string
	Status         string
	Error          string
}

// ImportKey returns the row's idempotency key, deriving a stable one from
// the row content when the file does not carry it.
func ImportKey(row ImportRow) string {
	if row.IdempotencyKey != "" {
		return row.IdempotencyKey
	}
	content := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		row.LoanID, row.Amount.String(), row.PaymentDate.Format(time.DateOnly), row.Method, row.Collector, row.Line)
	return "import-" + uuid.NewSHA1(importNamespace, []byte(content)).String()
}

// ImportRepayments applies rows as independent repayments. Rows of the same
// loan run in file order; different loans run concurrently. A failed row
// never rolls back other rows.
func (uc *RepaymentUseCase) ImportRepayments(ctx context.Context, rows []ImportRow, concurrency int) []ImportResult {
	if concurrency <= 0 {
		concurrency = DefaultImportConcurrency
	}

	results := make([]ImportResult, len(rows))
	groups := make(map[string][]int)
	var order []string
	for i, row := range rows {
		if _, ok := groups[row.LoanID]; !ok {
			order = append(order, row.LoanID)
		}
		groups[row.LoanID] = append(groups[row.LoanID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, loanID := range order {
		indexes := groups[loanID]
		g.Go(func() error {
			for _, i := range indexes {
				results[i] = uc.importRow(gctx, rows[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	if uc.metrics != nil {
		for _, r := range results {
			uc.metrics.ImportRows.WithLabelValues(r.Status).Inc()
		}
	}

	return results
}

func (uc *RepaymentUseCase) importRow(ctx context.Context, row ImportRow) ImportResult {
	key := ImportKey(row)
	result := ImportResult{Line: row.Line, LoanID: row.LoanID, IdempotencyKey: key}

	if row.LoanID == "" {
		result.Status = ImportFailed
		result.Error = "loan_id is required"
		return result
	}

	applied, err := uc.ApplyRepayment(ctx, ApplyRepaymentInput{
		LoanID:         row.LoanID,
		Amount:         row.Amount,
		ReceivedAt:     row.PaymentDate,
		CollectedAt:    row.CollectionDate,
		IdempotencyKey: key,
		Method:         row.Method,
		Collector:      row.Collector,
		Notes:          row.Notes,
		Split:          row.Split,
	})
	switch {
	case err == nil:
		result.Status = ImportApplied
		result.RepaymentID = applied.Repayment.ID
	case errors.Is(err, domain.ErrDuplicateRepayment):
		result.Status = ImportDuplicate
		result.Error = err.Error()
	default:
		result.Status = ImportFailed
		result.Error = err.Error()
	}

	return result
}
