package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// RepaymentUseCase applies repayments to loans. Repayments on one loan are
// serialized by the locker and by a row lock on the loan; different loans
// proceed in parallel.
type RepaymentUseCase struct {
	txManager     TransactionManager
	loanRepo      LoanRepository
	repaymentRepo RepaymentRepository
	locker        Locker
	retrier       Retrier
	cache         Cache
	journal       journal
	metrics       *metrics.Metrics
}

// NewRepaymentUseCase creates a new RepaymentUseCase. locker, retrier and
// cache are optional.
func NewRepaymentUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	repaymentRepo RepaymentRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	locker Locker,
	retrier Retrier,
	cache Cache,
	metrics *metrics.Metrics,
) *RepaymentUseCase {
	return &RepaymentUseCase{
		txManager:     txManager,
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		locker:        locker,
		retrier:       retrier,
		cache:         cache,
		journal:       journal{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
		metrics:       metrics,
	}
}

// ApplyRepaymentInput represents a tendered repayment.
type ApplyRepaymentInput struct {
	LoanID         string
	Amount         decimal.Decimal
	ReceivedAt     time.Time
	CollectedAt    time.Time
	IdempotencyKey string
	Method         string
	Collector      string
	Notes          string
	Split          *domain.AllocationSplit
}

// ApplyRepaymentResult is the outcome of an accepted repayment.
type ApplyRepaymentResult struct {
	Repayment    *domain.RepaymentEvent
	Loan         *domain.Loan
	StatusChange *domain.StatusChange
}

// ApplyRepayment allocates a repayment exactly once per idempotency key.
// A second submission with the same key fails with ErrDuplicateRepayment and
// leaves the loan unchanged.
func (uc *RepaymentUseCase) ApplyRepayment(ctx context.Context, input ApplyRepaymentInput) (*ApplyRepaymentResult, error) {
	start := time.Now()

	result, err := uc.apply(ctx, input)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RepaymentErrors.WithLabelValues(errorReason(err)).Inc()
		}
		return nil, err
	}

	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, loanCacheKey(input.LoanID))
	}

	if uc.metrics != nil {
		uc.metrics.RepaymentsApplied.Inc()
		uc.metrics.RepaymentDuration.Observe(time.Since(start).Seconds())
		uc.metrics.RepaymentAmount.Observe(input.Amount.InexactFloat64())
		if result.Repayment.Allocation.Credit.IsPositive() {
			uc.metrics.CreditOverflow.Inc()
		}
	}

	return result, nil
}

func (uc *RepaymentUseCase) apply(ctx context.Context, input ApplyRepaymentInput) (*ApplyRepaymentResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateIdempotencyKey(input.IdempotencyKey); err != nil {
		return nil, err
	}
	if input.ReceivedAt.IsZero() {
		input.ReceivedAt = time.Now().UTC()
	}
	if input.CollectedAt.IsZero() {
		input.CollectedAt = input.ReceivedAt
	}

	if uc.locker != nil {
		unlock := uc.locker.Lock(input.LoanID)
		defer unlock()
	}

	var result *ApplyRepaymentResult
	op := func() error {
		var err error
		result, err = uc.applyOnce(ctx, input)
		return err
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *RepaymentUseCase) applyOnce(ctx context.Context, input ApplyRepaymentInput) (*ApplyRepaymentResult, error) {
	var result *ApplyRepaymentResult
	err := inTx(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		var err error
		result, err = uc.applyTx(txCtx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyTx allocates the repayment against the locked loan and records it
// with its events inside tx.
func (uc *RepaymentUseCase) applyTx(txCtx context.Context, tx Transaction, input ApplyRepaymentInput) (*ApplyRepaymentResult, error) {
	loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, input.LoanID)
	if err != nil {
		return nil, err
	}

	_, err = uc.repaymentRepo.GetByIdempotencyKey(txCtx, tx, loan.ID, input.IdempotencyKey)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateRepayment
	case !errors.Is(err, domain.ErrRepaymentNotFound):
		return nil, err
	}

	snapshot, err := domain.ComputePenalties(loan, input.ReceivedAt)
	if err != nil {
		return nil, err
	}

	next, repayment, err := domain.Allocate(loan, snapshot, domain.RepaymentRequest{
		Amount:         input.Amount,
		ReceivedAt:     input.ReceivedAt,
		CollectedAt:    input.CollectedAt,
		IdempotencyKey: input.IdempotencyKey,
		Method:         input.Method,
		Collector:      input.Collector,
		Notes:          input.Notes,
		Split:          input.Split,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	repayment.ID = uc.journal.idGen.Generate()
	repayment.CreatedAt = now
	next.UpdatedAt = now

	var change *domain.StatusChange
	if next.OutstandingBalance.IsZero() {
		c, err := next.Transition(domain.LoanClosed, domain.TransitionContext{At: now, Reason: "repaid in full"})
		if err != nil {
			return nil, err
		}
		change = &c
	}

	if err := uc.repaymentRepo.Create(txCtx, tx, repayment); err != nil {
		return nil, err
	}
	if err := uc.loanRepo.Update(txCtx, tx, next); err != nil {
		return nil, err
	}

	if err := uc.journal.emit(txCtx, tx, next.ID, domain.EventTypePaymentApplied, domain.NewPaymentAppliedEvent(next, repayment), now); err != nil {
		return nil, err
	}
	if change != nil {
		if err := uc.journal.statusChanged(txCtx, tx, *change, now); err != nil {
			return nil, err
		}
	}
	if err := uc.journal.audit(txCtx, tx, domain.AuditActionRepaymentApply, domain.ResourceTypeRepayment, repayment.ID, loanState(loan), loanState(next)); err != nil {
		return nil, err
	}

	return &ApplyRepaymentResult{Repayment: repayment, Loan: next, StatusChange: change}, nil
}

// ListRepayments lists repayment events of a loan, oldest first.
func (uc *RepaymentUseCase) ListRepayments(ctx context.Context, loanID string, limit, offset int) ([]*domain.RepaymentEvent, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.repaymentRepo.ListByLoan(ctx, loanID, limit, offset)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooLarge):
		return "invalid_amount"
	case errors.Is(err, domain.ErrDuplicateRepayment):
		return "duplicate"
	case errors.Is(err, domain.ErrLoanNotPayable):
		return "not_payable"
	case errors.Is(err, domain.ErrLoanNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAllocation):
		return "invalid_allocation"
	case errors.Is(err, domain.ErrInvalidIdempotencyKey):
		return "invalid_key"
	default:
		return "internal"
	}
}
