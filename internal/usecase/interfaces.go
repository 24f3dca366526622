package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// LoanFilter narrows loan listings.
type LoanFilter struct {
	Status     domain.LoanStatus
	BorrowerID string
	Limit      int
	Offset     int
}

// LoanRepository defines data access for loans and their schedules.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Loan, error)
	Update(ctx context.Context, tx Transaction, loan *domain.Loan) error
	List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error)
}

// RepaymentRepository defines data access for repayment events.
type RepaymentRepository interface {
	// Create fails with domain.ErrDuplicateRepayment when the loan already
	// has a repayment with the same idempotency key.
	Create(ctx context.Context, tx Transaction, repayment *domain.RepaymentEvent) error
	GetByIdempotencyKey(ctx context.Context, tx Transaction, loanID, key string) (*domain.RepaymentEvent, error)
	ListByLoan(ctx context.Context, loanID string, limit, offset int) ([]*domain.RepaymentEvent, error)
	SumAppliedByLoan(ctx context.Context, loanID string) (decimal.Decimal, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	// CheckConsistency returns the sum of loan cumulative paid amounts and the
	// sum of principal and interest over all repayment events.
	CheckConsistency(ctx context.Context) (cumulativePaid, repaymentsApplied decimal.Decimal, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// ProductCatalog resolves product codes to default loan terms.
type ProductCatalog interface {
	Product(code string) (domain.LoanTerms, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Locker serializes work per key inside the process. Lock blocks until the
// key is free and returns the unlock function.
type Locker interface {
	Lock(key string) func()
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
