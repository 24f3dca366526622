package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultLoanCacheTTL is how long a loan read stays cached
	DefaultLoanCacheTTL = 5 * time.Minute

	// DefaultImportConcurrency bounds how many loans a bulk import works on at once
	DefaultImportConcurrency = 8

	// sweepPageSize is the page size used when scanning open loans
	sweepPageSize = 200
)
