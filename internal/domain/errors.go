package domain

import "errors"

var (
	// Configuration errors
	ErrInvalidTerm  = errors.New("term must be at least one cycle")
	ErrInvalidTerms = errors.New("invalid loan terms")

	// Input errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidAllocation = errors.New("invalid allocation split")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrRepaymentNotFound = errors.New("repayment not found")

	// Conflict errors
	ErrDuplicateRepayment = errors.New("repayment already applied for idempotency key")
	ErrInvalidTransition  = errors.New("invalid loan status transition")

	// State errors
	ErrLoanNotPayable = errors.New("loan does not accept repayments in its current status")
)
