package domain

import (
	"fmt"
	"time"
)

// TransitionContext carries the facts a transition guard needs.
type TransitionContext struct {
	At     time.Time
	Reason string
}

// StatusChange records an applied transition.
type StatusChange struct {
	LoanID string     `json:"loan_id"`
	From   LoanStatus `json:"from"`
	To     LoanStatus `json:"to"`
	At     time.Time  `json:"at"`
	Reason string     `json:"reason,omitempty"`
}

type transitionGuard func(l *Loan, tc TransitionContext) error

var transitions = map[LoanStatus]map[LoanStatus]transitionGuard{
	LoanProcessing: {
		LoanOpen:       requireSchedule,
		LoanDenied:     nil,
		LoanNotTakenUp: nil,
	},
	LoanOpen: {
		LoanDefault:      requireMissedCycles,
		LoanClosed:       requireFullyPaid,
		LoanRestructured: nil,
	},
	LoanDefault: {
		LoanClosed: requireFullyPaid,
	},
}

// CanTransition reports whether to is reachable from the current status
// without checking guards.
func (l *Loan) CanTransition(to LoanStatus) bool {
	_, ok := transitions[l.Status][to]
	return ok
}

// Transition moves the loan to a new status. Illegal transitions and failed
// guards return ErrInvalidTransition and leave the loan unchanged.
func (l *Loan) Transition(to LoanStatus, tc TransitionContext) (StatusChange, error) {
	guard, ok := transitions[l.Status][to]
	if !ok {
		return StatusChange{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}
	if guard != nil {
		if err := guard(l, tc); err != nil {
			return StatusChange{}, err
		}
	}

	change := StatusChange{LoanID: l.ID, From: l.Status, To: to, At: tc.At, Reason: tc.Reason}
	l.Status = to
	if !tc.At.IsZero() {
		l.UpdatedAt = tc.At
	}
	if to == LoanOpen {
		at := DateOnly(tc.At)
		l.DisbursementDate = &at
	}

	return change, nil
}

// ShouldDefault reports whether the consecutive missed cycles as of asOf are
// strictly greater than the loan's threshold.
func (l *Loan) ShouldDefault(asOf time.Time) bool {
	return l.Status == LoanOpen && l.ConsecutiveMissedCycles(asOf) > l.MissedCyclesThreshold
}

func requireSchedule(l *Loan, _ TransitionContext) error {
	if len(l.Installments) == 0 {
		return fmt.Errorf("%w: loan %s has no schedule", ErrInvalidTransition, l.ID)
	}
	return nil
}

func requireMissedCycles(l *Loan, tc TransitionContext) error {
	missed := l.ConsecutiveMissedCycles(tc.At)
	if missed <= l.MissedCyclesThreshold {
		return fmt.Errorf("%w: %d consecutive missed cycles does not exceed threshold %d", ErrInvalidTransition, missed, l.MissedCyclesThreshold)
	}
	return nil
}

func requireFullyPaid(l *Loan, _ TransitionContext) error {
	if l.OutstandingBalance.IsPositive() {
		return fmt.Errorf("%w: outstanding balance %s", ErrInvalidTransition, l.OutstandingBalance)
	}
	return nil
}
