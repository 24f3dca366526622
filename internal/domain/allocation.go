package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// budget is what is left to allocate for a category. In automatic mode all
// categories share one budget.
type budget struct {
	left *decimal.Decimal
}

func (b budget) take(due decimal.Decimal) decimal.Decimal {
	if !due.IsPositive() || !b.left.IsPositive() {
		return decimal.Zero
	}
	pay := minDecimal(*b.left, due)
	*b.left = b.left.Sub(pay)
	return pay
}

// Allocate applies a repayment to a copy of the loan in the order fees,
// penalties, interest, principal, oldest installment first. Overpayment is
// kept as credit. The input loan is never modified; the updated copy is
// returned only when the whole allocation succeeds.
func Allocate(loan *Loan, snapshot PenaltySnapshot, req RepaymentRequest) (*Loan, *RepaymentEvent, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}

	money, err := NewMoney(loan.Terms.Scale)
	if err != nil {
		return nil, nil, err
	}
	if !money.Round(req.Amount).Equal(req.Amount) {
		return nil, nil, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, req.Amount, money.Scale)
	}

	if !loan.IsPayable() {
		return nil, nil, fmt.Errorf("%w: loan %s is %s", ErrLoanNotPayable, loan.ID, loan.Status)
	}

	var fees, penalty, interest, principal budget
	var pool decimal.Decimal
	if req.Split != nil {
		if err := validateSplit(*req.Split, req.Amount); err != nil {
			return nil, nil, err
		}
		f, p, i, pr := req.Split.Fees, req.Split.Penalty, req.Split.Interest, req.Split.Principal
		fees, penalty, interest, principal = budget{&f}, budget{&p}, budget{&i}, budget{&pr}
	} else {
		pool = req.Amount
		shared := budget{&pool}
		fees, penalty, interest, principal = shared, shared, shared, shared
	}

	next := loan.Clone()
	lines := make([]AllocationLine, len(next.Installments))
	for i := range next.Installments {
		lines[i].Sequence = next.Installments[i].Sequence
	}

	var alloc Allocation
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = snapshot.AsOf
	}
	billedUpTo := billedSequence(next, receivedAt)

	// Fees of billed installments.
	for i := range next.Installments {
		inst := &next.Installments[i]
		if inst.Sequence > billedUpTo {
			break
		}
		pay := fees.take(inst.FeeRemaining())
		inst.FeePaid = inst.FeePaid.Add(pay)
		lines[i].Fees = lines[i].Fees.Add(pay)
		alloc.Fees = alloc.Fees.Add(pay)
	}

	// Late penalties, then the maturity penalty.
	for i := range next.Installments {
		inst := &next.Installments[i]
		pay := penalty.take(snapshot.ForInstallment(inst.Sequence))
		inst.PenaltyPaid = inst.PenaltyPaid.Add(pay)
		lines[i].Penalty = lines[i].Penalty.Add(pay)
		alloc.Penalty = alloc.Penalty.Add(pay)
	}
	maturity := penalty.take(snapshot.Maturity)
	next.MaturityPenaltyPaid = next.MaturityPenaltyPaid.Add(maturity)
	alloc.Penalty = alloc.Penalty.Add(maturity)

	// Interest then principal per installment. Fees of installments not yet
	// billed are collected when a prepayment reaches them.
	for i := range next.Installments {
		inst := &next.Installments[i]

		if inst.Sequence > billedUpTo {
			pay := fees.take(inst.FeeRemaining())
			inst.FeePaid = inst.FeePaid.Add(pay)
			lines[i].Fees = lines[i].Fees.Add(pay)
			alloc.Fees = alloc.Fees.Add(pay)
		}

		if inst.IsSettled() {
			continue
		}

		if pay := interest.take(inst.InterestRemaining()); pay.IsPositive() {
			inst.applyInterest(pay)
			lines[i].Interest = pay
			alloc.Interest = alloc.Interest.Add(pay)
		}
		if pay := principal.take(inst.PrincipalRemaining()); pay.IsPositive() {
			inst.applyPrincipal(pay)
			lines[i].Principal = pay
			alloc.Principal = alloc.Principal.Add(pay)
		}
	}

	if req.Split != nil {
		for _, c := range []struct {
			name string
			b    budget
		}{{"fees", fees}, {"penalty", penalty}, {"interest", interest}, {"principal", principal}} {
			if c.b.left.IsPositive() {
				return nil, nil, fmt.Errorf("%w: %s exceeds outstanding by %s", ErrInvalidAllocation, c.name, *c.b.left)
			}
		}
		alloc.Credit = decimal.Zero
	} else {
		alloc.Credit = pool
	}

	next.FeesPaid = next.FeesPaid.Add(alloc.Fees)
	next.PenaltiesPaid = next.PenaltiesPaid.Add(alloc.Penalty)
	next.CreditBalance = next.CreditBalance.Add(alloc.Credit)
	next.recalculate()

	event := &RepaymentEvent{
		LoanID:          loan.ID,
		Amount:          req.Amount,
		ReceivedAt:      receivedAt,
		CollectedAt:     req.CollectedAt,
		Allocation:      alloc,
		MaturityPenalty: maturity,
		IdempotencyKey:  req.IdempotencyKey,
		Method:          req.Method,
		Collector:       req.Collector,
		Notes:           req.Notes,
	}
	for _, line := range lines {
		if !line.isZero() {
			event.Lines = append(event.Lines, line)
		}
	}

	return next, event, nil
}

// billedSequence returns the highest sequence whose fees are due: every
// installment due by asOf, or the next installment when everything due is
// settled.
func billedSequence(loan *Loan, asOf time.Time) int {
	billed, behind := 0, false
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		open := !inst.IsSettled() || inst.FeeRemaining().IsPositive()
		if !DateOnly(inst.DueDate).After(DateOnly(asOf)) {
			billed = inst.Sequence
			behind = behind || open
			continue
		}
		if behind {
			return billed
		}
		if open {
			return inst.Sequence
		}
	}
	return billed
}

func validateSplit(split AllocationSplit, amount decimal.Decimal) error {
	for _, v := range []decimal.Decimal{split.Fees, split.Penalty, split.Interest, split.Principal} {
		if v.IsNegative() {
			return fmt.Errorf("%w: components cannot be negative", ErrInvalidAllocation)
		}
	}
	if !split.Total().Equal(amount) {
		return fmt.Errorf("%w: split sums to %s, amount is %s", ErrInvalidAllocation, split.Total(), amount)
	}
	return nil
}
