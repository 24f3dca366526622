package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type scheduleRow struct {
	principal decimal.Decimal
	interest  decimal.Decimal
}

// GenerateSchedule produces the amortization schedule for terms disbursed on
// the given date. It never returns a partial schedule: any invalid input
// yields ErrInvalidTerm or ErrInvalidTerms.
func GenerateSchedule(terms LoanTerms, disbursement time.Time) ([]Installment, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	money, err := NewMoney(terms.Scale)
	if err != nil {
		return nil, err
	}

	rate, err := terms.RatePerCycle()
	if err != nil {
		return nil, err
	}

	dates, err := dueDates(terms, disbursement)
	if err != nil {
		return nil, err
	}

	principal := money.Round(terms.Principal)
	rows, err := buildRows(terms.InterestMethod, principal, rate, terms.Term, money)
	if err != nil {
		return nil, err
	}

	if terms.FirstRepaymentAmount != nil {
		rows, err = applyFirstAmount(terms, rows, principal, rate, money)
		if err != nil {
			return nil, err
		}
	}

	installments := make([]Installment, len(rows))
	for i, row := range rows {
		installments[i] = newInstallment(i+1, dates[i], row.principal, row.interest)
	}

	attachFees(installments, terms.Fees, principal, money)

	return installments, nil
}

func dueDates(terms LoanTerms, disbursement time.Time) ([]time.Time, error) {
	start := DateOnly(disbursement)

	first := terms.Cycle.Step(start, 1)
	if terms.FirstRepaymentDate != nil {
		first = DateOnly(*terms.FirstRepaymentDate)
		if !first.After(start) {
			return nil, fmt.Errorf("%w: first repayment date must be after disbursement", ErrInvalidTerms)
		}
	}

	dates := make([]time.Time, terms.Term)
	for i := range dates {
		dates[i] = terms.Cycle.Step(first, i)
		if i > 0 && !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: due dates must strictly increase", ErrInvalidTerms)
		}
	}

	return dates, nil
}

func buildRows(method InterestMethod, principal, rate decimal.Decimal, n int, money Money) ([]scheduleRow, error) {
	if n < 1 {
		return nil, ErrInvalidTerm
	}

	switch method {
	case InterestFlat:
		return flatRows(principal, rate, n, money)
	case InterestReducingEqualInstallment:
		return annuityRows(principal, rate, n, money), nil
	case InterestReducingEqualPrincipal:
		return equalPrincipalRows(principal, rate, n, money)
	case InterestOnly:
		return interestOnlyRows(principal, rate, n, money), nil
	case InterestCompound:
		return compoundRows(principal, rate, n, money), nil
	default:
		return nil, fmt.Errorf("%w: unknown interest method %q", ErrInvalidTerms, method)
	}
}

// flatRows charges interest on the original principal for every cycle.
func flatRows(principal, rate decimal.Decimal, n int, money Money) ([]scheduleRow, error) {
	totalInterest := money.Round(principal.Mul(rate).Mul(decimal.NewFromInt(int64(n))))

	interest, err := money.Split(totalInterest, n)
	if err != nil {
		return nil, err
	}
	principals, err := money.Split(principal, n)
	if err != nil {
		return nil, err
	}

	rows := make([]scheduleRow, n)
	for i := range rows {
		rows[i] = scheduleRow{principal: principals[i], interest: interest[i]}
	}
	return rows, nil
}

// annuityRows keeps the installment constant: A = P*r / (1 - (1+r)^-n).
func annuityRows(principal, rate decimal.Decimal, n int, money Money) []scheduleRow {
	if rate.IsZero() {
		rows, _ := equalPrincipalRows(principal, rate, n, money)
		return rows
	}

	factor := powInt(one.Add(rate), n)
	payment := money.Round(principal.Mul(rate).Mul(factor).DivRound(factor.Sub(one), powPrecision))

	rows := make([]scheduleRow, n)
	balance := principal
	for i := 0; i < n; i++ {
		interest := money.Round(balance.Mul(rate))
		var part decimal.Decimal
		if i == n-1 {
			part = balance
		} else {
			part = maxDecimal(minDecimal(payment.Sub(interest), balance), decimal.Zero)
		}
		rows[i] = scheduleRow{principal: part, interest: interest}
		balance = balance.Sub(part)
	}
	return rows
}

// equalPrincipalRows repays the same principal each cycle with interest on
// the declining balance.
func equalPrincipalRows(principal, rate decimal.Decimal, n int, money Money) ([]scheduleRow, error) {
	principals, err := money.Split(principal, n)
	if err != nil {
		return nil, err
	}

	rows := make([]scheduleRow, n)
	balance := principal
	for i := range rows {
		rows[i] = scheduleRow{principal: principals[i], interest: money.Round(balance.Mul(rate))}
		balance = balance.Sub(principals[i])
	}
	return rows, nil
}

// interestOnlyRows defers the whole principal to the last installment.
func interestOnlyRows(principal, rate decimal.Decimal, n int, money Money) []scheduleRow {
	interest := money.Round(principal.Mul(rate))

	rows := make([]scheduleRow, n)
	for i := range rows {
		rows[i] = scheduleRow{principal: decimal.Zero, interest: interest}
	}
	rows[n-1].principal = principal
	return rows
}

// compoundRows capitalises interest at every cycle boundary. Each cycle
// accrues round(balance*r) on the outstanding principal plus interest left
// unpaid by earlier rows, and the row pays an equal share of the capitalised
// balance over the remaining cycles, interest first. Whatever a row cannot
// pay stays in the balance and compounds. The last row clears the balance.
func compoundRows(principal, rate decimal.Decimal, n int, money Money) []scheduleRow {
	rows := make([]scheduleRow, n)
	outstanding := principal
	unpaid := decimal.Zero
	for i := range rows {
		unpaid = unpaid.Add(money.Round(outstanding.Add(unpaid).Mul(rate)))
		balance := outstanding.Add(unpaid)

		payment := balance
		if left := n - i; left > 1 {
			payment = money.Round(balance.DivRound(decimal.NewFromInt(int64(left)), powPrecision))
		}

		interest := minDecimal(payment, unpaid)
		part := payment.Sub(interest)
		rows[i] = scheduleRow{principal: part, interest: interest}
		unpaid = unpaid.Sub(interest)
		outstanding = outstanding.Sub(part)
	}
	return rows
}

// applyFirstAmount replaces the first installment with the override amount.
// Balance-based methods re-amortize the remaining balance over the rest of
// the term. Flat spreads it evenly and keeps its interest rows.
func applyFirstAmount(terms LoanTerms, rows []scheduleRow, principal, rate decimal.Decimal, money Money) ([]scheduleRow, error) {
	amount := money.Round(*terms.FirstRepaymentAmount)
	interest := rows[0].interest
	if terms.InterestMethod == InterestCompound {
		interest = money.Round(principal.Mul(rate))
	}
	n := len(rows)

	if n == 1 {
		if !amount.Equal(rows[0].principal.Add(interest)) {
			return nil, fmt.Errorf("%w: first repayment amount must equal the single installment %s", ErrInvalidTerms, rows[0].principal.Add(interest))
		}
		return rows, nil
	}

	if amount.LessThan(interest) {
		return nil, fmt.Errorf("%w: first repayment amount %s does not cover interest %s", ErrInvalidTerms, amount, interest)
	}
	first := amount.Sub(interest)
	if !first.LessThan(principal) {
		return nil, fmt.Errorf("%w: first repayment amount covers the whole principal", ErrInvalidTerms)
	}
	rest := principal.Sub(first)

	out := make([]scheduleRow, 0, n)
	out = append(out, scheduleRow{principal: first, interest: interest})

	switch terms.InterestMethod {
	case InterestReducingEqualInstallment, InterestReducingEqualPrincipal, InterestOnly, InterestCompound:
		tail, err := buildRows(terms.InterestMethod, rest, rate, n-1, money)
		if err != nil {
			return nil, err
		}
		out = append(out, tail...)
	default:
		principals, err := money.Split(rest, n-1)
		if err != nil {
			return nil, err
		}
		for i, row := range rows[1:] {
			out = append(out, scheduleRow{principal: principals[i], interest: row.interest})
		}
	}

	return out, nil
}

func attachFees(installments []Installment, fees []FeeSpec, principal decimal.Decimal, money Money) {
	for _, fee := range fees {
		switch fee.Charge {
		case FeeUpfront:
			amount := fee.Amount
			if fee.Kind == ChargePercentage {
				amount = principal.Mul(fee.Amount)
			}
			installments[0].FeeDue = installments[0].FeeDue.Add(money.Round(amount))
		case FeePerInstallment:
			for i := range installments {
				amount := fee.Amount
				if fee.Kind == ChargePercentage {
					amount = installments[i].TotalDue.Mul(fee.Amount)
				}
				installments[i].FeeDue = installments[i].FeeDue.Add(money.Round(amount))
			}
		}
	}
}
