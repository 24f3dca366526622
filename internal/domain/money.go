package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// DefaultScale is the number of fractional digits kept for stored amounts.
	DefaultScale int32 = 2
	// MinScale is the smallest scale the ledger accepts.
	MinScale int32 = 2

	// powPrecision bounds intermediate precision of compound factors.
	powPrecision int32 = 28
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Money rounds amounts at a fixed scale using round-half-up.
type Money struct {
	Scale int32
}

// NewMoney returns a Money helper for scale, rejecting scales below MinScale.
func NewMoney(scale int32) (Money, error) {
	if scale == 0 {
		scale = DefaultScale
	}
	if scale < MinScale {
		return Money{}, fmt.Errorf("%w: money scale %d is below %d", ErrInvalidTerms, scale, MinScale)
	}
	return Money{Scale: scale}, nil
}

// Round rounds half away from zero, which is half-up for the non-negative
// amounts the ledger stores.
func (m Money) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(m.Scale)
}

// Split divides total into n parts that sum exactly to the rounded total.
// The last part absorbs the rounding residue.
func (m Money) Split(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, ErrInvalidTerm
	}

	total = m.Round(total)
	count := decimal.NewFromInt(int64(n))
	part := m.Round(total.Div(count))
	if part.Mul(decimal.NewFromInt(int64(n - 1))).GreaterThan(total) {
		part = total.Div(count).Truncate(m.Scale)
	}

	parts := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = part
		sum = sum.Add(part)
	}
	parts[n-1] = total.Sub(sum)

	return parts, nil
}

// powInt raises base to a non-negative integer power by squaring, truncating
// intermediates so precision stays bounded.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Truncate(powPrecision)
		}
		base = base.Mul(base).Truncate(powPrecision)
		exp >>= 1
	}
	return result
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
