package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
)

const sample = `
[products.sme-12]
annual_rate = "0.18"
interest_method = "reducing_equal_installment"
term = 12
cycle = "monthly"
grace_days = 5
currency = "KES"

[products.sme-12.late_penalty]
kind = "fixed"
rate = "5"
frequency = "daily"

[[products.sme-12.fees]]
name = "processing"
kind = "percentage"
amount = "0.02"
charge = "upfront"

[products.micro-weekly]
annual_rate = "0.30"
interest_method = "flat"
term = 8
cycle = "weekly"
currency = "USD"
`

func TestParse(t *testing.T) {
	c, err := Parse(sample)
	require.NoError(t, err)

	assert.Equal(t, []string{"micro-weekly", "sme-12"}, c.Codes())

	terms, err := c.Product("sme-12")
	require.NoError(t, err)
	assert.True(t, terms.AnnualRate.Equal(decimal.RequireFromString("0.18")))
	assert.Equal(t, domain.InterestReducingEqualInstallment, terms.InterestMethod)
	assert.Equal(t, domain.CycleMonthly, terms.Cycle)
	assert.Equal(t, 5, terms.GraceDays)
	assert.Equal(t, domain.ChargeFixed, terms.LatePenalty.Kind)
	assert.Equal(t, domain.PenaltyDaily, terms.LatePenalty.Frequency)
	require.Len(t, terms.Fees, 1)
	assert.Equal(t, domain.FeeUpfront, terms.Fees[0].Charge)
	assert.True(t, terms.Principal.IsZero())
}

func TestProductUnknown(t *testing.T) {
	c, err := Parse(sample)
	require.NoError(t, err)

	_, err = c.Product("nope")
	assert.True(t, errors.Is(err, domain.ErrInvalidTerms))
}

func TestProductReturnsCopy(t *testing.T) {
	c, err := Parse(sample)
	require.NoError(t, err)

	terms, err := c.Product("sme-12")
	require.NoError(t, err)
	terms.Fees[0].Name = "changed"

	again, err := c.Product("sme-12")
	require.NoError(t, err)
	assert.Equal(t, "processing", again.Fees[0].Name)
}

func TestParseRejectsIncompleteProduct(t *testing.T) {
	_, err := Parse(`
[products.broken]
annual_rate = "0.1"
`)
	assert.True(t, errors.Is(err, domain.ErrInvalidTerms))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Codes(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
