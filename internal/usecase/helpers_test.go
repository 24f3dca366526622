package usecase_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// flatTerms is 1200 at 12% flat over 12 months: 112 per installment,
// 1344 repayable.
func flatTerms() domain.LoanTerms {
	return domain.LoanTerms{
		Principal:      dec("1200"),
		AnnualRate:     dec("0.12"),
		InterestMethod: domain.InterestFlat,
		Term:           12,
		Cycle:          domain.CycleMonthly,
		Currency:       "USD",
	}
}

// seedOpenLoan stores a disbursed loan in repo.
func seedOpenLoan(t *testing.T, repo *mocks.MockLoanRepository, id string, terms domain.LoanTerms, disbursed time.Time) *domain.Loan {
	t.Helper()

	loan, err := domain.NewLoan(id, terms, disbursed, disbursed)
	if err != nil {
		t.Fatalf("NewLoan: %v", err)
	}
	if _, err := loan.Transition(domain.LoanOpen, domain.TransitionContext{At: disbursed}); err != nil {
		t.Fatalf("open loan: %v", err)
	}
	repo.Put(loan)
	return loan
}

// newTestMetrics registers metrics against a private registry.
func newTestMetrics() *metrics.Metrics {
	registry := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return metrics.New()
}
