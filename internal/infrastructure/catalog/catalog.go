// Package catalog loads named loan products from a TOML file.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// Catalog implements usecase.ProductCatalog.
type Catalog struct {
	products map[string]domain.LoanTerms
}

type file struct {
	Products map[string]product `toml:"products"`
}

type product struct {
	Principal            decimal.Decimal            `toml:"principal"`
	AnnualRate           decimal.Decimal            `toml:"annual_rate"`
	InterestMethod       domain.InterestMethod      `toml:"interest_method"`
	Term                 int                        `toml:"term"`
	Cycle                domain.Cycle               `toml:"cycle"`
	GraceDays            int                        `toml:"grace_days"`
	Currency             string                     `toml:"currency"`
	Scale                int32                      `toml:"scale"`
	LatePenalty          domain.PenaltySpec         `toml:"late_penalty"`
	MaturityPenalty      domain.MaturityPenaltySpec `toml:"maturity_penalty"`
	Fees                 []domain.FeeSpec           `toml:"fees"`
	FirstRepaymentAmount *decimal.Decimal           `toml:"first_repayment_amount"`
	FirstRepaymentDate   *time.Time                 `toml:"first_repayment_date"`
}

func (p product) terms() domain.LoanTerms {
	return domain.LoanTerms{
		Principal:            p.Principal,
		AnnualRate:           p.AnnualRate,
		InterestMethod:       p.InterestMethod,
		Term:                 p.Term,
		Cycle:                p.Cycle,
		GraceDays:            p.GraceDays,
		LatePenalty:          p.LatePenalty,
		MaturityPenalty:      p.MaturityPenalty,
		Fees:                 p.Fees,
		FirstRepaymentDate:   p.FirstRepaymentDate,
		FirstRepaymentAmount: p.FirstRepaymentAmount,
		Currency:             p.Currency,
		Scale:                p.Scale,
	}
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("load product catalog %s: %w", path, err)
	}
	return build(f)
}

// Parse reads a catalog from TOML text.
func Parse(data string) (*Catalog, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parse product catalog: %w", err)
	}
	return build(f)
}

// Empty returns a catalog without products.
func Empty() *Catalog {
	return &Catalog{products: map[string]domain.LoanTerms{}}
}

func build(f file) (*Catalog, error) {
	c := Empty()
	for code, p := range f.Products {
		terms := p.terms()
		if terms.Term < 1 || terms.Cycle == "" || terms.InterestMethod == "" {
			return nil, fmt.Errorf("%w: product %q needs term, cycle and interest_method", domain.ErrInvalidTerms, code)
		}
		c.products[code] = terms
	}
	return c, nil
}

// Product returns the default terms of a product.
func (c *Catalog) Product(code string) (domain.LoanTerms, error) {
	terms, ok := c.products[code]
	if !ok {
		return domain.LoanTerms{}, fmt.Errorf("%w: unknown product %q", domain.ErrInvalidTerms, code)
	}
	terms.Fees = append([]domain.FeeSpec(nil), terms.Fees...)
	return terms, nil
}

// Codes lists product codes in order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.products))
	for code := range c.products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
