// Package importer turns bulk repayment files into import rows.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// Recognised header names.
const (
	colLoanID         = "loan_id"
	colAmount         = "amount"
	colPrincipal      = "principal"
	colInterest       = "interest"
	colFees           = "fees"
	colPenalty        = "penalty"
	colPaymentDate    = "payment_date"
	colCollectionDate = "collection_date"
	colMethod         = "payment_method"
	colCollector      = "collector"
	colNotes          = "notes"
	colIdempotencyKey = "idempotency_key"
)

var requiredColumns = []string{colLoanID, colAmount, colPaymentDate}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "02/01/2006"}

// ErrMissingHeader is returned when the header row lacks a required column.
var ErrMissingHeader = errors.New("missing required column")

// ErrEmptyFile is returned when the file has no header row.
var ErrEmptyFile = errors.New("import file is empty")

// RowError is a row that could not be parsed into an import row.
type RowError struct {
	Line   int
	LoanID string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Result holds the parsed rows and the rows rejected while parsing.
type Result struct {
	Rows   []usecase.ImportRow
	Errors []RowError
}

// Failures converts parse errors into failed import results.
func (r Result) Failures() []usecase.ImportResult {
	out := make([]usecase.ImportResult, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, usecase.ImportResult{
			Line:   e.Line,
			LoanID: e.LoanID,
			Status: usecase.ImportFailed,
			Error:  e.Err.Error(),
		})
	}
	return out
}

type header map[string]int

func parseHeader(cells []string) (header, error) {
	h := make(header, len(cells))
	for i, c := range cells {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, col)
		}
	}
	return h, nil
}

func (h header) get(cells []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseRecords converts a header row plus data rows. lines holds the 1-based
// file line of each record; when nil the record index is used.
func parseRecords(records [][]string, lines []int) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrEmptyFile
	}

	h, err := parseHeader(records[0])
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, cells := range records[1:] {
		line := i + 2
		if lines != nil {
			line = lines[i+1]
		}
		if blank(cells) {
			continue
		}
		row, err := h.parseRow(line, cells)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, LoanID: h.get(cells, colLoanID), Err: err})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (h header) parseRow(line int, cells []string) (usecase.ImportRow, error) {
	row := usecase.ImportRow{
		Line:           line,
		LoanID:         h.get(cells, colLoanID),
		Method:         h.get(cells, colMethod),
		Collector:      h.get(cells, colCollector),
		Notes:          h.get(cells, colNotes),
		IdempotencyKey: h.get(cells, colIdempotencyKey),
	}
	if row.LoanID == "" {
		return row, errors.New("loan_id is required")
	}

	amount, err := parseAmount(h.get(cells, colAmount))
	if err != nil {
		return row, fmt.Errorf("amount: %w", err)
	}
	if !amount.IsPositive() {
		return row, domain.ErrInvalidAmount
	}
	row.Amount = amount

	row.PaymentDate, err = parseDate(h.get(cells, colPaymentDate))
	if err != nil {
		return row, fmt.Errorf("payment_date: %w", err)
	}
	row.CollectionDate = row.PaymentDate
	if v := h.get(cells, colCollectionDate); v != "" {
		row.CollectionDate, err = parseDate(v)
		if err != nil {
			return row, fmt.Errorf("collection_date: %w", err)
		}
	}

	split, err := h.parseSplit(cells)
	if err != nil {
		return row, err
	}
	row.Split = split

	return row, nil
}

type splitColumn struct {
	name string
	dst  *decimal.Decimal
}

// parseSplit returns nil when none of the split columns carry a value.
func (h header) parseSplit(cells []string) (*domain.AllocationSplit, error) {
	var split domain.AllocationSplit
	cols := []splitColumn{
		{colFees, &split.Fees},
		{colPenalty, &split.Penalty},
		{colInterest, &split.Interest},
		{colPrincipal, &split.Principal},
	}

	present := false
	for _, c := range cols {
		v := h.get(cells, c.name)
		if v == "" {
			continue
		}
		d, err := parseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("%s: %w", c.name, domain.ErrInvalidAllocation)
		}
		*c.dst = d
		present = true
	}
	if !present {
		return nil, nil
	}
	return &split, nil
}

func parseAmount(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, errors.New("value is required")
	}
	return decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("value is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}
