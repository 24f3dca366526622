package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency       = errors.New("invalid currency code")
	ErrAmountTooLarge        = errors.New("amount exceeds maximum allowed")
	ErrInvalidCustomFields   = errors.New("invalid custom fields")
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
)

// Validation constants
const (
	MaxCustomFieldsSize     = 10240 // 10KB
	MaxCustomFieldKeyLength = 64
	MaxIdempotencyKeyLength = 255
	MaxRepaymentAmount      = "1000000000000" // 1 trillion
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
	"KES": true, "UGX": true, "TZS": true, "NGN": true,
	"GHS": true, "RWF": true, "ZMW": true, "PHP": true,
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount validates a repayment amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxRepaymentAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxRepaymentAmount)
	}

	return nil
}

// ValidateCustomFields checks the loan extension map. Keys must be non-empty
// and short, values must be JSON scalars, and the encoded map must fit the
// size limit.
func ValidateCustomFields(fields map[string]any) error {
	if fields == nil {
		return nil
	}

	for k, v := range fields {
		if strings.TrimSpace(k) == "" || len(k) > MaxCustomFieldKeyLength {
			return fmt.Errorf("%w: key %q must be 1-%d characters", ErrInvalidCustomFields, k, MaxCustomFieldKeyLength)
		}
		switch v.(type) {
		case nil, string, bool, float64, int, int64, json.Number:
		default:
			return fmt.Errorf("%w: value of %q must be a scalar", ErrInvalidCustomFields, k)
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomFields, err)
	}
	if len(data) > MaxCustomFieldsSize {
		return fmt.Errorf("%w: size %d bytes exceeds limit of %d bytes", ErrInvalidCustomFields, len(data), MaxCustomFieldsSize)
	}

	return nil
}

// ValidateIdempotencyKey validates a repayment reference
func ValidateIdempotencyKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > MaxIdempotencyKeyLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeyLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
