// Package currencyutils normalizes statement amounts into two-decimal
// strings.
package currencyutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned for an amount cell with no digits.
var ErrEmptyAmount = errors.New("empty amount")

// Places is the number of fraction digits kept on every amount.
const Places = 2

// ParseAmount strips thousands separators and parses the remainder.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", value, err)
	}
	return amount, nil
}

// Round rounds half to even at two places.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(Places)
}

// FormatAmount renders amount with exactly two fraction digits. Zero is
// always rendered unsigned.
func FormatAmount(amount decimal.Decimal) string {
	return Round(amount).StringFixed(Places)
}

// NormalizeAmount parses value and formats it with FormatAmount.
func NormalizeAmount(value string) (string, error) {
	amount, err := ParseAmount(value)
	if err != nil {
		return "", err
	}
	return FormatAmount(amount), nil
}

// Sign returns -1, 0 or 1 for a canonical amount string.
func Sign(value string) (int, decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", value, err)
	}
	return amount.Sign(), amount, nil
}
