package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"token_portfolio/internal/domain/entity"
)

var (
	errNegativeHoldings = errors.New("holdings cannot be negative")
	errHoldingsTooLarge = errors.New("holdings are too large")
)

// ParseHoldings converts user-entered holdings text into a quantity.
// Anything that is not a non-negative decimal resolves to 0 together with an *entity.InputError;
// the returned quantity is always safe to use.
func ParseHoldings(text string) (float64, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if trimmed == "" {
		return 0, &entity.InputError{Field: "holdings", Input: text, Err: errors.New("empty input")}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, &entity.InputError{Field: "holdings", Input: text, Err: err}
	}
	if d.IsNegative() {
		return 0, &entity.InputError{Field: "holdings", Input: text, Err: errNegativeHoldings}
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, &entity.InputError{Field: "holdings", Input: text, Err: errHoldingsTooLarge}
	}
	return f, nil
}

// FormatDecimal renders a float without exponent notation or trailing zeros.
// NaN and infinities have no decimal form and are rejected.
func FormatDecimal(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("cannot format %v as a decimal", f)
	}
	return decimal.NewFromFloat(f).String(), nil
}

// ParseDecimal is the inverse of FormatDecimal.
func ParseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("decimal %q is out of float64 range", s)
	}
	return f, nil
}
