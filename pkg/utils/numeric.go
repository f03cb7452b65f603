package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountTolerance is the largest difference, in currency units, accepted when
// two amounts are compared after rounding.
const AmountTolerance = 0.01

var amountNoise = strings.NewReplacer("€", "", "EUR", "", "eur", "", " ", "", " ", "")

// ParseDecimal parses a money token printed with either ',' or '.' as the
// decimal separator ("3,56", "3.56", "1.234,56", "1,234.56", "-12,50 €").
// When both separators are present the right-most one is the decimal point.
func ParseDecimal(s string) (decimal.Decimal, error) {
	raw := amountNoise.Replace(strings.TrimSpace(s))
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	switch {
	case strings.HasPrefix(raw, "-"):
		negative = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	case strings.HasSuffix(raw, "-"):
		negative = true
		raw = raw[:len(raw)-1]
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") > 1 {
			raw = strings.ReplaceAll(raw, ",", "")
		} else {
			raw = strings.Replace(raw, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(raw, ".") > 1:
		raw = strings.ReplaceAll(raw, ".", "")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseAmount is ParseDecimal rounded to cents and returned as float64.
func ParseAmount(s string) (float64, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	return d.Round(2).InexactFloat64(), nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// UnitPrice derives a per-unit price from a line total. The result keeps six
// decimals so that UnitPrice(total, qty) * qty rounds back to total.
func UnitPrice(total float64, quantity int) float64 {
	if quantity <= 1 {
		return total
	}
	return decimal.NewFromFloat(total).
		DivRound(decimal.NewFromInt(int64(quantity)), 6).
		InexactFloat64()
}

// SumAmounts adds amounts without accumulating float error.
func SumAmounts(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Round(2).InexactFloat64()
}

// AmountsEqual reports whether a and b are within AmountTolerance of each other.
func AmountsEqual(a, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(AmountTolerance))
}
