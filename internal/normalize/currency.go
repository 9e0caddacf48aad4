// Package normalize parses and renders the loosely formatted values found
// in source files: locale-formatted currency strings and tax identifiers.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCurrency parses a locale-formatted currency string into a decimal.
// Accepted forms: "R$ 1.234,56", "1234,56", "1234.56", "1.234.567".
// When both '.' and ',' are present, '.' is a thousands separator and ','
// the decimal separator. A lone ',' is a decimal separator. A lone '.' is
// a decimal separator only when at most two digits follow it; otherwise it
// is a thousands separator. Empty input parses to zero: upstream sources
// routinely omit values, and callers needing strictness check emptiness
// themselves.
func ParseCurrency(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, nil
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		last := strings.LastIndex(s, ".")
		if len(s)-last-1 > 2 || strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse currency %q: %w", raw, err)
	}
	return d, nil
}

// FormatCurrency renders a decimal in the fixed presentation pattern used
// across all outputs: "R$ 1.234,56" with '.' grouping thousands and ','
// as the decimal separator. Pure function; never touches process locale.
func FormatCurrency(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s[:len(s)-3]
	fracPart := s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + fracPart
	if neg {
		out = "R$ -" + b.String() + "," + fracPart
	}
	return out
}
