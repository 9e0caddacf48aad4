package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseCurrency_SymbolAndGrouping(t *testing.T) {
	got, err := ParseCurrency("R$ 1.234,56")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected 1234.56, got %s", got)
	}
}

func TestParseCurrency_Formats(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1.234.567", "1234567"},
		{"1.234", "1234"},
		{"12.5", "12.5"},
		{"0,01", "0.01"},
		{"R$ 10,00", "10"},
		{"-1.000,50", "-1000.50"},
		{"500", "500"},
	}

	for _, c := range cases {
		got, err := ParseCurrency(c.raw)
		if err != nil {
			t.Errorf("ParseCurrency(%q) returned error: %v", c.raw, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("ParseCurrency(%q) = %s, expected %s", c.raw, got, c.want)
		}
	}
}

func TestParseCurrency_EmptyIsZero(t *testing.T) {
	for _, raw := range []string{"", "   ", "R$ "} {
		got, err := ParseCurrency(raw)
		if err != nil {
			t.Errorf("ParseCurrency(%q) returned error: %v", raw, err)
		}
		if !got.IsZero() {
			t.Errorf("ParseCurrency(%q) = %s, expected 0", raw, got)
		}
	}
}

func TestParseCurrency_Malformed(t *testing.T) {
	if _, err := ParseCurrency("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestParseCurrency_Idempotent(t *testing.T) {
	first, err := ParseCurrency("R$ 9.876.543,21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := ParseCurrency(FormatCurrency(first))
	if err != nil {
		t.Fatalf("unexpected error on re-parse: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("re-parsing formatted output changed the value: %s vs %s", first, second)
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"1234.56", "R$ 1.234,56"},
		{"0", "R$ 0,00"},
		{"12", "R$ 12,00"},
		{"1234567.8", "R$ 1.234.567,80"},
		{"-99.9", "R$ -99,90"},
		{"100", "R$ 100,00"},
		{"1000", "R$ 1.000,00"},
	}

	for _, c := range cases {
		got := FormatCurrency(decimal.RequireFromString(c.value))
		if got != c.want {
			t.Errorf("FormatCurrency(%s) = %q, expected %q", c.value, got, c.want)
		}
	}
}
