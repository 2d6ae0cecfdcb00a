package stencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		spec string
		want string
	}{
		// text transforms
		{"upper", "hello world", "upper", "HELLO WORLD"},
		{"uppercase alias", "abc", "uppercase", "ABC"},
		{"transform name ignores case", "Mixed", "LOWER", "mixed"},
		{"title", "hELLO  wORLD", "title", "Hello  World"},
		{"trim", "  x ", "trim", "x"},
		{"transform on empty", "", "upper", ""},
		{"empty spec", "5", "", "5"},
		{"blank spec", "5", "  ", "5"},

		// dates
		{"date pattern", "2024-03-05", "dd/MM/yyyy", "05/03/2024"},
		{"weekday name", "2024-03-05", "dddd", "Tuesday"},
		{"date without fields keeps raw", "2024-03-05", "!!", "2024-03-05"},
		{"datetime input", "2024-03-05 14:07", "HH:mm", "14:07"},

		// currency
		{"currency", "1234.5", "USD", "$1,234.50"},
		{"currency code ignores case", "-1234.5", "eur", "-€1,234.50"},
		{"negative zero currency", "-0.001", "USD", "$0.00"},
		{"currency with spaced symbol", "1000", "CHF", "CHF 1,000.00"},
		{"currency with grouped input", "1,200", "GBP", "£1,200.00"},

		// numbers
		{"N2", "1234.5678", "N2", "1,234.57"},
		{"N0 grouped input", "1,200", "N0", "1,200"},
		{"F3", "3.14159", "F3", "3.142"},
		{"P1", "0.256", "P1", "25.6%"},
		{"D5", "42", "D5", "00042"},
		{"D on a fraction keeps raw", "1.5", "D", "1.5"},
		{"X", "255", "X", "FF"},
		{"x with width", "255", "x4", "00ff"},
		{"E2", "1234.5", "E2", "1.23E+003"},
		{"C", "-5", "C0", "-$5"},
		{"custom pattern", "1234567.891", "#,##0.00", "1,234,567.89"},
		{"custom percent", "0.5", "0%", "50%"},
		{"printf", "7", "%05.1f", "007.0"},
		{"printf with text", "7", "Total: %d items", "Total: 7 items"},

		// fallbacks
		{"non-numeric input", "abc", "N2", "abc"},
		{"unknown format", "12", "bogus", "12"},
		{"two printf verbs", "12", "%d %d", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyFormat(tt.raw, tt.spec))
		})
	}
}

func TestToTitleCase(t *testing.T) {
	assert.Equal(t, "Élan Vital", toTitleCase("éLAN vital"))
	assert.Equal(t, "", toTitleCase(""))
}
