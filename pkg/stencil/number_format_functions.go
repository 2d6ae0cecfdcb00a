package stencil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// currencySymbols maps ISO currency codes to the symbol written before the
// amount.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"CHF": "CHF ",
	"INR": "₹",
	"KRW": "₩",
	"BRL": "R$",
	"MXN": "MX$",
}

// lookupCurrency returns the symbol for a currency code, ignoring case.
func lookupCurrency(code string) (string, bool) {
	symbol, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]
	return symbol, ok
}

// formatCurrency writes amount with two grouped decimals after the symbol.
// A negative sign goes before the symbol: -$1,234.50.
func formatCurrency(amount float64, symbol string) string {
	formatted := groupedNumber(math.Abs(amount), 2)
	if amount < 0 && formatted != groupedNumber(0, 2) {
		return "-" + symbol + formatted
	}
	return symbol + formatted
}

// decimalRegex accepts an optional sign, digits with optional comma
// separators and an optional fraction.
var decimalRegex = regexp.MustCompile(`^[+-]?(?:\d[\d,]*(?:\.\d*)?|\.\d+)$`)

// parseDecimal parses a plain decimal number. Hexadecimal, exponent, NaN and
// Inf forms are not accepted.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimalRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// groupedNumber formats value with the given decimals and comma thousands
// separators.
func groupedNumber(value float64, decimals int) string {
	result := strconv.FormatFloat(value, 'f', decimals, 64)

	intPart, decPart, hasDec := strings.Cut(result, ".")
	negative := strings.HasPrefix(intPart, "-")
	if negative {
		intPart = intPart[1:]
	}

	var formatted strings.Builder
	if negative {
		formatted.WriteByte('-')
	}
	formatted.WriteString(groupDigits(intPart))
	if hasDec {
		formatted.WriteByte('.')
		formatted.WriteString(decPart)
	}
	return formatted.String()
}

func groupDigits(digits string) string {
	var formatted strings.Builder
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			formatted.WriteRune(',')
		}
		formatted.WriteRune(digit)
	}
	return formatted.String()
}

var standardNumberFormat = regexp.MustCompile(`^([NnFfPpEeDdCcGgXx])(\d{0,2})$`)

// formatNumber applies a numeric format: a standard specifier with optional
// precision (N2, F0, P1, E3, D5, C, G, X), a custom digit pattern such as
// "#,##0.00" or a printf pattern containing '%'.
func formatNumber(value float64, spec string) (string, bool) {
	if m := standardNumberFormat.FindStringSubmatch(spec); m != nil {
		precision := -1
		if m[2] != "" {
			precision, _ = strconv.Atoi(m[2])
		}
		return formatStandard(value, m[1][0], precision)
	}
	if strings.Contains(spec, "%") && formatSpecRegex.MatchString(spec) {
		return formatPrintf(value, spec)
	}
	return formatCustom(value, spec)
}

func precisionOr(precision, fallback int) int {
	if precision < 0 {
		return fallback
	}
	return precision
}

func formatStandard(value float64, specifier byte, precision int) (string, bool) {
	switch specifier {
	case 'N', 'n':
		return groupedNumber(value, precisionOr(precision, 2)), true
	case 'F', 'f':
		return strconv.FormatFloat(value, 'f', precisionOr(precision, 2), 64), true
	case 'P', 'p':
		return groupedNumber(value*100, precisionOr(precision, 2)) + "%", true
	case 'C', 'c':
		formatted := groupedNumber(math.Abs(value), precisionOr(precision, 2))
		if value < 0 {
			return "-$" + formatted, true
		}
		return "$" + formatted, true
	case 'E', 'e':
		return formatExponent(value, specifier, precisionOr(precision, 6)), true
	case 'G', 'g':
		return strconv.FormatFloat(value, 'g', precision, 64), true
	case 'D', 'd':
		if value != math.Trunc(value) || math.Abs(value) > math.MaxInt64 {
			return "", false
		}
		n := int64(value)
		digits := strconv.FormatInt(abs64(n), 10)
		if pad := precisionOr(precision, 0) - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		if n < 0 {
			return "-" + digits, true
		}
		return digits, true
	case 'X', 'x':
		if value != math.Trunc(value) || value < 0 || value > math.MaxInt64 {
			return "", false
		}
		digits := strconv.FormatInt(int64(value), 16)
		if specifier == 'X' {
			digits = strings.ToUpper(digits)
		}
		if pad := precisionOr(precision, 0) - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		return digits, true
	}
	return "", false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// formatExponent writes scientific notation with at least three exponent
// digits: 1.234500E+003.
func formatExponent(value float64, specifier byte, precision int) string {
	s := strconv.FormatFloat(value, 'e', precision, 64)
	mantissa, exponent, _ := strings.Cut(s, "e")
	sign := exponent[:1]
	digits := exponent[1:]
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return mantissa + string(specifier) + sign + digits
}

// formatSpecRegex matches one printf verb.
var formatSpecRegex = regexp.MustCompile(`%([-#+ 0]*)(\d+)?(\.\d+)?([a-zA-Z%])`)

// formatPrintf formats value with a printf pattern holding exactly one value
// verb. Integer verbs receive the value as an int64 when it is integral.
func formatPrintf(value float64, pattern string) (string, bool) {
	var verb byte
	verbs := 0
	for _, m := range formatSpecRegex.FindAllStringSubmatch(pattern, -1) {
		if m[4] == "%" {
			continue
		}
		verb = m[4][0]
		verbs++
	}
	if verbs != 1 {
		return "", false
	}

	var arg interface{} = value
	switch verb {
	case 'd', 'x', 'X', 'o', 'b', 'c':
		if value != math.Trunc(value) {
			return "", false
		}
		arg = int64(value)
	case 's', 'v':
		arg = strconv.FormatFloat(value, 'f', -1, 64)
	}

	result := fmt.Sprintf(pattern, arg)
	if strings.Contains(result, "%!") {
		return "", false
	}
	return result, true
}

var customNumberFormat = regexp.MustCompile(`^([^0#]*?)([0#,]*[0#](?:\.[0#]+)?)([^0#]*)$`)

// formatCustom applies a digit pattern. '0' is a required digit, '#' an
// optional one, ',' in the integer part turns on grouping, and a '%' in the
// surrounding text multiplies by 100.
func formatCustom(value float64, pattern string) (string, bool) {
	m := customNumberFormat.FindStringSubmatch(pattern)
	if m == nil {
		return "", false
	}
	prefix, body, suffix := m[1], m[2], m[3]

	intPattern, fracPattern, _ := strings.Cut(body, ".")
	grouping := strings.Contains(intPattern, ",")
	minInt := strings.Count(intPattern, "0")
	maxFrac := len(fracPattern)
	minFrac := strings.Count(fracPattern, "0")

	if strings.Contains(prefix, "%") || strings.Contains(suffix, "%") {
		value *= 100
	}

	formatted := strconv.FormatFloat(math.Abs(value), 'f', maxFrac, 64)
	intDigits, fracDigits, _ := strings.Cut(formatted, ".")

	for len(fracDigits) > minFrac && strings.HasSuffix(fracDigits, "0") {
		fracDigits = fracDigits[:len(fracDigits)-1]
	}
	intDigits = strings.TrimLeft(intDigits, "0")
	for len(intDigits) < minInt {
		intDigits = "0" + intDigits
	}
	if grouping {
		intDigits = groupDigits(intDigits)
	}

	var out strings.Builder
	if value < 0 && (strings.Trim(intDigits, "0,") != "" || strings.Trim(fracDigits, "0") != "") {
		out.WriteByte('-')
	}
	out.WriteString(prefix)
	out.WriteString(intDigits)
	if fracDigits != "" {
		out.WriteByte('.')
		out.WriteString(fracDigits)
	}
	out.WriteString(suffix)
	return out.String(), true
}
