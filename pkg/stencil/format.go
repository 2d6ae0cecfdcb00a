package stencil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ApplyFormat applies the format specifier of a {{name:format}} placeholder
// to a raw value.
//
// Dispatch order: text transforms (upper, lower, title, trim), then date
// formatting when raw parses as a date, then currency or numeric formatting
// when raw parses as a number. Anything that does not apply returns raw
// unchanged.
func ApplyFormat(raw, spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return raw
	}

	if transform, ok := textTransforms[strings.ToLower(spec)]; ok {
		return transform(raw)
	}

	if t, ok := parseDate(raw); ok {
		formatted, ok := formatDate(t, spec)
		if !ok {
			logFormatFallback(raw, spec, "date pattern has no date fields")
			return raw
		}
		return formatted
	}

	if num, ok := parseDecimal(raw); ok {
		if currency, ok := lookupCurrency(spec); ok {
			return formatCurrency(num, currency)
		}
		formatted, ok := formatNumber(num, spec)
		if !ok {
			logFormatFallback(raw, spec, "unsupported numeric format")
			return raw
		}
		return formatted
	}

	return raw
}

var textTransforms = map[string]func(string) string{
	"upper":     strings.ToUpper,
	"uppercase": strings.ToUpper,
	"lower":     strings.ToLower,
	"lowercase": strings.ToLower,
	"title":     toTitleCase,
	"titlecase": toTitleCase,
	"trim":      strings.TrimSpace,
}

// toTitleCase upper-cases the first letter of every space-separated word and
// lower-cases the rest. Runs of spaces are preserved.
func toTitleCase(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
	}
	return strings.Join(words, " ")
}

func logFormatFallback(raw, spec, reason string) {
	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"value":  raw,
			"format": spec,
		}).Debug("Format not applied: %s", reason)
	}
}
