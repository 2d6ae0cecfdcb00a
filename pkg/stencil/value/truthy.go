package value

import "strings"

// IsTruthy reports the boolean interpretation of v used by conditional
// blocks.
//
// Flat text is false when blank or equal (ignoring case) to "false", "0",
// "no" or "null". Structured values follow JSON-ish rules: null is false,
// strings are true when non-blank, numbers when non-zero, arrays when
// non-empty, and objects always.
func IsTruthy(v Value) bool {
	switch v.kind {
	case KindText:
		return textTruthy(v.str)
	case KindBool:
		return v.b
	case KindString:
		return strings.TrimSpace(v.str) != ""
	case KindNumber:
		return v.num != 0
	case KindArray:
		return len(v.items) > 0
	case KindObject:
		return true
	default:
		return false
	}
}

func textTruthy(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	switch strings.ToLower(s) {
	case "false", "0", "no", "null":
		return false
	}
	return true
}
