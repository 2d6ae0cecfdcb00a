package stencil

import (
	"strconv"
	"time"
)

// Built-in placeholder names. A bare {{name}} for any of these always
// resolves to the built-in, even when a user variable has the same name.
const (
	BuiltinPageNumber = "pageNumber"
	BuiltinTotalPages = "totalPages"
	BuiltinDate       = "date"
	BuiltinYear       = "year"
	BuiltinTime       = "time"
	BuiltinDateTime   = "datetime"
	BuiltinToday      = "today"
)

var builtinNames = map[string]bool{
	BuiltinPageNumber: true,
	BuiltinTotalPages: true,
	BuiltinDate:       true,
	BuiltinYear:       true,
	BuiltinTime:       true,
	BuiltinDateTime:   true,
	BuiltinToday:      true,
}

// IsBuiltin reports whether name is a built-in placeholder.
func IsBuiltin(name string) bool {
	return builtinNames[name]
}

// builtinValue returns the text of a built-in placeholder.
func builtinValue(name string, ctx *RenderContext, now time.Time, cfg *Config) (string, bool) {
	switch name {
	case BuiltinPageNumber:
		return strconv.Itoa(ctx.PageNumber), true
	case BuiltinTotalPages:
		return strconv.Itoa(ctx.TotalPages), true
	case BuiltinDate, BuiltinToday:
		return now.Format(cfg.DateLayout), true
	case BuiltinYear:
		return strconv.Itoa(now.Year()), true
	case BuiltinTime:
		return now.Format(cfg.TimeLayout), true
	case BuiltinDateTime:
		return now.Format(cfg.DateTimeLayout), true
	}
	return "", false
}
