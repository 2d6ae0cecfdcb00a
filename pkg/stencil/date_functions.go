package stencil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common date layouts tried, in order, when a value is parsed as a date.
// Month-first layouts come before day-first ones.
var commonDateFormats = []string{
	// ISO and RFC formats
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,

	// Common formats
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"02/01/2006", // European style
	"2006/01/02",
	"2.1.2006",
	"02.01.2006",
	"2006.01.02",

	// Other formats
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
	"Mon, 02 Jan 2006 15:04:05",
	"Monday, 02 January 2006",
	"Monday, January 2, 2006",
}

// parseDate parses s with the default layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range commonDateFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// formatDate renders t with a date pattern such as "yyyy-MM-dd" or
// "dddd, MMMM d". Recognised fields:
//
//	y   year (yy two digits, yyyy four)
//	M   month (M, MM, MMM short name, MMMM full name)
//	d   day (d, dd, ddd short weekday, dddd full weekday)
//	H h hour (24h / 12h), m minute, s second
//	f   fractional seconds (one digit per f)
//	t   AM/PM designator (t first letter, tt full)
//	z   UTC offset (z, zz hours, zzz hours and minutes)
//
// Text in single or double quotes and characters escaped with a backslash
// are copied literally; other characters are copied as they are. The second
// result is false when the pattern contains no date field.
func formatDate(t time.Time, pattern string) (string, bool) {
	var out strings.Builder
	fields := 0
	runes := []rune(pattern)

	for i := 0; i < len(runes); {
		ch := runes[i]

		if ch == '\'' || ch == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != ch {
				end++
			}
			out.WriteString(string(runes[i+1 : end]))
			i = end + 1
			continue
		}
		if ch == '\\' && i+1 < len(runes) {
			out.WriteRune(runes[i+1])
			i += 2
			continue
		}

		run := 1
		for i+run < len(runes) && runes[i+run] == ch {
			run++
		}

		text, ok := dateField(t, ch, run)
		if !ok {
			out.WriteString(string(runes[i : i+run]))
		} else {
			out.WriteString(text)
			fields++
		}
		i += run
	}

	return out.String(), fields > 0
}

func dateField(t time.Time, ch rune, run int) (string, bool) {
	switch ch {
	case 'y':
		if run <= 2 {
			return t.Format("06"), true
		}
		return t.Format("2006"), true
	case 'M':
		switch run {
		case 1:
			return strconv.Itoa(int(t.Month())), true
		case 2:
			return t.Format("01"), true
		case 3:
			return t.Format("Jan"), true
		default:
			return t.Format("January"), true
		}
	case 'd':
		switch run {
		case 1:
			return strconv.Itoa(t.Day()), true
		case 2:
			return t.Format("02"), true
		case 3:
			return t.Format("Mon"), true
		default:
			return t.Format("Monday"), true
		}
	case 'H':
		if run == 1 {
			return strconv.Itoa(t.Hour()), true
		}
		return t.Format("15"), true
	case 'h':
		if run == 1 {
			return t.Format("3"), true
		}
		return t.Format("03"), true
	case 'm':
		if run == 1 {
			return strconv.Itoa(t.Minute()), true
		}
		return t.Format("04"), true
	case 's':
		if run == 1 {
			return strconv.Itoa(t.Second()), true
		}
		return t.Format("05"), true
	case 'f':
		if run > 9 {
			run = 9
		}
		digits := fmt.Sprintf("%09d", t.Nanosecond())
		return digits[:run], true
	case 't':
		designator := t.Format("PM")
		if run == 1 {
			return designator[:1], true
		}
		return designator, true
	case 'z':
		switch run {
		case 1, 2:
			return t.Format("-07"), true
		default:
			return t.Format("-07:00"), true
		}
	}
	return "", false
}
