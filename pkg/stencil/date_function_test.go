package stencil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	testDate := time.Date(2024, time.March, 5, 14, 7, 9, 123456789, time.UTC)

	tests := []struct {
		pattern string
		want    string
		ok      bool
	}{
		{"yyyy-MM-dd", "2024-03-05", true},
		{"yy/M/d", "24/3/5", true},
		{"MMM d, yyyy", "Mar 5, 2024", true},
		{"ddd dd MMMM", "Tue 05 March", true},
		{"HH:mm:ss", "14:07:09", true},
		{"H:m:s", "14:7:9", true},
		{"h:mm tt", "2:07 PM", true},
		{"hh t", "02 P", true},
		{"ss.fff", "09.123", true},
		{"z", "+00", true},
		{"zzz", "+00:00", true},
		{"'Day' d", "Day 5", true},
		{`\d d`, "d 5", true},
		{"yyyy年M月", "2024年3月", true},
		{"!!", "!!", false},
		{"'only quoted'", "only quoted", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, ok := formatDate(testDate, tt.pattern)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05T10:30:00Z", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), true},
		{"2024-03-05 10:30", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), true},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"25/12/2024", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), true},
		{"5.3.2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"March 5, 2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{" 2024-03-05 ", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
