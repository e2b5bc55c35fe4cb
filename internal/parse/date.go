package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numericDateRe   = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})$`)
)

// dateLayouts are tried in order before the numeric D/M/Y heuristics.
// Layouts without a zone are interpreted in local time.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
}

// ParseDate turns user-typed or stored date text into a time.
// Native layouts win; otherwise a D-M-Y style numeral is read month-first,
// then day-first, and the first valid calendar date is returned.
func ParseDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	m := numericDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	if len(year) != 4 {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(year)
	p1, _ := strconv.Atoi(m[1])
	p2, _ := strconv.Atoi(m[2])

	if t, ok := calendarDate(y, p1, p2); ok {
		return t, true
	}
	if t, ok := calendarDate(y, p2, p1); ok {
		return t, true
	}
	return time.Time{}, false
}

// calendarDate rejects dates that time.Date would silently normalise (31 April, 13th month).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate returns the input as YYYY-MM-DD, falling back to today's date
// when nothing can be parsed.
func NormalizeDate(input string, now time.Time) string {
	s := strings.TrimSpace(input)
	if canonicalDateRe.MatchString(s) {
		return s
	}
	if t, ok := ParseDate(s); ok {
		return FormatDate(t)
	}
	return FormatDate(now)
}

// FormatDate formats t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}
