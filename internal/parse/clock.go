package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	canonicalTimeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
	meridiemRe      = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(AM|PM)$`)
	nonDigitRe      = regexp.MustCompile(`[^0-9]`)
	leadingIntRe    = regexp.MustCompile(`^\s*([+-]?\d+)`)
)

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.000",
}

// ParseTime normalises a time of day to 24-hour "HH:MM". Input that matches
// none of the accepted shapes yields the current local time.
func ParseTime(input string, now time.Time) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return FormatClock(now)
	}
	if canonicalTimeRe.MatchString(s) {
		return s
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatClock(t)
		}
	}

	if m := meridiemRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		period := strings.ToUpper(m[4])
		if period == "PM" && hours < 12 {
			hours += 12
		}
		if period == "AM" && hours == 12 {
			hours = 0
		}
		return fmt.Sprintf("%02d:%s", hours, m[2])
	}

	parts := strings.Split(s, ":")
	if len(parts) >= 2 {
		hours := "00"
		if lm := leadingIntRe.FindStringSubmatch(parts[0]); lm != nil {
			if h, err := strconv.Atoi(lm[1]); err == nil {
				hours = fmt.Sprintf("%02d", min(max(h, 0), 23))
			}
		}
		minutes := "00"
		if digits := nonDigitRe.ReplaceAllString(parts[1], ""); digits != "" {
			if len(digits) > 2 {
				digits = digits[:2]
			}
			minutes = strings.Repeat("0", 2-len(digits)) + digits
		}
		return hours + ":" + minutes
	}

	return FormatClock(now)
}

// FormatClock formats the wall-clock part of t as "HH:MM".
func FormatClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
