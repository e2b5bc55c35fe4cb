package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var daysAgoRe = regexp.MustCompile(`^(\d+) days? ago$`)

// RelativeDay labels date relative to now by calendar day, not elapsed hours.
// Both sides are truncated to local midnight first.
func RelativeDay(date, now time.Time) string {
	d := midnight(date.In(time.Local))
	today := midnight(now.In(time.Local))
	// Rounding absorbs the 23/25 hour days around DST changes.
	diff := int(math.Round(today.Sub(d).Hours() / 24))

	switch {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "1d ago"
	case diff > 1:
		return fmt.Sprintf("%dd ago", diff)
	case diff == -1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("%dd ahead", -diff)
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysSince is the dashboard's "days since last calibration" label. It counts
// whole elapsed days and returns "N/A" when there is no timestamp.
func DaysSince(ts *time.Time, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return "N/A"
	}
	elapsed := now.Sub(*ts)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	days := int(elapsed / (24 * time.Hour))
	switch days {
	case 0:
		return "Today"
	case 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// Freshness buckets a DaysSince label for the dashboard colour coding.
func Freshness(label string) string {
	if label == "N/A" {
		return "no-data"
	}
	if label == "Today" {
		return "recent"
	}
	m := daysAgoRe.FindStringSubmatch(label)
	if m == nil {
		return "moderate"
	}
	days, _ := strconv.Atoi(m[1])
	switch {
	case days <= 7:
		return "recent"
	case days <= 30:
		return "moderate"
	case days <= 90:
		return "old"
	default:
		return "very-old"
	}
}
