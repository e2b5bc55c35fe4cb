package parse

import (
	"regexp"
	"strconv"
)

var decimalInputRe = regexp.MustCompile(`^-?\d*\.?\d*$`)

// AcceptDecimal reports whether s is a valid partially typed signed decimal:
// empty, a lone "-", or digits with at most one point.
func AcceptDecimal(s string) bool {
	return s == "" || s == "-" || decimalInputRe.MatchString(s)
}

// FilterDecimal is the keystroke filter for decimal fields. A rejected value
// leaves the field as it was.
func FilterDecimal(current, typed string) string {
	if AcceptDecimal(typed) {
		return typed
	}
	return current
}

// ParseDecimal returns the numeric value of a decimal field. Fields that are
// still empty or only hold a sign or a point are reported as absent.
func ParseDecimal(s string) (float64, bool) {
	if s == "" || s == "-" || s == "." || s == "-." {
		return 0, false
	}
	if !decimalInputRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
