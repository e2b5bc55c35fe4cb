package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// NormalizeTimestamp converts every timestamp shape found in stored documents
// into a time.Time. Accepted shapes are native times, {seconds, nanos} pairs
// (with the underscore variants), date strings understood by ParseDate, and
// plain numbers holding epoch milliseconds. The bool is false when v is absent
// or unparseable.
func NormalizeTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseDate(t)
	case map[string]any:
		return fromSecondsPair(t)
	default:
		ms, ok := toFloat(v)
		if !ok || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
}

func fromSecondsPair(m map[string]any) (time.Time, bool) {
	secRaw, ok := firstKey(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	sec, ok := toFloat(secRaw)
	if !ok || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}, false
	}
	var nanos float64
	if nRaw, ok := firstKey(m, "nanos", "nanoseconds", "_nanoseconds"); ok {
		if n, ok := toFloat(nRaw); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			nanos = n
		}
	}
	return time.Unix(int64(sec), int64(nanos)), true
}

func firstKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		// Pair fields are coerced the way arithmetic on them would be.
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
