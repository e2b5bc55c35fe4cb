package controller

import (
	"sort"
	"time"

	"instrupro-backend/internal/model"
	"instrupro-backend/internal/parse"
)

// Order is the sort direction of a list screen.
type Order string

const (
	Descending Order = "desc"
	Ascending  Order = "asc"
)

// ParseOrder maps user input to an Order, defaulting to Descending.
func ParseOrder(s string) Order {
	if Order(s) == Ascending {
		return Ascending
	}
	return Descending
}

// SortByBestTimestamp orders items by the timestamp returned by key. Items
// without a resolvable timestamp go last in either direction; ties keep their
// input order.
func SortByBestTimestamp[T any](items []T, key func(T) (time.Time, bool), order Order) {
	type keyed struct {
		ts time.Time
		ok bool
	}
	keys := make([]keyed, len(items))
	for i, it := range items {
		ts, ok := key(it)
		keys[i] = keyed{ts: ts, ok: ok}
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		switch {
		case !ka.ok || !kb.ok:
			return ka.ok && !kb.ok
		case order == Ascending:
			return ka.ts.Before(kb.ts)
		default:
			return ka.ts.After(kb.ts)
		}
	})

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

// PLCRequestTimestamp is the first resolvable of updatedAt, createdAt and
// the request date.
func PLCRequestTimestamp(r model.PLCRequest) (time.Time, bool) {
	if r.UpdatedAt != nil && !r.UpdatedAt.IsZero() {
		return *r.UpdatedAt, true
	}
	if r.CreatedAt != nil && !r.CreatedAt.IsZero() {
		return *r.CreatedAt, true
	}
	return parse.ParseDate(r.Date)
}

// SessionTimestamp is the creation time of a calibration session.
func SessionTimestamp(s model.CalibrationSession) (time.Time, bool) {
	if s.CreatedAt == nil || s.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return *s.CreatedAt, true
}
