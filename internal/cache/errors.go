package cache

import "errors"

var (
	// ErrQuotaExceeded is returned by a store that has no room for a value.
	ErrQuotaExceeded = errors.New("cache: storage quota exceeded")
	// ErrInvalidKey is returned for keys that cannot name a stored item.
	ErrInvalidKey = errors.New("cache: invalid key")
)
