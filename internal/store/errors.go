package store

import "errors"

// ErrNotFound is returned when a document or subscription does not exist.
var ErrNotFound = errors.New("store: not found")
