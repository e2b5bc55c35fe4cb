package controller

import "errors"

var (
	// ErrValidation marks input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownEquipment is returned for equipment outside the configured list.
	ErrUnknownEquipment = errors.New("unknown equipment")
	// ErrNotFound is returned for a request, session or tag that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCancelled is returned when cancelling a cancelled request.
	ErrAlreadyCancelled = errors.New("request is already cancelled")
	// ErrRemote wraps failures of the record store or the webhook.
	ErrRemote = errors.New("remote store failure")
)
