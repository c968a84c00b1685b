package notifications

import "errors"

var (
	// ErrNotFound covers both missing rows and rows owned by someone else.
	ErrNotFound         = errors.New("notifications: notification not found")
	ErrMissingID        = errors.New("notifications: id is required")
	ErrMissingRecipient = errors.New("notifications: recipient id is required")
	ErrDuplicateID      = errors.New("notifications: duplicate id")
	ErrStorageFailure   = errors.New("notifications: storage failure")
)
