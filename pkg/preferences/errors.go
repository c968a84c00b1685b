package preferences

import "errors"

var (
	ErrNotFound       = errors.New("preferences: preference not found")
	ErrMissingUserID  = errors.New("preferences: user id is required")
	ErrStorageFailure = errors.New("preferences: storage failure")
	ErrInvalidTiers   = errors.New("preferences: invalid severity tier table")
)
