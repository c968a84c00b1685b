package directory

import "errors"

var (
	ErrNotFound     = errors.New("directory: user not found")
	ErrLookupFailed = errors.New("directory: lookup failed")
)
