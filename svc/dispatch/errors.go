package dispatch

import "errors"

var (
	ErrCreateFailed         = errors.New("dispatch: no notification could be created")
	ErrDirectoryUnavailable = errors.New("dispatch: recipient directory unavailable")
	ErrNoPushToken          = errors.New("no push token")
)
