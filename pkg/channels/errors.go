package channels

import "errors"

var (
	ErrUnsupportedChannel = errors.New("channels: unsupported channel")
	ErrNoRecipientAddress = errors.New("channels: recipient has no address for channel")
	ErrEnqueueFailed      = errors.New("channels: failed to enqueue notification")
)
