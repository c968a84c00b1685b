package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state.
type Store interface {
	// ConsumeTokens refills the bucket for key and takes n tokens if they are
	// available. remaining is negative when they are not, and nothing is taken.
	ConsumeTokens(ctx context.Context, key string, n int, cfg Config) (remaining int, resetAt time.Time, err error)

	// Reset forgets the state of key.
	Reset(ctx context.Context, key string) error
}
