package preferences

import (
	"context"
	"time"
)

// Storage persists one Preference per user.
type Storage interface {
	// Get returns ErrNotFound when the user has no row yet.
	Get(ctx context.Context, userID string) (Preference, error)

	// CreateIfAbsent inserts p unless a row for p.UserID exists, and returns
	// the stored row either way. It must be atomic: concurrent callers for the
	// same user all observe the same single row.
	CreateIfAbsent(ctx context.Context, p Preference) (Preference, error)

	// Save overwrites an existing row; ErrNotFound when there is none.
	Save(ctx context.Context, p Preference) error

	// ListDigestEnabled returns every preference with digests switched on.
	ListDigestEnabled(ctx context.Context) ([]Preference, error)

	// MarkDigestSent records when the user's last digest went out. Save never
	// touches this field, so a settings update cannot roll it back.
	MarkDigestSent(ctx context.Context, userID string, at time.Time) error
}
