package notifications

import (
	"context"
	"time"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Storage persists notifications. Every recipient-scoped method treats a row
// owned by another recipient exactly like a missing row.
type Storage interface {
	// Create persists a new notification. ID and RecipientID are required.
	Create(ctx context.Context, n Notification) error

	// Get returns the notification when it belongs to recipientID.
	Get(ctx context.Context, recipientID, id string) (Notification, error)

	// List returns non-expired notifications for recipientID, newest first.
	List(ctx context.Context, recipientID string, f Filter) ([]Notification, error)

	// MarkRead sets IsRead and ReadAt (first read wins) and returns the row.
	MarkRead(ctx context.Context, recipientID, id string, at time.Time) (Notification, error)

	// MarkAllRead marks every unread, non-archived row of recipientID and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)

	// Archive sets IsArchived and ArchivedAt and returns the row. Read state is untouched.
	Archive(ctx context.Context, recipientID, id string, at time.Time) (Notification, error)

	// Delete removes the row.
	Delete(ctx context.Context, recipientID, id string) error

	// UpdateDeliveryStatus replaces the status entry of one channel.
	UpdateDeliveryStatus(ctx context.Context, id string, ch Channel, st ChannelStatus) error

	// DeleteExpired removes rows whose ExpiresAt is set and before now.
	// Rows without ExpiresAt are never touched.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Stats aggregates counters for recipientID; see Stats for semantics.
	Stats(ctx context.Context, recipientID string, now, todayStart time.Time) (Stats, error)
}

// Filter narrows List results. The zero value lists the first page of
// unarchived notifications.
type Filter struct {
	UnreadOnly      bool       `json:"unread_only"`
	Type            Type       `json:"type,omitempty"`
	Priority        Priority   `json:"priority,omitempty"`
	EntityType      string     `json:"entity_type,omitempty"`
	IncludeArchived bool       `json:"include_archived"`
	Since           *time.Time `json:"since,omitempty"` // created at or after
	Limit           int        `json:"limit"`
	Offset          int        `json:"offset"`
	Now             time.Time  `json:"-"` // reference time for expiry; zero means time.Now()
}

// Normalize applies the paging defaults and bounds.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Now.IsZero() {
		f.Now = time.Now()
	}
	return f
}

// Match reports whether n passes every predicate of f except paging.
func (f Filter) Match(n Notification) bool {
	switch {
	case n.IsExpired(f.Now):
		return false
	case f.UnreadOnly && n.IsRead:
		return false
	case !f.IncludeArchived && n.IsArchived:
		return false
	case f.Type != "" && n.Type != f.Type:
		return false
	case f.Priority != "" && n.Priority != f.Priority:
		return false
	case f.EntityType != "" && n.EntityType != f.EntityType:
		return false
	case f.Since != nil && n.CreatedAt.Before(*f.Since):
		return false
	}
	return true
}
