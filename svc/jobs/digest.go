package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
)

// DigestSubscribers lists users with digests enabled and records sends.
type DigestSubscribers interface {
	ListDigestEnabled(ctx context.Context) ([]preferences.Preference, error)
	MarkDigestSent(ctx context.Context, userID string, at time.Time) error
}

// NotificationLister reads a user's notifications.
type NotificationLister interface {
	List(ctx context.Context, recipientID string, f notifications.Filter) ([]notifications.Notification, error)
}

// Digest is the summary handed to the composer for one user.
type Digest struct {
	UserID        string
	Frequency     preferences.Frequency
	Since         time.Time
	Until         time.Time
	Notifications []notifications.Notification
}

// DigestComposer renders and sends a digest.
type DigestComposer interface {
	SendDigest(ctx context.Context, d Digest) error
}

// DigestJob sends due digests. It is meant to tick hourly; a user is due on
// the first tick within preferences.DigestGrace after their digest time, and
// the recorded send keeps later ticks in the same slot from repeating it.
type DigestJob struct {
	subscribers DigestSubscribers
	store       NotificationLister
	composer    DigestComposer
	logger      *slog.Logger
	now         func() time.Time
}

type DigestOption func(*DigestJob)

func WithDigestLogger(l *slog.Logger) DigestOption {
	return func(d *DigestJob) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDigestClock(now func() time.Time) DigestOption {
	return func(d *DigestJob) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDigestJob(subscribers DigestSubscribers, store NotificationLister, composer DigestComposer, opts ...DigestOption) *DigestJob {
	d := &DigestJob{
		subscribers: subscribers,
		store:       store,
		composer:    composer,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run is a JobFunc. Per-user failures are logged and skipped; only failing
// to list subscribers fails the run.
func (d *DigestJob) Run(ctx context.Context) error {
	now := d.now()

	prefs, err := d.subscribers.ListDigestEnabled(ctx)
	if err != nil {
		return errors.Join(ErrDigestFailed, err)
	}

	sent, failed := 0, 0
	for _, p := range prefs {
		if !preferences.IsDigestDue(p, now) {
			continue
		}
		ok, err := d.sendOne(ctx, p, now)
		if err != nil {
			failed++
			d.logger.LogAttrs(ctx, slog.LevelWarn, "digest failed for user",
				logger.Job(JobDigest),
				logger.UserID(p.UserID),
				logger.Error(err),
			)
			continue
		}
		if ok {
			sent++
		}
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "digest run finished",
		logger.Job(JobDigest),
		logger.Count(sent),
		slog.Int("failed", failed),
	)
	return nil
}

// sendOne covers everything since the previous digest. Archived
// notifications are left out: the user has already dealt with them.
func (d *DigestJob) sendOne(ctx context.Context, p preferences.Preference, now time.Time) (bool, error) {
	since := preferences.DigestSince(p, now)

	items, err := d.collect(ctx, p.UserID, since, now)
	if err != nil {
		return false, err
	}
	if len(items) > 0 {
		err = d.composer.SendDigest(ctx, Digest{
			UserID:        p.UserID,
			Frequency:     p.DigestSettings.Frequency,
			Since:         since,
			Until:         now,
			Notifications: items,
		})
		if err != nil {
			return false, err
		}
	}

	// An empty slot is recorded too, so the next digest starts from now.
	if err := d.subscribers.MarkDigestSent(ctx, p.UserID, now); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to record digest send",
			logger.Job(JobDigest),
			logger.UserID(p.UserID),
			logger.Error(err),
		)
	}
	return len(items) > 0, nil
}

// collect pages through the user's notifications created in [since, until].
// Rows inserted while paging shift later pages, hence the ID set.
func (d *DigestJob) collect(ctx context.Context, userID string, since, until time.Time) ([]notifications.Notification, error) {
	var out []notifications.Notification
	seen := make(map[string]struct{})
	for offset := 0; ; offset += notifications.MaxListLimit {
		page, err := d.store.List(ctx, userID, notifications.Filter{
			Since:  &since,
			Limit:  notifications.MaxListLimit,
			Offset: offset,
			Now:    until,
		})
		if err != nil {
			return nil, err
		}
		for _, n := range page {
			if _, dup := seen[n.ID]; dup || n.CreatedAt.After(until) {
				continue
			}
			seen[n.ID] = struct{}{}
			out = append(out, n)
		}
		if len(page) < notifications.MaxListLimit {
			return out, nil
		}
	}
}
