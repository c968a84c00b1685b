package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/svc/jobs"
)

func TestCleanup(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	store := notifications.NewMemoryStorage()
	ctx := context.Background()
	for _, n := range []notifications.Notification{
		{ID: "expired", RecipientID: "u1", Type: notifications.TypeTaskDue, ExpiresAt: &past},
		{ID: "live", RecipientID: "u1", Type: notifications.TypeTaskDue, ExpiresAt: &future},
		{ID: "forever", RecipientID: "u1", Type: notifications.TypeTaskDue},
	} {
		require.NoError(t, store.Create(ctx, n))
	}

	c := jobs.NewCleanup(store,
		jobs.WithCleanupLogger(logger.Discard()),
		jobs.WithCleanupClock(func() time.Time { return now }),
	)
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 2, store.Len())

	_, err := store.Get(ctx, "u1", "expired")
	assert.ErrorIs(t, err, notifications.ErrNotFound)
	_, err = store.Get(ctx, "u1", "forever")
	assert.NoError(t, err)

	// Far in the future, the row without expiry still stays.
	c = jobs.NewCleanup(store,
		jobs.WithCleanupLogger(logger.Discard()),
		jobs.WithCleanupClock(func() time.Time { return now.AddDate(10, 0, 0) }),
	)
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 1, store.Len())
}

type failingDeleter struct{ err error }

func (f failingDeleter) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, f.err
}

func TestCleanup_Failure(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	c := jobs.NewCleanup(failingDeleter{err: boom}, jobs.WithCleanupLogger(logger.Discard()))

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, jobs.ErrCleanupFailed)
	assert.ErrorIs(t, err, boom)
}
