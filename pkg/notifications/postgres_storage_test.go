package notifications_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/pg/pgtest"
)

func TestPostgresStorage(t *testing.T) {
	pool := pgtest.Pool(t, "notifications")
	s := notifications.NewPostgresStorage(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	newNotification := func(recipient string, age time.Duration) notifications.Notification {
		return notifications.Notification{
			ID:             uuid.NewString(),
			Type:           notifications.TypeTaskDue,
			Title:          "Task due",
			Message:        "Quarterly review",
			Priority:       notifications.PriorityNormal,
			RecipientID:    recipient,
			EntityType:     "task",
			EntityID:       "t-1",
			ChannelsSent:   []notifications.Channel{notifications.ChannelInApp, notifications.ChannelEmail},
			DeliveryStatus: notifications.DeliveryStatus{notifications.ChannelEmail: {}},
			Metadata:       map[string]any{"source": "test"},
			CreatedAt:      now.Add(-age),
		}
	}

	t.Run("create and get round trip", func(t *testing.T) {
		n := newNotification("pg-u1", 0)
		require.NoError(t, s.Create(ctx, n))
		assert.ErrorIs(t, s.Create(ctx, n), notifications.ErrDuplicateID)

		got, err := s.Get(ctx, "pg-u1", n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.Title, got.Title)
		assert.Equal(t, "task", got.EntityType)
		assert.Empty(t, got.ActionURL)
		assert.Empty(t, got.CreatedBy)
		assert.Equal(t, n.ChannelsSent, got.ChannelsSent)
		assert.Equal(t, "test", got.Metadata["source"])

		_, err = s.Get(ctx, "pg-u2", n.ID)
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("mutations are ownership scoped", func(t *testing.T) {
		n := newNotification("pg-u3", 0)
		require.NoError(t, s.Create(ctx, n))

		_, err := s.MarkRead(ctx, "pg-other", n.ID, now)
		assert.ErrorIs(t, err, notifications.ErrNotFound)
		_, err = s.Archive(ctx, "pg-other", n.ID, now)
		assert.ErrorIs(t, err, notifications.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "pg-other", n.ID), notifications.ErrNotFound)

		read, err := s.MarkRead(ctx, "pg-u3", n.ID, now)
		require.NoError(t, err)
		assert.True(t, read.IsRead)
		assert.False(t, read.IsArchived)

		archived, err := s.Archive(ctx, "pg-u3", n.ID, now)
		require.NoError(t, err)
		assert.True(t, archived.IsArchived)
		assert.True(t, archived.IsRead)

		require.NoError(t, s.Delete(ctx, "pg-u3", n.ID))
		_, err = s.Get(ctx, "pg-u3", n.ID)
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("delivery status keeps channels sent", func(t *testing.T) {
		n := newNotification("pg-u4", 0)
		require.NoError(t, s.Create(ctx, n))

		require.NoError(t, s.UpdateDeliveryStatus(ctx, n.ID, notifications.ChannelEmail, notifications.ChannelStatus{
			Sent:   true,
			SentAt: &now,
		}))
		got, err := s.Get(ctx, "pg-u4", n.ID)
		require.NoError(t, err)
		assert.True(t, got.DeliveryStatus[notifications.ChannelEmail].Sent)
		assert.Equal(t, n.ChannelsSent, got.ChannelsSent)
	})

	t.Run("list mark all read and stats", func(t *testing.T) {
		urgent := newNotification("pg-u5", time.Minute)
		urgent.Priority = notifications.PriorityUrgent
		past := now.Add(-time.Second)
		expired := newNotification("pg-u5", 2*time.Minute)
		expired.ExpiresAt = &past
		for _, n := range []notifications.Notification{newNotification("pg-u5", 0), urgent, expired} {
			require.NoError(t, s.Create(ctx, n))
		}

		list, err := s.List(ctx, "pg-u5", notifications.Filter{Now: now})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

		st, err := s.Stats(ctx, "pg-u5", now, notifications.StartOfDay(now.Add(-time.Hour), time.UTC))
		require.NoError(t, err)
		assert.Equal(t, 2, st.UnreadCount)
		assert.Equal(t, 1, st.UrgentCount)

		count, err := s.MarkAllRead(ctx, "pg-u5", now)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		unread, err := s.List(ctx, "pg-u5", notifications.Filter{UnreadOnly: true, Now: now})
		require.NoError(t, err)
		assert.Empty(t, unread)
	})

	t.Run("delete expired leaves rows without expiry", func(t *testing.T) {
		past := now.Add(-time.Hour)
		expired := newNotification("pg-u6", 0)
		expired.ExpiresAt = &past
		keep := newNotification("pg-u6", 0)
		require.NoError(t, s.Create(ctx, expired))
		require.NoError(t, s.Create(ctx, keep))

		_, err := s.DeleteExpired(ctx, now)
		require.NoError(t, err)

		_, err = s.Get(ctx, "pg-u6", expired.ID)
		assert.ErrorIs(t, err, notifications.ErrNotFound)
		_, err = s.Get(ctx, "pg-u6", keep.ID)
		assert.NoError(t, err)
	})
}
