package preferences_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/pg/pgtest"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
)

func TestPostgresStorage(t *testing.T) {
	pool := pgtest.Pool(t, "notification_preferences")
	store := preferences.NewPostgresStorage(pool)
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, preferences.ErrNotFound)
		assert.ErrorIs(t, store.Save(ctx, preferences.Default("nobody")), preferences.ErrNotFound)
	})

	t.Run("concurrent get or create yields one row", func(t *testing.T) {
		svc := preferences.NewService(store, preferences.WithServiceLogger(logger.Discard()))

		var wg sync.WaitGroup
		errs := make([]error, 16)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.GetOrCreate(ctx, "pg-racer")
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		var count int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM notification_preferences WHERE user_id = $1`, "pg-racer",
		).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("save and list digest enabled", func(t *testing.T) {
		p, err := store.CreateIfAbsent(ctx, preferences.Default("pg-digest"))
		require.NoError(t, err)

		p.DigestSettings.Enabled = true
		p.PushToken = "tok"
		p.TypeSettings[notifications.TypeTaskDue] = preferences.TypeSetting{
			Enabled:  true,
			Channels: []notifications.Channel{notifications.ChannelEmail},
		}
		require.NoError(t, store.Save(ctx, p))

		got, err := store.Get(ctx, "pg-digest")
		require.NoError(t, err)
		assert.Equal(t, "tok", got.PushToken)
		assert.Equal(t, p.TypeSettings, got.TypeSettings)

		list, err := store.ListDigestEnabled(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, p := range list {
			ids = append(ids, p.UserID)
		}
		assert.Contains(t, ids, "pg-digest")
		assert.NotContains(t, ids, "pg-racer")
	})
	t.Run("mark digest sent survives save", func(t *testing.T) {
		assertDigestMarkSurvivesSave(t, store)
	})
}
