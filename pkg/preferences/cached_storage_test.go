package preferences_test

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
)

func TestCachedStorage_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := preferences.NewMemoryStorage()
	cached := preferences.NewCachedStorage(inner, client, preferences.WithCacheLogger(logger.Discard()))

	_, err := cached.Get(ctx, "u1")
	assert.ErrorIs(t, err, preferences.ErrNotFound)

	created, err := cached.CreateIfAbsent(ctx, preferences.Default("u1"))
	require.NoError(t, err)

	got, err := cached.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, got.UserID)

	got.DigestSettings.Enabled = true
	require.NoError(t, cached.Save(ctx, got))

	list, err := cached.ListDigestEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].UserID)
}

func TestCachedStorage_Redis(t *testing.T) {
	client, prefix := redisClient(t)
	ctx := context.Background()

	inner := preferences.NewMemoryStorage()
	cached := preferences.NewCachedStorage(inner, client,
		preferences.WithCachePrefix(prefix),
		preferences.WithCacheTTL(time.Minute),
		preferences.WithCacheLogger(logger.Discard()),
	)

	_, err := cached.CreateIfAbsent(ctx, preferences.Default("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.Exists(ctx, prefix+"u1").Val(), "create populates the cache")

	p, err := cached.Get(ctx, "u1")
	require.NoError(t, err)
	p.ChannelSettings.SMS = true
	require.NoError(t, cached.Save(ctx, p))
	assert.True(t, cachedPreference(t, client, prefix+"u1").ChannelSettings.SMS, "save refreshes the cache")

	require.NoError(t, cached.MarkDigestSent(ctx, "u1", time.Now()))
	assert.Equal(t, int64(0), client.Exists(ctx, prefix+"u1").Val(), "digest mark invalidates")

	got, err := cached.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.ChannelSettings.SMS)
	assert.NotNil(t, got.LastDigestAt)
	assert.Equal(t, int64(1), client.Exists(ctx, prefix+"u1").Val(), "read repopulates")

	require.NoError(t, client.Del(ctx, prefix+"u1").Err())
}

// pausingStorage blocks the first Get after it has read the row, until
// release is closed.
type pausingStorage struct {
	preferences.Storage
	paused  atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStorage) Get(ctx context.Context, userID string) (preferences.Preference, error) {
	p, err := s.Storage.Get(ctx, userID)
	if s.paused.CompareAndSwap(false, true) {
		close(s.read)
		<-s.release
	}
	return p, err
}

func TestCachedStorage_SlowReaderDoesNotOverwriteUpdate(t *testing.T) {
	client, prefix := redisClient(t)
	ctx := context.Background()

	inner := preferences.NewMemoryStorage()
	_, err := inner.CreateIfAbsent(ctx, preferences.Default("u-race"))
	require.NoError(t, err)

	slow := &pausingStorage{Storage: inner, read: make(chan struct{}), release: make(chan struct{})}
	cached := preferences.NewCachedStorage(slow, client,
		preferences.WithCachePrefix(prefix),
		preferences.WithCacheTTL(time.Minute),
		preferences.WithCacheLogger(logger.Discard()),
	)
	t.Cleanup(func() { _ = client.Del(context.Background(), prefix+"u-race").Err() })

	done := make(chan error, 1)
	go func() {
		_, err := cached.Get(ctx, "u-race")
		done <- err
	}()
	<-slow.read

	svc := preferences.NewService(cached, preferences.WithServiceLogger(logger.Discard()))
	_, err = svc.Update(ctx, "u-race", preferences.Patch{
		TypeSettings: map[notifications.Type]preferences.TypeSetting{
			notifications.TypeTaskDue: {Enabled: false},
		},
	})
	require.NoError(t, err)

	close(slow.release)
	require.NoError(t, <-done)

	setting, ok := cachedPreference(t, client, prefix+"u-race").TypeSettings[notifications.TypeTaskDue]
	require.True(t, ok, "cache holds the updated row")
	assert.False(t, setting.Enabled)

	got, err := cached.Get(ctx, "u-race")
	require.NoError(t, err)
	assert.False(t, got.TypeSettings[notifications.TypeTaskDue].Enabled)
}

func redisClient(t *testing.T) (*goredis.Client, string) {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client, "test:preferences:" + time.Now().Format("150405.000000") + ":"
}

func cachedPreference(t *testing.T, client *goredis.Client, key string) preferences.Preference {
	t.Helper()
	raw, err := client.Get(context.Background(), key).Bytes()
	require.NoError(t, err)
	var p preferences.Preference
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}
