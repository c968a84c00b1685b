package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
)

const (
	DefaultCacheTTL    = 10 * time.Minute
	DefaultCachePrefix = "notification:preferences:"
)

// CachedStorage is a read-through Redis cache in front of another Storage.
// Redis failures are logged and the call falls back to the wrapped storage,
// so the cache can never make a preference unavailable.
type CachedStorage struct {
	next   Storage
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// CachedStorageOption configures a CachedStorage.
type CachedStorageOption func(*CachedStorage)

func WithCacheTTL(ttl time.Duration) CachedStorageOption {
	return func(s *CachedStorage) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCachePrefix(prefix string) CachedStorageOption {
	return func(s *CachedStorage) { s.prefix = prefix }
}

func WithCacheLogger(l *slog.Logger) CachedStorageOption {
	return func(s *CachedStorage) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewCachedStorage(next Storage, client redis.Cmdable, opts ...CachedStorageOption) *CachedStorage {
	s := &CachedStorage{
		next:   next,
		client: client,
		ttl:    DefaultCacheTTL,
		prefix: DefaultCachePrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedStorage) Get(ctx context.Context, userID string) (Preference, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	switch {
	case err == nil:
		var p Preference
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "discarding corrupt cached preference", logger.UserID(userID))
	case !errors.Is(err, redis.Nil):
		s.logger.LogAttrs(ctx, slog.LevelWarn, "preference cache read failed",
			logger.UserID(userID),
			logger.Error(err),
		)
	}

	p, err := s.next.Get(ctx, userID)
	if err != nil {
		return Preference{}, err
	}
	s.fill(ctx, p)
	return p, nil
}

func (s *CachedStorage) CreateIfAbsent(ctx context.Context, p Preference) (Preference, error) {
	stored, err := s.next.CreateIfAbsent(ctx, p)
	if err != nil {
		return Preference{}, err
	}
	s.fill(ctx, stored)
	return stored, nil
}

// Save writes through and then overwrites the cached copy. Read-through fills
// use SETNX, so a reader holding a row read before this write cannot replace
// the new value.
func (s *CachedStorage) Save(ctx context.Context, p Preference) error {
	if err := s.next.Save(ctx, p); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err == nil {
		err = s.client.Set(ctx, s.key(p.UserID), raw, s.ttl).Err()
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "preference cache refresh failed",
			logger.UserID(p.UserID),
			logger.Error(err),
		)
		s.invalidate(ctx, p.UserID)
	}
	return nil
}

func (s *CachedStorage) ListDigestEnabled(ctx context.Context) ([]Preference, error) {
	return s.next.ListDigestEnabled(ctx)
}

func (s *CachedStorage) MarkDigestSent(ctx context.Context, userID string, at time.Time) error {
	if err := s.next.MarkDigestSent(ctx, userID, at); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// fill caches a value read from the wrapped storage unless a newer one is
// already there.
func (s *CachedStorage) fill(ctx context.Context, p Preference) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.client.SetNX(ctx, s.key(p.UserID), raw, s.ttl).Err(); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "preference cache write failed",
			logger.UserID(p.UserID),
			logger.Error(err),
		)
	}
}

func (s *CachedStorage) invalidate(ctx context.Context, userID string) {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "preference cache invalidation failed",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}

func (s *CachedStorage) key(userID string) string { return s.prefix + userID }
