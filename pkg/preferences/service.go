package preferences

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
)

// Service is the get-or-create and update entry point over a Storage.
type Service struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock overrides time.Now, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the user's preference, creating the defaults on first
// access. Concurrent first calls for one user yield a single stored row.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (Preference, error) {
	if userID == "" {
		return Preference{}, ErrMissingUserID
	}

	p, err := s.storage.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Preference{}, err
	}

	now := s.now()
	def := Default(userID)
	def.CreatedAt, def.UpdatedAt = now, now

	p, err = s.storage.CreateIfAbsent(ctx, def)
	if err != nil {
		return Preference{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification preferences initialised", logger.UserID(userID))
	return p, nil
}

// Update validates and applies patch to the user's preference. Setting a
// push token stamps PushTokenUpdatedAt.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (Preference, error) {
	if err := patch.Validate(); err != nil {
		return Preference{}, err
	}

	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return Preference{}, err
	}

	now := s.now()
	p = patch.apply(p)
	if patch.PushToken != nil {
		p.PushToken = *patch.PushToken
		p.PushTokenUpdatedAt = &now
	}
	p.UpdatedAt = now

	if err := s.storage.Save(ctx, p); err != nil {
		return Preference{}, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "notification preferences updated", logger.UserID(userID))
	return p, nil
}
