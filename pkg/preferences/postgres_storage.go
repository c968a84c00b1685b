package preferences

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// DB is the subset of *pgxpool.Pool used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage persists preferences in notification_preferences, keyed
// by user_id.
type PostgresStorage struct {
	db DB
}

func NewPostgresStorage(db DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// insertColumns excludes last_digest_at, which only MarkDigestSent writes.
const insertColumns = `user_id, channel_settings, type_settings, quiet_hours,
	digest_settings, push_token, push_token_updated_at, created_at, updated_at`

const preferenceColumns = insertColumns + `, last_digest_at`

func (s *PostgresStorage) Get(ctx context.Context, userID string) (Preference, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`,
		userID,
	)
	p, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preference{}, ErrNotFound
		}
		return Preference{}, errors.Join(ErrStorageFailure, err)
	}
	return p, nil
}

// CreateIfAbsent relies on the user_id primary key: the losing inserts of a
// race do nothing and every caller then reads the winner's row.
func (s *PostgresStorage) CreateIfAbsent(ctx context.Context, p Preference) (Preference, error) {
	if p.UserID == "" {
		return Preference{}, ErrMissingUserID
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_preferences (`+insertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING`,
		preferenceArgs(p)...,
	)
	if err != nil {
		return Preference{}, errors.Join(ErrStorageFailure, err)
	}
	return s.Get(ctx, p.UserID)
}

func (s *PostgresStorage) Save(ctx context.Context, p Preference) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE notification_preferences
		SET channel_settings = $2,
			type_settings = $3,
			quiet_hours = $4,
			digest_settings = $5,
			push_token = $6,
			push_token_updated_at = $7,
			updated_at = $8
		WHERE user_id = $1`,
		append(preferenceArgs(p)[:7], p.UpdatedAt)...,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) ListDigestEnabled(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+preferenceColumns+`
		FROM notification_preferences
		WHERE (digest_settings ->> 'enabled')::boolean
		ORDER BY user_id`,
	)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	out := []Preference{}
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}

func (s *PostgresStorage) MarkDigestSent(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notification_preferences SET last_digest_at = $2 WHERE user_id = $1`,
		userID, at,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// preferenceArgs orders values as insertColumns.
func preferenceArgs(p Preference) []any {
	typeSettings := p.TypeSettings
	if typeSettings == nil {
		typeSettings = map[notifications.Type]TypeSetting{}
	}
	var pushToken *string
	if p.PushToken != "" {
		pushToken = &p.PushToken
	}
	return []any{
		p.UserID, p.ChannelSettings, typeSettings, p.QuietHours, p.DigestSettings,
		pushToken, p.PushTokenUpdatedAt, p.CreatedAt, p.UpdatedAt,
	}
}

func scanPreference(row pgx.Row) (Preference, error) {
	var (
		p         Preference
		pushToken *string
	)
	err := row.Scan(
		&p.UserID, &p.ChannelSettings, &p.TypeSettings, &p.QuietHours, &p.DigestSettings,
		&pushToken, &p.PushTokenUpdatedAt, &p.CreatedAt, &p.UpdatedAt, &p.LastDigestAt,
	)
	if err != nil {
		return Preference{}, err
	}
	if pushToken != nil {
		p.PushToken = *pushToken
	}
	return p, nil
}
