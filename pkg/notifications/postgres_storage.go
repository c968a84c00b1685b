package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/wealthcrm/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage persists notifications in the notifications table.
type PostgresStorage struct {
	db DB
}

func NewPostgresStorage(db DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const notificationColumns = `id, type, title, message, priority, recipient_id,
	entity_type, entity_id, entity_name, action_url, action_label,
	is_read, read_at, is_archived, archived_at,
	channels_sent, delivery_status, expires_at, metadata, created_by,
	created_at, updated_at`

func (s *PostgresStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.RecipientID == "" {
		return ErrMissingRecipient
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.ChannelsSent == nil {
		n.ChannelsSent = []Channel{}
	}
	if n.DeliveryStatus == nil {
		n.DeliveryStatus = DeliveryStatus{}
	}
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22)`,
		n.ID, n.Type, n.Title, n.Message, n.Priority, n.RecipientID,
		nullString(n.EntityType), nullString(n.EntityID), nullString(n.EntityName),
		nullString(n.ActionURL), nullString(n.ActionLabel),
		n.IsRead, n.ReadAt, n.IsArchived, n.ArchivedAt,
		n.ChannelsSent, n.DeliveryStatus, n.ExpiresAt, n.Metadata, nullString(n.CreatedBy),
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, recipientID, id string) (Notification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	return scanOne(row)
}

func (s *PostgresStorage) List(ctx context.Context, recipientID string, f Filter) ([]Notification, error) {
	f = f.Normalize()

	where := []string{"recipient_id = $1", "(expires_at IS NULL OR expires_at > $2)"}
	args := []any{recipientID, f.Now}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.UnreadOnly {
		where = append(where, "NOT is_read")
	}
	if !f.IncludeArchived {
		where = append(where, "NOT is_archived")
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.Since != nil {
		add("created_at >= $%d", *f.Since)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		notificationColumns, strings.Join(where, " AND "), len(args)-1, len(args),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}

func (s *PostgresStorage) MarkRead(ctx context.Context, recipientID, id string, at time.Time) (Notification, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notifications
		SET is_read = TRUE,
			read_at = COALESCE(read_at, $3),
			updated_at = $3
		WHERE id = $1 AND recipient_id = $2
		RETURNING `+notificationColumns,
		id, recipientID, at,
	)
	return scanOne(row)
}

func (s *PostgresStorage) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE recipient_id = $1 AND NOT is_read AND NOT is_archived`,
		recipientID, at,
	)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) Archive(ctx context.Context, recipientID, id string, at time.Time) (Notification, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notifications
		SET is_archived = TRUE,
			archived_at = COALESCE(archived_at, $3),
			updated_at = $3
		WHERE id = $1 AND recipient_id = $2
		RETURNING `+notificationColumns,
		id, recipientID, at,
	)
	return scanOne(row)
}

func (s *PostgresStorage) Delete(ctx context.Context, recipientID, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) UpdateDeliveryStatus(ctx context.Context, id string, ch Channel, st ChannelStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET delivery_status = jsonb_set(delivery_status, ARRAY[$2::text], $3::jsonb, true),
			updated_at = NOW()
		WHERE id = $1`,
		id, string(ch), st,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) Stats(ctx context.Context, recipientID string, now, todayStart time.Time) (Stats, error) {
	st := newStats()

	rows, err := s.db.Query(ctx, `
		SELECT type, priority, COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
			AND NOT is_read AND NOT is_archived
			AND (expires_at IS NULL OR expires_at > $2)
		GROUP BY type, priority`,
		recipientID, now,
	)
	if err != nil {
		return Stats{}, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t     Type
			p     Priority
			count int
		)
		if err := rows.Scan(&t, &p, &count); err != nil {
			return Stats{}, errors.Join(ErrStorageFailure, err)
		}
		st.UnreadCount += count
		st.ByType[t] += count
		st.ByPriority[p] += count
		if p == PriorityUrgent {
			st.UrgentCount += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, errors.Join(ErrStorageFailure, err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
			AND created_at >= $2
			AND (expires_at IS NULL OR expires_at > $3)`,
		recipientID, todayStart, now,
	).Scan(&st.TodayCount)
	if err != nil {
		return Stats{}, errors.Join(ErrStorageFailure, err)
	}
	return st, nil
}

func scanOne(row pgx.Row) (Notification, error) {
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n                                                        Notification
		entityType, entityID, entityName, actionURL, actionLabel *string
		createdBy                                                *string
	)
	err := row.Scan(
		&n.ID, &n.Type, &n.Title, &n.Message, &n.Priority, &n.RecipientID,
		&entityType, &entityID, &entityName, &actionURL, &actionLabel,
		&n.IsRead, &n.ReadAt, &n.IsArchived, &n.ArchivedAt,
		&n.ChannelsSent, &n.DeliveryStatus, &n.ExpiresAt, &n.Metadata, &createdBy,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	n.EntityType = deref(entityType)
	n.EntityID = deref(entityID)
	n.EntityName = deref(entityName)
	n.ActionURL = deref(actionURL)
	n.ActionLabel = deref(actionLabel)
	n.CreatedBy = deref(createdBy)
	return n, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
