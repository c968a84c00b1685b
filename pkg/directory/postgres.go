package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used here.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres reads the CRM users and team_members tables.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

const resolveQuery = `
SELECT u.id
FROM users u
WHERE u.is_active
  AND (
        $1::boolean
     OR u.role = ANY($2::text[])
     OR u.id = ANY($3::text[])
     OR EXISTS (
            SELECT 1 FROM team_members tm
            WHERE tm.user_id = u.id AND tm.team_id = ANY($4::text[])
        )
  )
ORDER BY u.id`

// Resolve returns the ids of active users matching the filter, sorted.
func (p *Postgres) Resolve(ctx context.Context, f Filter) ([]string, error) {
	rows, err := p.db.Query(ctx, resolveQuery, f.IsEmpty(), orEmpty(f.Roles), orEmpty(f.UserIDs), orEmpty(f.TeamIDs))
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	return ids, nil
}

// Email returns the address of an active user.
func (p *Postgres) Email(ctx context.Context, userID string) (string, error) {
	var addr string
	err := p.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1 AND is_active`, userID).Scan(&addr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errors.Join(ErrLookupFailed, err)
	}
	return addr, nil
}

// Upsert writes a user and replaces their team memberships. Standalone
// deployments and tests use it to seed the directory.
func (p *Postgres) Upsert(ctx context.Context, u User) error {
	if _, err := p.db.Exec(ctx, `
		INSERT INTO users (id, email, role, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role, is_active = EXCLUDED.is_active`,
		u.ID, u.Email, u.Role, u.Active,
	); err != nil {
		return errors.Join(ErrLookupFailed, err)
	}

	if _, err := p.db.Exec(ctx, `DELETE FROM team_members WHERE user_id = $1`, u.ID); err != nil {
		return errors.Join(ErrLookupFailed, err)
	}
	for _, team := range u.TeamIDs {
		if _, err := p.db.Exec(ctx, `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, team, u.ID); err != nil {
			return errors.Join(ErrLookupFailed, err)
		}
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
