package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Query holds the resolved filter parameters for a timeline fetch.
type Query struct {
	From   pgtype.Timestamptz
	To     pgtype.Timestamptz
	Actor  pgtype.Text
	Entity pgtype.Text
	Action pgtype.Text
	Offset int32
	Limit  int32
}

// Repository provides read access to audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, q Query) ([]Entry, error)
	TimelineAll(ctx context.Context, q Query) ([]Entry, error)
}

// PGRepository reads audit rows straight from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineBase = `
SELECT a.occurred_at, a.actor_id, COALESCE(u.name, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id
WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR a.occurred_at <= $2)
  AND ($3::text IS NULL OR u.name ILIKE '%' || $3 || '%')
  AND ($4::text IS NULL OR a.entity = $4)
  AND ($5::text IS NULL OR a.action = $5)
ORDER BY a.occurred_at DESC`

func (r *PGRepository) TimelineWindow(ctx context.Context, q Query) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineBase+" OFFSET $6 LIMIT $7",
		q.From, q.To, q.Actor, q.Entity, q.Action, q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PGRepository) TimelineAll(ctx context.Context, q Query) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineBase,
		q.From, q.To, q.Actor, q.Entity, q.Action)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows rowScanner) ([]Entry, error) {
	out := make([]Entry, 0)
	for rows.Next() {
		var (
			at       pgtype.Timestamptz
			actorID  int64
			name     string
			action   string
			entity   string
			entityID string
			metaJSON []byte
		)
		if err := rows.Scan(&at, &actorID, &name, &action, &entity, &entityID, &metaJSON); err != nil {
			return nil, err
		}
		entry := Entry{
			ActorID:   actorID,
			ActorName: name,
			Action:    action,
			Entity:    entity,
			EntityID:  entityID,
		}
		if at.Valid {
			entry.At = at.Time
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &entry.Meta)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
