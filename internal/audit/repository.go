package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fleetbook/fleetbook/internal/platform/db"
)

// Repository reads the audit trail.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error)
	All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

type pgRepository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &pgRepository{db: q}
}

const selectTimeline = `SELECT a.id, a.occurred_at, COALESCE(a.actor_id, 0), COALESCE(u.email, ''),
        a.action, a.entity, a.entity_id, a.meta
        FROM audit_logs a
        LEFT JOIN users u ON u.id = a.actor_id`

func where(f TimelineFilters) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("a.occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("a.occurred_at < $%d", f.To)
	}
	if f.ActorID > 0 {
		add("a.actor_id = $%d", f.ActorID)
	}
	if f.Entity != "" {
		add("a.entity = $%d", f.Entity)
	}
	if f.Action != "" {
		add("a.action = $%d", f.Action)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *pgRepository) Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	clause, args := where(f)
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY a.occurred_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		selectTimeline, clause, len(args)-1, len(args))
	return r.query(ctx, query, args...)
}

func (r *pgRepository) All(ctx context.Context, f TimelineFilters) ([]TimelineRow, error) {
	clause, args := where(f)
	return r.query(ctx, selectTimeline+clause+" ORDER BY a.occurred_at DESC, a.id DESC", args...)
}

func (r *pgRepository) query(ctx context.Context, query string, args ...any) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.ID, &out.At, &out.ActorID, &out.ActorEmail,
			&out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("audit: decode meta of %d: %w", out.ID, err)
			}
		}
		return out, nil
	})
}
