package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
)

var (
	// ErrNameTaken is returned when another item already uses the name.
	ErrNameTaken = fmt.Errorf("%w: item name already exists", shared.ErrDuplicate)
	// ErrInUse is returned when invoice lines still reference the item.
	ErrInUse = fmt.Errorf("%w: item is used by invoices", shared.ErrConflict)
)

// Repository persists items.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const itemColumns = `id, name, price, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Item{}, fmt.Errorf("%w: item", shared.ErrNotFound)
	case shared.IsUniqueViolation(err):
		return Item{}, ErrNameTaken
	}
	return it, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	where := ""
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = "WHERE name ILIKE $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM items "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM items %s ORDER BY name LIMIT $%d OFFSET $%d`,
		itemColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	return scanItem(r.db.QueryRow(ctx, `INSERT INTO items (name, price) VALUES ($1, $2) RETURNING `+itemColumns,
		item.Name, item.Price))
}

func (r *repository) Update(ctx context.Context, item Item) (Item, error) {
	return scanItem(r.db.QueryRow(ctx, `UPDATE items SET name = $2, price = $3, updated_at = NOW()
        WHERE id = $1 RETURNING `+itemColumns, item.ID, item.Name, item.Price))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if shared.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item", shared.ErrNotFound)
	}
	return nil
}
