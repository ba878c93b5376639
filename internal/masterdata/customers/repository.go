package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// ErrInUse is returned when invoices or payments still reference the customer.
var ErrInUse = fmt.Errorf("%w: customer has invoices or payments", shared.ErrConflict)

// Repository persists customers.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const customerColumns = `id, name, phone, balance, status, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Balance, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Debtors {
		conditions = append(conditions, "balance > 0")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "name, id"
	if filter.Debtors {
		order = "balance DESC, id"
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		customerColumns, where, order, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `INSERT INTO customers (name, phone, status, notes)
        VALUES ($1, $2, $3, $4) RETURNING `+customerColumns,
		c.Name, c.Phone, c.Status, c.Notes))
}

func (r *repository) Update(ctx context.Context, c Customer) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `UPDATE customers
        SET name = $2, phone = $3, status = $4, notes = $5, updated_at = NOW()
        WHERE id = $1 RETURNING `+customerColumns,
		c.ID, c.Name, c.Phone, c.Status, c.Notes))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if shared.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	return nil
}
