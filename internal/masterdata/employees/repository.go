package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// ErrInUse is returned when an employee is still assigned to a car.
var ErrInUse = fmt.Errorf("%w: employee is assigned to a car", shared.ErrConflict)

// Repository persists employees.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const employeeColumns = `id, name, phone, category, balance, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	var category string
	err := row.Scan(&e.ID, &e.Name, &e.Phone, &category, &e.Balance, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	e.Category = Category(category)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Employee, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM employees "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM employees %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		employeeColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	return scanEmployee(r.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, e Employee) (Employee, error) {
	return scanEmployee(r.db.QueryRow(ctx, `INSERT INTO employees (name, phone, category, balance, status)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+employeeColumns,
		e.Name, e.Phone, string(e.Category), e.Balance, e.Status))
}

func (r *repository) Update(ctx context.Context, e Employee) (Employee, error) {
	return scanEmployee(r.db.QueryRow(ctx, `UPDATE employees
        SET name = $2, phone = $3, category = $4, balance = $5, status = $6, updated_at = NOW()
        WHERE id = $1 RETURNING `+employeeColumns,
		e.ID, e.Name, e.Phone, string(e.Category), e.Balance, e.Status))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		if shared.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	return nil
}
