package cars

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
)

var (
	// ErrPlateTaken is returned when another car already has the number plate.
	ErrPlateTaken = fmt.Errorf("%w: number plate already registered", shared.ErrDuplicate)
	// ErrInUse is returned when invoices or payments still reference the car.
	ErrInUse = fmt.Errorf("%w: car has invoices or payments", shared.ErrConflict)
)

// Repository persists cars.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Car, int, error)
	Get(ctx context.Context, id int64) (Car, error)
	Create(ctx context.Context, c Car) (Car, error)
	Update(ctx context.Context, c Car) (Car, error)
	Delete(ctx context.Context, id int64) error
	// EmployeeCategory returns the category of an employee.
	EmployeeCategory(ctx context.Context, id int64) (string, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const selectCar = `SELECT c.id, c.name, c.number_plate, c.driver_id, COALESCE(d.name, ''),
        c.kirishboy_id, COALESCE(k.name, ''), c.balance, c.left_amount, c.status, c.notes,
        c.created_at, c.updated_at
        FROM cars c
        LEFT JOIN employees d ON d.id = c.driver_id
        LEFT JOIN employees k ON k.id = c.kirishboy_id`

func scanCar(row pgx.Row) (Car, error) {
	var c Car
	err := row.Scan(&c.ID, &c.Name, &c.NumberPlate, &c.DriverID, &c.DriverName,
		&c.KirishboyID, &c.KirishboyName, &c.Balance, &c.Left, &c.Status, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Car{}, fmt.Errorf("%w: car", shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Car, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.number_plate ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM cars c"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf("%s%s ORDER BY c.name, c.id LIMIT $%d OFFSET $%d",
		selectCar, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Car, error) {
	return scanCar(r.db.QueryRow(ctx, selectCar+` WHERE c.id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c Car) (Car, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO cars (name, number_plate, driver_id, kirishboy_id, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Name, c.NumberPlate, c.DriverID, c.KirishboyID, c.Status, c.Notes).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Car{}, ErrPlateTaken
		}
		return Car{}, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, c Car) (Car, error) {
	tag, err := r.db.Exec(ctx, `UPDATE cars
        SET name = $2, number_plate = $3, driver_id = $4, kirishboy_id = $5, status = $6, notes = $7, updated_at = NOW()
        WHERE id = $1`,
		c.ID, c.Name, c.NumberPlate, c.DriverID, c.KirishboyID, c.Status, c.Notes)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Car{}, ErrPlateTaken
		}
		return Car{}, err
	}
	if tag.RowsAffected() == 0 {
		return Car{}, fmt.Errorf("%w: car", shared.ErrNotFound)
	}
	return r.Get(ctx, c.ID)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		if shared.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: car", shared.ErrNotFound)
	}
	return nil
}

func (r *repository) EmployeeCategory(ctx context.Context, id int64) (string, error) {
	var category string
	err := r.db.QueryRow(ctx, `SELECT category FROM employees WHERE id = $1`, id).Scan(&category)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: employee", shared.ErrNotFound)
	}
	return category, err
}
