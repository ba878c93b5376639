package backup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/billing/payments"
	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/masterdata/items"
	"github.com/fleetbook/fleetbook/internal/platform/db"
)

// Restore is everything written by an import.
type Restore struct {
	Bundle    Bundle
	Journal   []ledger.Entry
	Sequences map[string]int64
	Now       time.Time
}

// Repository reads and replaces the whole dataset.
type Repository interface {
	Export(ctx context.Context) (Bundle, error)
	Replace(ctx context.Context, r Restore) error
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Export reads all tables inside one RepeatableRead snapshot.
func (r *PGRepository) Export(ctx context.Context) (Bundle, error) {
	var b Bundle
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if b.Employees, err = exportEmployees(ctx, tx); err != nil {
			return err
		}
		if b.Cars, err = exportCars(ctx, tx); err != nil {
			return err
		}
		if b.Items, err = exportItems(ctx, tx); err != nil {
			return err
		}
		if b.Customers, err = exportCustomers(ctx, tx); err != nil {
			return err
		}
		if b.Invoices, err = exportInvoices(ctx, tx); err != nil {
			return err
		}
		b.Payments, err = exportPayments(ctx, tx)
		return err
	})
	if err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func exportEmployees(ctx context.Context, q db.DBTX) ([]employees.Employee, error) {
	rows, err := q.Query(ctx, `SELECT id, name, phone, category, balance, status, created_at, updated_at
        FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (employees.Employee, error) {
		var e employees.Employee
		err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Category, &e.Balance, &e.Status, &e.CreatedAt, &e.UpdatedAt)
		return e, err
	})
}

func exportCars(ctx context.Context, q db.DBTX) ([]cars.Car, error) {
	rows, err := q.Query(ctx, `SELECT id, name, number_plate, driver_id, kirishboy_id, balance, left_amount,
        status, notes, created_at, updated_at FROM cars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cars.Car, error) {
		var c cars.Car
		err := row.Scan(&c.ID, &c.Name, &c.NumberPlate, &c.DriverID, &c.KirishboyID, &c.Balance, &c.Left,
			&c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

func exportItems(ctx context.Context, q db.DBTX) ([]items.Item, error) {
	rows, err := q.Query(ctx, `SELECT id, name, price, created_at, updated_at FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (items.Item, error) {
		var it items.Item
		err := row.Scan(&it.ID, &it.Name, &it.Price, &it.CreatedAt, &it.UpdatedAt)
		return it, err
	})
}

func exportCustomers(ctx context.Context, q db.DBTX) ([]customers.Customer, error) {
	rows, err := q.Query(ctx, `SELECT id, name, phone, balance, status, notes, created_at, updated_at
        FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customers.Customer, error) {
		var c customers.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Balance, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

func exportInvoices(ctx context.Context, q db.DBTX) ([]invoices.Invoice, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_no, car_id, date, total, total_left, total_profit, notes,
        COALESCE(created_by, 0), created_at, updated_at FROM invoices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (invoices.Invoice, error) {
		var inv invoices.Invoice
		err := row.Scan(&inv.ID, &inv.InvoiceNo, &inv.CarID, &inv.Date, &inv.Total, &inv.TotalLeft,
			&inv.TotalProfit, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
		return inv, err
	})
	if err != nil {
		return nil, err
	}

	lineRows, err := q.Query(ctx, `SELECT invoice_id, id, item_id, customer_id, description, quantity, price,
        total, left_amount, payment_method FROM invoice_items ORDER BY invoice_id, line_no, id`)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	lines := make(map[int64][]invoices.Line)
	for lineRows.Next() {
		var (
			invoiceID int64
			l         invoices.Line
			method    string
		)
		if err := lineRows.Scan(&invoiceID, &l.ID, &l.ItemID, &l.CustomerID, &l.Description, &l.Quantity,
			&l.Price, &l.Total, &l.LeftAmount, &method); err != nil {
			return nil, err
		}
		l.PaymentMethod = ledger.PaymentMethod(method)
		lines[invoiceID] = append(lines[invoiceID], l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Items = lines[list[i].ID]
		if list[i].Items == nil {
			list[i].Items = []invoices.Line{}
		}
	}
	return list, nil
}

func exportPayments(ctx context.Context, q db.DBTX) ([]payments.Payment, error) {
	rows, err := q.Query(ctx, `SELECT id, payment_no, type, customer_id, car_id, amount, payment_date,
        description, category, account_month, COALESCE(created_by, 0), created_at, updated_at
        FROM payments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (payments.Payment, error) {
		var (
			p   payments.Payment
			typ string
		)
		err := row.Scan(&p.ID, &p.PaymentNo, &typ, &p.CustomerID, &p.CarID, &p.Amount, &p.PaymentDate,
			&p.Description, &p.Category, &p.AccountMonth, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
		p.Type = ledger.PaymentType(typ)
		return p, err
	})
}

// Replace wipes business data and writes the restore in a single transaction.
// Users, idempotency keys and audit logs are kept.
func (r *PGRepository) Replace(ctx context.Context, rs Restore) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE ledger_entries, payments, invoice_items, invoices,
            cars, customers, items, employees RESTART IDENTITY`); err != nil {
			return err
		}
		b, at := rs.Bundle, func(t time.Time) time.Time { return stamp(t, rs.Now) }

		for _, e := range b.Employees {
			if _, err := tx.Exec(ctx, `INSERT INTO employees (id, name, phone, category, balance, status, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				e.ID, e.Name, e.Phone, string(e.Category), e.Balance, e.Status, at(e.CreatedAt), at(e.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, c := range b.Cars {
			if _, err := tx.Exec(ctx, `INSERT INTO cars (id, name, number_plate, driver_id, kirishboy_id, balance,
                left_amount, status, notes, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				c.ID, c.Name, c.NumberPlate, c.DriverID, c.KirishboyID, c.Balance, c.Left, c.Status, c.Notes,
				at(c.CreatedAt), at(c.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, it := range b.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO items (id, name, price, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5)`, it.ID, it.Name, it.Price, at(it.CreatedAt), at(it.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, c := range b.Customers {
			if _, err := tx.Exec(ctx, `INSERT INTO customers (id, name, phone, balance, status, notes, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				c.ID, c.Name, c.Phone, c.Balance, c.Status, c.Notes, at(c.CreatedAt), at(c.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, inv := range b.Invoices {
			if _, err := tx.Exec(ctx, `INSERT INTO invoices (id, invoice_no, car_id, date, total, total_left,
                total_profit, notes, created_by, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0), $10, $11)`,
				inv.ID, inv.InvoiceNo, inv.CarID, inv.Date, inv.Total, inv.TotalLeft, inv.TotalProfit, inv.Notes,
				inv.CreatedBy, at(inv.CreatedAt), at(inv.UpdatedAt)); err != nil {
				return err
			}
			for i, l := range inv.Items {
				if _, err := tx.Exec(ctx, `INSERT INTO invoice_items (id, invoice_id, line_no, item_id, customer_id,
                    description, quantity, price, total, left_amount, payment_method)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
					l.ID, inv.ID, i+1, l.ItemID, l.CustomerID, l.Description, l.Quantity, l.Price, l.Total,
					l.LeftAmount, string(l.PaymentMethod)); err != nil {
					return err
				}
			}
		}
		for _, p := range b.Payments {
			if _, err := tx.Exec(ctx, `INSERT INTO payments (id, payment_no, type, customer_id, car_id, amount,
                payment_date, description, category, account_month, created_by, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, 0), $12, $13)`,
				p.ID, p.PaymentNo, string(p.Type), p.CustomerID, p.CarID, p.Amount, p.PaymentDate, p.Description,
				p.Category, p.AccountMonth, p.CreatedBy, at(p.CreatedAt), at(p.UpdatedAt)); err != nil {
				return err
			}
		}

		for _, table := range []string{"employees", "cars", "items", "customers", "invoices", "invoice_items", "payments"} {
			if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('`+table+`', 'id'),
                COALESCE((SELECT MAX(id) FROM `+table+`), 0) + 1, false)`); err != nil {
				return err
			}
		}

		store := ledger.NewPGStore(tx)
		for name, value := range rs.Sequences {
			if err := store.SetSequence(ctx, name, value); err != nil {
				return err
			}
		}
		return store.InsertEntries(ctx, rs.Journal)
	})
}

func stamp(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
