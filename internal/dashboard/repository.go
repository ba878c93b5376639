package dashboard

import (
	"context"

	"github.com/fleetbook/fleetbook/internal/platform/db"
)

// Repository runs the dashboard aggregate queries.
type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	Totals(ctx context.Context) (Totals, error)
	PeriodFigures(ctx context.Context, f Filter) (PeriodFigures, error)
	TopDebtors(ctx context.Context, limit int) ([]Debtor, error)
	PayoutsByMonth(ctx context.Context, f Filter) ([]MonthAmount, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRow(ctx, `SELECT
        (SELECT COUNT(*) FROM cars),
        (SELECT COUNT(*) FROM cars WHERE status = 'active'),
        (SELECT COUNT(*) FROM employees),
        (SELECT COUNT(*) FROM customers),
        (SELECT COUNT(*) FROM items),
        (SELECT COUNT(*) FROM invoices)`).
		Scan(&c.Cars, &c.ActiveCars, &c.Employees, &c.Customers, &c.Items, &c.Invoices)
	return c, err
}

func (r *repository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.db.QueryRow(ctx, `SELECT
        COALESCE((SELECT SUM(balance) FROM cars), 0),
        COALESCE((SELECT SUM(left_amount) FROM cars), 0),
        COALESCE((SELECT SUM(balance) FROM customers WHERE balance > 0), 0)`).
		Scan(&t.CarBalance, &t.CarLeft, &t.Receivables)
	return t, err
}

func (r *repository) PeriodFigures(ctx context.Context, f Filter) (PeriodFigures, error) {
	var p PeriodFigures
	err := r.db.QueryRow(ctx, `SELECT
        COALESCE((SELECT SUM(total) FROM invoices WHERE date BETWEEN $1 AND $2), 0),
        COALESCE((SELECT SUM(li.total) FROM invoice_items li JOIN invoices i ON i.id = li.invoice_id
                  WHERE li.payment_method = 'cash' AND i.date BETWEEN $1 AND $2), 0),
        COALESCE((SELECT SUM(li.total) FROM invoice_items li JOIN invoices i ON i.id = li.invoice_id
                  WHERE li.payment_method = 'credit' AND i.date BETWEEN $1 AND $2), 0),
        COALESCE((SELECT SUM(amount) FROM payments WHERE type = 'receive' AND payment_date BETWEEN $1 AND $2), 0),
        COALESCE((SELECT SUM(amount) FROM payments WHERE type = 'payment_out' AND payment_date BETWEEN $1 AND $2), 0)`,
		f.From, f.To).
		Scan(&p.Invoiced, &p.CashSales, &p.CreditSales, &p.Received, &p.PaidOut)
	return p, err
}

func (r *repository) TopDebtors(ctx context.Context, limit int) ([]Debtor, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, balance FROM customers
        WHERE balance > 0 ORDER BY balance DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Debtor
	for rows.Next() {
		var d Debtor
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) PayoutsByMonth(ctx context.Context, f Filter) ([]MonthAmount, error) {
	rows, err := r.db.Query(ctx, `SELECT account_month, SUM(amount) FROM payments
        WHERE type = 'payment_out' AND payment_date BETWEEN $1 AND $2
        GROUP BY account_month ORDER BY account_month`, f.From, f.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthAmount
	for rows.Next() {
		var m MonthAmount
		if err := rows.Scan(&m.Month, &m.Amount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
