package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// ErrUnknownReference is returned when a car, customer or item does not exist.
var ErrUnknownReference = fmt.Errorf("%w: invoice references a missing car, customer or item", shared.ErrValidation)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	PeekSequence(ctx context.Context, name string) (int64, error)
}

// TxRepository exposes transactional operations used by service. It is also
// the ledger store of the transaction, so document rows and balances commit together.
type TxRepository interface {
	ledger.Store
	ledger.Sequencer
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	Delete(ctx context.Context, id int64) error
}

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*ledger.PGStore
	q db.DBTX
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGStore: ledger.NewPGStore(tx), q: tx})
	})
}

func (r *Repository) PeekSequence(ctx context.Context, name string) (int64, error) {
	return ledger.NewPGStore(r.pool).PeekSequence(ctx, name)
}

const selectInvoice = `SELECT i.id, i.invoice_no, i.car_id, COALESCE(c.name, ''), i.date,
        i.total, i.total_left, i.total_profit, i.notes, COALESCE(i.created_by, 0), i.created_at, i.updated_at
        FROM invoices i
        LEFT JOIN cars c ON c.id = i.car_id`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNo, &inv.CarID, &inv.CarName, &inv.Date,
		&inv.Total, &inv.TotalLeft, &inv.TotalProfit, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	return inv, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id, false)
}

func getInvoice(ctx context.Context, q db.DBTX, id int64, lock bool) (Invoice, error) {
	query := selectInvoice + ` WHERE i.id = $1`
	if lock {
		query += ` FOR UPDATE OF i`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, query, id))
	if err != nil {
		return Invoice{}, err
	}
	lines, err := loadLines(ctx, q, []int64{id})
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = lines[id]
	return inv, nil
}

func loadLines(ctx context.Context, q db.DBTX, ids []int64) (map[int64][]Line, error) {
	rows, err := q.Query(ctx, `SELECT li.invoice_id, li.id, li.item_id, li.customer_id, COALESCE(cu.name, ''),
        li.description, li.quantity, li.price, li.total, li.left_amount, li.payment_method
        FROM invoice_items li
        LEFT JOIN customers cu ON cu.id = li.customer_id
        WHERE li.invoice_id = ANY($1)
        ORDER BY li.invoice_id, li.line_no, li.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]Line, len(ids))
	for rows.Next() {
		var (
			invoiceID int64
			l         Line
			method    string
		)
		if err := rows.Scan(&invoiceID, &l.ID, &l.ItemID, &l.CustomerID, &l.CustomerName,
			&l.Description, &l.Quantity, &l.Price, &l.Total, &l.LeftAmount, &method); err != nil {
			return nil, err
		}
		l.PaymentMethod = ledger.PaymentMethod(method)
		out[invoiceID] = append(out[invoiceID], l)
	}
	return out, rows.Err()
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CarID > 0 {
		args = append(args, filter.CarID)
		conditions = append(conditions, fmt.Sprintf("i.car_id = $%d", len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM invoice_items li WHERE li.invoice_id = i.id AND li.customer_id = $%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("i.date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("i.date <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(i.invoice_no ILIKE $%d OR i.notes ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices i"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf("%s%s ORDER BY i.date DESC, i.id DESC LIMIT $%d OFFSET $%d",
		selectInvoice, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	var (
		out []Invoice
		ids []int64
	)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return out, total, nil
	}

	lines, err := loadLines(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = lines[out[i].ID]
	}
	return out, total, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, t.q, id, true)
}

func (t *txRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO invoices
        (invoice_no, car_id, date, total, total_left, total_profit, notes, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0))
        RETURNING id, created_at, updated_at`,
		inv.InvoiceNo, inv.CarID, inv.Date, inv.Total, inv.TotalLeft, inv.TotalProfit, inv.Notes, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapWriteError(err)
	}
	if err := t.insertLines(ctx, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (t *txRepo) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	err := t.q.QueryRow(ctx, `UPDATE invoices
        SET car_id = $2, date = $3, total = $4, total_left = $5, total_profit = $6, notes = $7, updated_at = NOW()
        WHERE id = $1 RETURNING updated_at`,
		inv.ID, inv.CarID, inv.Date, inv.Total, inv.TotalLeft, inv.TotalProfit, inv.Notes,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
		}
		return Invoice{}, mapWriteError(err)
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return Invoice{}, err
	}
	if err := t.insertLines(ctx, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (t *txRepo) insertLines(ctx context.Context, inv *Invoice) error {
	for i := range inv.Items {
		l := &inv.Items[i]
		err := t.q.QueryRow(ctx, `INSERT INTO invoice_items
            (invoice_id, line_no, item_id, customer_id, description, quantity, price, total, left_amount, payment_method)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			inv.ID, i+1, l.ItemID, l.CustomerID, l.Description, l.Quantity, l.Price, l.Total, l.LeftAmount,
			string(l.PaymentMethod),
		).Scan(&l.ID)
		if err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case shared.IsForeignKeyViolation(err):
		return ErrUnknownReference
	case shared.IsUniqueViolation(err):
		return fmt.Errorf("%w: invoice number already used", shared.ErrDuplicate)
	}
	return err
}
