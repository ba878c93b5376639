package payments

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

// ErrUnknownReference is returned when the car or customer does not exist.
var ErrUnknownReference = fmt.Errorf("%w: payment references a missing car or customer", shared.ErrValidation)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, int, error)
	PeekSequence(ctx context.Context, name string) (int64, error)
}

// TxRepository is the payment store of one transaction, doubling as its ledger store.
type TxRepository interface {
	ledger.Store
	ledger.Sequencer
	GetForUpdate(ctx context.Context, id int64) (Payment, error)
	Insert(ctx context.Context, p Payment) (Payment, error)
	Update(ctx context.Context, p Payment) (Payment, error)
	Delete(ctx context.Context, id int64) error
}

// Repository persists payments in PostgreSQL.
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

const selectPayment = `SELECT p.id, p.payment_no, p.type, p.customer_id, COALESCE(cu.name, ''),
        p.car_id, COALESCE(c.name, ''), p.amount, p.payment_date, p.description, p.category,
        p.account_month, COALESCE(p.created_by, 0), p.created_at, p.updated_at
        FROM payments p
        LEFT JOIN customers cu ON cu.id = p.customer_id
        LEFT JOIN cars c ON c.id = p.car_id`

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p   Payment
		typ string
	)
	err := row.Scan(&p.ID, &p.PaymentNo, &typ, &p.CustomerID, &p.CustomerName,
		&p.CarID, &p.CarName, &p.Amount, &p.PaymentDate, &p.Description, &p.Category,
		&p.AccountMonth, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("%w: payment", shared.ErrNotFound)
	}
	p.Type = ledger.PaymentType(typ)
	return p, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, selectPayment+` WHERE p.id = $1`, id))
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("p.type = $%d", string(filter.Type))
	}
	if filter.CustomerID > 0 {
		add("p.customer_id = $%d", filter.CustomerID)
	}
	if filter.CarID > 0 {
		add("p.car_id = $%d", filter.CarID)
	}
	if filter.AccountMonth != "" {
		add("p.account_month = $%d", filter.AccountMonth)
	}
	if !filter.From.IsZero() {
		add("p.payment_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("p.payment_date <= $%d", filter.To)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM payments p"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf("%s%s ORDER BY p.payment_date DESC, p.id DESC LIMIT $%d OFFSET $%d",
		selectPayment, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(t.q.QueryRow(ctx, selectPayment+` WHERE p.id = $1 FOR UPDATE OF p`, id))
}

func (t *txRepo) Insert(ctx context.Context, p Payment) (Payment, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO payments
        (payment_no, type, customer_id, car_id, amount, payment_date, description, category, account_month, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, 0))
        RETURNING id, created_at, updated_at`,
		p.PaymentNo, string(p.Type), p.CustomerID, p.CarID, p.Amount, p.PaymentDate,
		p.Description, p.Category, p.AccountMonth, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Payment{}, mapWriteError(err)
	}
	return p, nil
}

func (t *txRepo) Update(ctx context.Context, p Payment) (Payment, error) {
	err := t.q.QueryRow(ctx, `UPDATE payments
        SET amount = $2, payment_date = $3, description = $4, category = $5, account_month = $6, updated_at = NOW()
        WHERE id = $1 RETURNING updated_at`,
		p.ID, p.Amount, p.PaymentDate, p.Description, p.Category, p.AccountMonth,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("%w: payment", shared.ErrNotFound)
	}
	if err != nil {
		return Payment{}, mapWriteError(err)
	}
	return p, nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment", shared.ErrNotFound)
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case shared.IsForeignKeyViolation(err):
		return ErrUnknownReference
	case shared.IsUniqueViolation(err):
		return fmt.Errorf("%w: payment number already used", shared.ErrDuplicate)
	}
	return err
}
