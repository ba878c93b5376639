package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/platform/db"
)

// PGStore implements Store and Sequencer on top of a pgx transaction.
type PGStore struct {
	q db.DBTX
}

// NewPGStore wraps q. Pass a pgx.Tx so row locks last until commit.
func NewPGStore(q db.DBTX) *PGStore {
	return &PGStore{q: q}
}

func balanceColumn(kind AccountKind) (table, column string, err error) {
	switch kind {
	case AccountCarBalance:
		return "cars", "balance", nil
	case AccountCarLeft:
		return "cars", "left_amount", nil
	case AccountCustomerBalance:
		return "customers", "balance", nil
	}
	return "", "", ErrUnknownAccountKind
}

func (s *PGStore) LockBalance(ctx context.Context, acct Account) (decimal.Decimal, error) {
	table, column, err := balanceColumn(acct.Kind)
	if err != nil {
		return decimal.Zero, err
	}
	var raw string
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE id = $1 FOR UPDATE`, column, table)
	if err := s.q.QueryRow(ctx, query, acct.ID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, acct)
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (s *PGStore) SetBalance(ctx context.Context, acct Account, balance decimal.Decimal) error {
	table, column, err := balanceColumn(acct.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $2::numeric, updated_at = NOW() WHERE id = $1`, table, column)
	tag, err := s.q.Exec(ctx, query, acct.ID, balance.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, acct)
	}
	return nil
}

func (s *PGStore) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	err := s.q.QueryRow(ctx, `INSERT INTO ledger_entries
        (account_kind, account_id, source_kind, source_id, requested, applied, balance_after, memo, posted_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9)
        RETURNING id`,
		string(entry.Account.Kind), entry.Account.ID,
		string(entry.Source.Kind), entry.Source.ID,
		entry.Requested.String(), entry.Applied.String(), entry.BalanceAfter.String(),
		entry.Memo, entry.PostedAt,
	).Scan(&entry.ID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *PGStore) EntriesBySource(ctx context.Context, src Source) ([]Entry, error) {
	rows, err := s.q.Query(ctx, selectEntries+` WHERE source_kind = $1 AND source_id = $2 ORDER BY id`,
		string(src.Kind), src.ID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *PGStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.q.QueryRow(ctx, `INSERT INTO number_sequences (name, value) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET value = number_sequences.value + 1
        RETURNING value`, name).Scan(&value)
	return value, err
}

func (s *PGStore) PeekSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.q.QueryRow(ctx, `SELECT COALESCE((SELECT value FROM number_sequences WHERE name = $1), 0)`, name).Scan(&value)
	return value, err
}

func (s *PGStore) SetSequence(ctx context.Context, name string, value int64) error {
	_, err := s.q.Exec(ctx, `INSERT INTO number_sequences (name, value) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	return err
}

const selectEntries = `SELECT id, account_kind, account_id, source_kind, source_id,
        requested::text, applied::text, balance_after::text, memo, posted_at
        FROM ledger_entries`

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			acctKind, srcKind       string
			requested, applied, bal string
		)
		if err := rows.Scan(&e.ID, &acctKind, &e.Account.ID, &srcKind, &e.Source.ID,
			&requested, &applied, &bal, &e.Memo, &e.PostedAt); err != nil {
			return nil, err
		}
		e.Account.Kind = AccountKind(acctKind)
		e.Source.Kind = SourceKind(srcKind)
		var err error
		if e.Requested, err = decimal.NewFromString(requested); err != nil {
			return nil, err
		}
		if e.Applied, err = decimal.NewFromString(applied); err != nil {
			return nil, err
		}
		if e.BalanceAfter, err = decimal.NewFromString(bal); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntryFilter narrows journal listings.
type EntryFilter struct {
	Account *Account
	Source  *Source
	Limit   int
	Offset  int
}

// Repository serves read access to the journal outside posting transactions.
type Repository struct {
	q db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(q db.DBTX) *Repository {
	return &Repository{q: q}
}

// ListEntries returns journal entries newest first with the total match count.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Account != nil {
		args = append(args, string(filter.Account.Kind), filter.Account.ID)
		where = append(where, fmt.Sprintf("account_kind = $%d AND account_id = $%d", len(args)-1, len(args)))
	}
	if filter.Source != nil {
		args = append(args, string(filter.Source.Kind), filter.Source.ID)
		where = append(where, fmt.Sprintf("source_kind = $%d AND source_id = $%d", len(args)-1, len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY id DESC LIMIT $%d OFFSET $%d", selectEntries, clause, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Snapshot loads every maintained balance and the applied journal sum per account.
func (r *Repository) Snapshot(ctx context.Context) (balances, sums map[Account]decimal.Decimal, err error) {
	balances, err = scanAccountAmounts(ctx, r.q, `
        SELECT 'car_balance', id, balance::text FROM cars
        UNION ALL SELECT 'car_left', id, left_amount::text FROM cars
        UNION ALL SELECT 'customer_balance', id, balance::text FROM customers`)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: load balances: %w", err)
	}
	sums, err = scanAccountAmounts(ctx, r.q, `
        SELECT account_kind, account_id, SUM(applied)::text FROM ledger_entries GROUP BY account_kind, account_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: load journal sums: %w", err)
	}
	return balances, sums, nil
}

func scanAccountAmounts(ctx context.Context, q db.DBTX, query string) (map[Account]decimal.Decimal, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[Account]decimal.Decimal)
	for rows.Next() {
		var (
			kind string
			id   int64
			raw  string
		)
		if err := rows.Scan(&kind, &id, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		out[Account{Kind: AccountKind(kind), ID: id}] = amount
	}
	return out, rows.Err()
}

// InsertEntries writes pre-built entries, used when restoring a backup.
func (s *PGStore) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if _, err := s.InsertEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Store     = (*PGStore)(nil)
	_ Sequencer = (*PGStore)(nil)
)
