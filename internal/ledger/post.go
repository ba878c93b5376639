package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the transactional view of balances and journal that Post needs.
// Implementations must run all calls of one Post inside a single unit of work.
type Store interface {
	// LockBalance reads the current balance and holds it until the unit of work ends.
	LockBalance(ctx context.Context, acct Account) (decimal.Decimal, error)
	SetBalance(ctx context.Context, acct Account, balance decimal.Decimal) error
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	EntriesBySource(ctx context.Context, src Source) ([]Entry, error)
}

// Sequencer hands out per-document counters.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
	PeekSequence(ctx context.Context, name string) (int64, error)
	SetSequence(ctx context.Context, name string, value int64) error
}

// Plan returns the adjustments that move the applied total of every account to
// the intended amount. Accounts that were posted before but are no longer
// intended are planned back to zero.
func Plan(intended []Effect, posted []Entry) []Adjustment {
	want := make(map[Account]decimal.Decimal, len(intended))
	for _, e := range intended {
		want[e.Account] = want[e.Account].Add(e.Amount)
	}
	have := make(map[Account]decimal.Decimal, len(posted))
	for _, e := range posted {
		have[e.Account] = have[e.Account].Add(e.Applied)
	}

	accts := make([]Account, 0, len(want)+len(have))
	seen := make(map[Account]struct{}, len(want)+len(have))
	for _, m := range []map[Account]decimal.Decimal{want, have} {
		for acct := range m {
			if _, ok := seen[acct]; ok {
				continue
			}
			seen[acct] = struct{}{}
			accts = append(accts, acct)
		}
	}
	sortAccounts(accts)

	adjs := make([]Adjustment, 0, len(accts))
	for _, acct := range accts {
		delta := want[acct].Sub(have[acct])
		if delta.IsZero() {
			continue
		}
		adjs = append(adjs, Adjustment{Account: acct, Delta: delta})
	}
	return adjs
}

// Clamp applies delta to balance. A decrease never takes the balance below
// zero; a balance that is already negative is not decreased further.
// It returns the new balance and the part of delta that was applied.
func Clamp(balance, delta decimal.Decimal) (next, applied decimal.Decimal) {
	next = balance.Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		floor := decimal.Min(balance, decimal.Zero)
		return floor, floor.Sub(balance)
	}
	return next, delta
}

// Post reconciles the accounts touched by src with the intended effects and
// records one journal entry per adjustment. The caller owns the transaction.
func Post(ctx context.Context, store Store, src Source, intended []Effect, memo string, now time.Time) ([]Entry, error) {
	posted, err := store.EntriesBySource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("ledger: load entries for %s: %w", src, err)
	}
	adjs := Plan(intended, posted)
	entries := make([]Entry, 0, len(adjs))
	for _, adj := range adjs {
		balance, err := store.LockBalance(ctx, adj.Account)
		if err != nil {
			return nil, fmt.Errorf("ledger: lock %s: %w", adj.Account, err)
		}
		next, applied := Clamp(balance, adj.Delta)
		if !next.Equal(balance) {
			if err := store.SetBalance(ctx, adj.Account, next); err != nil {
				return nil, fmt.Errorf("ledger: set %s: %w", adj.Account, err)
			}
		}
		entry, err := store.InsertEntry(ctx, Entry{
			Account:      adj.Account,
			Source:       src,
			Requested:    adj.Delta,
			Applied:      applied,
			BalanceAfter: next,
			Memo:         memo,
			PostedAt:     now.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("ledger: journal %s: %w", adj.Account, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reverse plans every account touched by src back to zero.
func Reverse(ctx context.Context, store Store, src Source, memo string, now time.Time) ([]Entry, error) {
	return Post(ctx, store, src, nil, memo, now)
}
