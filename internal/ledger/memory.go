package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps balances, journal and sequences in maps. Mutations made
// inside Atomic are recorded with a compensating step and undone in reverse
// order when the unit of work fails.
type MemoryStore struct {
	work sync.Mutex

	mu        sync.Mutex
	balances  map[Account]decimal.Decimal
	entries   []Entry
	sequences map[string]int64
	nextID    int64
	undo      []func()
	inWork    bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:  make(map[Account]decimal.Decimal),
		sequences: make(map[string]int64),
	}
}

// Open registers an account with an initial balance.
func (s *MemoryStore) Open(acct Account, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[acct] = balance
}

// OpenJournaled registers an account and, for a non-zero balance, records an
// opening entry so the journal explains it.
func (s *MemoryStore) OpenJournaled(acct Account, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[acct] = balance
	if balance.IsZero() {
		return
	}
	s.nextID++
	s.entries = append(s.entries, Entry{
		ID:           s.nextID,
		Account:      acct,
		Source:       OpeningSource,
		Requested:    balance,
		Applied:      balance,
		BalanceAfter: balance,
		Memo:         "opening balance",
	})
}

// Close removes an account.
func (s *MemoryStore) Close(acct Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.balances, acct)
}

// Balance returns the stored balance of acct.
func (s *MemoryStore) Balance(acct Account) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[acct]
}

// Entries returns a copy of the journal.
func (s *MemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Snapshot returns the balances and the applied journal sum per account.
func (s *MemoryStore) Snapshot(ctx context.Context) (balances, sums map[Account]decimal.Decimal, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balances = make(map[Account]decimal.Decimal, len(s.balances))
	for acct, bal := range s.balances {
		balances[acct] = bal
	}
	sums = make(map[Account]decimal.Decimal)
	for _, e := range s.entries {
		sums[e.Account] = sums[e.Account].Add(e.Applied)
	}
	return balances, sums, nil
}

// Atomic runs fn as one unit of work. Units of work are serialised.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s.work.Lock()
	defer s.work.Unlock()

	s.mu.Lock()
	s.inWork = true
	s.undo = s.undo[:0]
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.rollback()
			panic(p)
		}
		if err != nil {
			s.rollback()
			return
		}
		s.mu.Lock()
		s.inWork = false
		s.undo = nil
		s.mu.Unlock()
	}()
	return fn(ctx)
}

func (s *MemoryStore) rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
	s.inWork = false
}

// record must be called with mu held.
func (s *MemoryStore) record(compensate func()) {
	if s.inWork {
		s.undo = append(s.undo, compensate)
	}
}

func (s *MemoryStore) LockBalance(ctx context.Context, acct Account) (decimal.Decimal, error) {
	if !acct.Kind.Valid() {
		return decimal.Zero, ErrUnknownAccountKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[acct]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, acct)
	}
	return bal, nil
}

func (s *MemoryStore) SetBalance(ctx context.Context, acct Account, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.balances[acct]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, acct)
	}
	s.balances[acct] = balance
	s.record(func() { s.balances[acct] = prev })
	return nil
}

func (s *MemoryStore) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	n := len(s.entries)
	s.record(func() { s.entries = s.entries[:n-1] })
	return entry, nil
}

func (s *MemoryStore) EntriesBySource(ctx context.Context, src Source) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Source == src {
			out = append(out, e)
		}
	}
	return out, nil
}

// EntriesByAccount returns the journal of one account in posting order.
func (s *MemoryStore) EntriesByAccount(acct Account) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Account == acct {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStore) NextSequence(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sequences[name]
	s.sequences[name] = prev + 1
	s.record(func() { s.sequences[name] = prev })
	return prev + 1, nil
}

func (s *MemoryStore) PeekSequence(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequences[name], nil
}

func (s *MemoryStore) SetSequence(ctx context.Context, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sequences[name]
	s.sequences[name] = value
	s.record(func() { s.sequences[name] = prev })
	return nil
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ Sequencer = (*MemoryStore)(nil)
)

// OnRollback registers a compensating step owned by the caller, for state kept
// outside the store that belongs to the current unit of work. compensate must
// not call back into the store.
func (s *MemoryStore) OnRollback(compensate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(compensate)
}

// ListEntries mirrors Repository.ListEntries: newest first, paginated.
func (s *MemoryStore) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Account != nil && e.Account != *filter.Account {
			continue
		}
		if filter.Source != nil && e.Source != *filter.Source {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}
