package invoices

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// memoryRepo keeps invoices in a map and uses the in-memory ledger store as
// its transaction: every write registers a compensation with the store.
type memoryRepo struct {
	store    *ledger.MemoryStore
	invoices map[int64]Invoice
	nextID   int64
	cars     map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		store:    ledger.NewMemoryStore(),
		invoices: make(map[int64]Invoice),
		cars:     make(map[int64]bool),
	}
}

func (m *memoryRepo) addCar(id int64) {
	m.cars[id] = true
	m.store.Open(ledger.CarBalance(id), decimal.Zero)
	m.store.Open(ledger.CarLeft(id), decimal.Zero)
}

func (m *memoryRepo) addCustomer(id int64, balance decimal.Decimal) {
	m.store.OpenJournaled(ledger.CustomerBalance(id), balance)
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return m.store.Atomic(ctx, func(ctx context.Context) error {
		return fn(ctx, &memoryTx{MemoryStore: m.store, repo: m})
	})
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	return inv, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if filter.CarID > 0 && inv.CarID != filter.CarID {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) PeekSequence(ctx context.Context, name string) (int64, error) {
	return m.store.PeekSequence(ctx, name)
}

type memoryTx struct {
	*ledger.MemoryStore
	repo *memoryRepo
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) put(inv Invoice) {
	prev, existed := t.repo.invoices[inv.ID]
	t.repo.invoices[inv.ID] = inv
	t.OnRollback(func() {
		if existed {
			t.repo.invoices[inv.ID] = prev
		} else {
			delete(t.repo.invoices, inv.ID)
		}
	})
}

func (t *memoryTx) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if !t.repo.cars[inv.CarID] {
		return Invoice{}, ErrUnknownReference
	}
	t.repo.nextID++
	inv.ID = t.repo.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	t.put(inv)
	return inv, nil
}

func (t *memoryTx) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	if !t.repo.cars[inv.CarID] {
		return Invoice{}, ErrUnknownReference
	}
	inv.UpdatedAt = time.Now()
	t.put(inv)
	return inv, nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	prev, ok := t.repo.invoices[id]
	if !ok {
		return fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	delete(t.repo.invoices, id)
	t.OnRollback(func() { t.repo.invoices[id] = prev })
	return nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := module + ":" + key
	if m.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+":"+key)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}
