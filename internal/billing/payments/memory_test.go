package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

type memoryRepo struct {
	store    *ledger.MemoryStore
	payments map[int64]Payment
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{store: ledger.NewMemoryStore(), payments: make(map[int64]Payment)}
}

func (m *memoryRepo) addCar(id int64, left decimal.Decimal) {
	m.store.Open(ledger.CarBalance(id), decimal.Zero)
	m.store.OpenJournaled(ledger.CarLeft(id), left)
}

func (m *memoryRepo) addCustomer(id int64, balance decimal.Decimal) {
	m.store.OpenJournaled(ledger.CustomerBalance(id), balance)
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return m.store.Atomic(ctx, func(ctx context.Context) error {
		return fn(ctx, &memoryTx{MemoryStore: m.store, repo: m})
	})
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, fmt.Errorf("%w: payment", shared.ErrNotFound)
	}
	return p, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	var out []Payment
	for _, p := range m.payments {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) PeekSequence(ctx context.Context, name string) (int64, error) {
	return m.store.PeekSequence(ctx, name)
}

type memoryTx struct {
	*ledger.MemoryStore
	repo *memoryRepo
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Payment, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) put(p Payment) {
	prev, existed := t.repo.payments[p.ID]
	t.repo.payments[p.ID] = p
	t.OnRollback(func() {
		if existed {
			t.repo.payments[p.ID] = prev
		} else {
			delete(t.repo.payments, p.ID)
		}
	})
}

func (t *memoryTx) Insert(ctx context.Context, p Payment) (Payment, error) {
	t.repo.nextID++
	p.ID = t.repo.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	t.put(p)
	return p, nil
}

func (t *memoryTx) Update(ctx context.Context, p Payment) (Payment, error) {
	p.UpdatedAt = time.Now()
	t.put(p)
	return p, nil
}

func (t *memoryTx) Delete(ctx context.Context, id int64) error {
	prev, ok := t.repo.payments[id]
	if !ok {
		return fmt.Errorf("%w: payment", shared.ErrNotFound)
	}
	delete(t.repo.payments, id)
	t.OnRollback(func() { t.repo.payments[id] = prev })
	return nil
}
