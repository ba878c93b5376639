package customers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

type memoryRepo struct {
	rows       map[int64]Customer
	referenced map[int64]bool
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]Customer), referenced: make(map[int64]bool)}
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.rows {
		if filter.Debtors && !c.Balance.IsPositive() {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	return c, nil
}

func (m *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Customer) (Customer, error) {
	stored, ok := m.rows[c.ID]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	c.Balance = stored.Balance
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	if m.referenced[id] {
		return ErrInUse
	}
	delete(m.rows, id)
	return nil
}

func TestUpdateKeepsBalance(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, ledger.NewMemoryStore(), nil)

	c, err := svc.Create(ctx, CustomerInput{Name: " Acme "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, StatusActive, c.Status)

	stored := repo.rows[c.ID]
	stored.Balance = decimal.NewFromInt(250)
	repo.rows[c.ID] = stored

	updated, err := svc.Update(ctx, c.ID, CustomerInput{Name: "Acme LLC", Status: StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, "250", updated.Balance.String())
	assert.Equal(t, "Acme LLC", updated.Name)
}

func TestDeleteReferencedCustomer(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, ledger.NewMemoryStore(), nil)
	c, err := svc.Create(ctx, CustomerInput{Name: "Busy"})
	require.NoError(t, err)
	repo.referenced[c.ID] = true

	err = svc.Delete(ctx, c.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	_, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
}

func TestStatementListsCustomerJournal(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	store := ledger.NewMemoryStore()
	svc := NewService(repo, store, nil)

	c, err := svc.Create(ctx, CustomerInput{Name: "Debtor"})
	require.NoError(t, err)
	store.Open(ledger.CustomerBalance(c.ID), decimal.Zero)
	store.Open(ledger.CarBalance(1), decimal.Zero)

	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context) error {
		_, err := ledger.Post(ctx, store, ledger.Source{Kind: ledger.SourceInvoice, ID: 1},
			ledger.InvoiceEffects(ledger.InvoiceFacts{
				CarID: 1, Total: decimal.NewFromInt(90),
				Lines: []ledger.InvoiceLineFacts{{CustomerID: c.ID, Total: decimal.NewFromInt(90), Method: ledger.MethodCredit}},
			}), "INV-001", now)
		return err
	}))

	st, err := svc.Statement(ctx, c.ID, shared.Page{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, st.Entries.Total)
	assert.Equal(t, ledger.CustomerBalance(c.ID), st.Entries.Data[0].Account)
	assert.Equal(t, "90", st.Entries.Data[0].Applied.String())

	_, err = svc.Statement(ctx, 404, shared.Page{Limit: 10})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
