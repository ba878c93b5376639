package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func id(v int64) *int64 { return &v }

func today() shared.Date {
	out, _ := shared.ParseDate("2024-06-15")
	return out
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	repo.addCar(1, d("100"))
	repo.addCustomer(5, d("500"))
	repo.addCustomer(6, d("60"))
	return NewService(repo, nil, nil, nil), repo
}

func TestReceiveLowersCustomerBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.Receive(ctx, PaymentInput{CustomerID: id(5), Amount: d("120"), PaymentDate: today()}, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentReceive, p.Type)
	assert.Equal(t, "PYN-0001", p.PaymentNo)
	assert.Equal(t, "2024-06", p.AccountMonth)
	assert.Equal(t, "380", repo.store.Balance(ledger.CustomerBalance(5)).String())
}

func TestReceiveClampsAtZero(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.Receive(ctx, PaymentInput{CustomerID: id(6), Amount: d("100"), PaymentDate: today()}, "")
	require.NoError(t, err)
	assert.Equal(t, "0", repo.store.Balance(ledger.CustomerBalance(6)).String())

	_, err = svc.Update(ctx, p.ID, UpdateInput{Amount: d("50"), PaymentDate: today()})
	require.NoError(t, err)
	assert.Equal(t, "10", repo.store.Balance(ledger.CustomerBalance(6)).String())

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, "60", repo.store.Balance(ledger.CustomerBalance(6)).String())
}

func TestPayOutTargets(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.PayOut(ctx, PaymentInput{CarID: id(1), Amount: d("30"), PaymentDate: today(), Category: "fuel"}, "")
	require.NoError(t, err)
	assert.Equal(t, "130", repo.store.Balance(ledger.CarLeft(1)).String())
	assert.Equal(t, "0", repo.store.Balance(ledger.CarBalance(1)).String())

	_, err = svc.PayOut(ctx, PaymentInput{CustomerID: id(6), Amount: d("15"), PaymentDate: today()}, "")
	require.NoError(t, err)
	assert.Equal(t, "75", repo.store.Balance(ledger.CustomerBalance(6)).String())
}

func TestUpdateAppliesOnlyDifference(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.PayOut(ctx, PaymentInput{CarID: id(1), Amount: d("40"), PaymentDate: today()}, "")
	require.NoError(t, err)
	require.Equal(t, "140", repo.store.Balance(ledger.CarLeft(1)).String())

	updated, err := svc.Update(ctx, p.ID, UpdateInput{Amount: d("25"), PaymentDate: today(), Description: "diesel"})
	require.NoError(t, err)
	assert.Equal(t, "25", updated.Amount.String())
	assert.Equal(t, "diesel", updated.Description)
	assert.Equal(t, ledger.PaymentOut, updated.Type)
	assert.Equal(t, "125", repo.store.Balance(ledger.CarLeft(1)).String())

	entries := repo.store.EntriesByAccount(ledger.CarLeft(1))
	require.Len(t, entries, 3, "opening, creation and edit")
	assert.Equal(t, "-15", entries[2].Requested.String())
}

func TestEditForwardAndBackRestoresCounterpart(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	in, err := svc.Receive(ctx, PaymentInput{CustomerID: id(5), Amount: d("100"), PaymentDate: today()}, "")
	require.NoError(t, err)
	out, err := svc.PayOut(ctx, PaymentInput{CarID: id(1), Amount: d("100"), PaymentDate: today()}, "")
	require.NoError(t, err)
	require.Equal(t, "400", repo.store.Balance(ledger.CustomerBalance(5)).String())
	require.Equal(t, "200", repo.store.Balance(ledger.CarLeft(1)).String())

	for _, p := range []Payment{in, out} {
		_, err = svc.Update(ctx, p.ID, UpdateInput{Amount: d("150"), PaymentDate: today()})
		require.NoError(t, err)
	}
	assert.Equal(t, "350", repo.store.Balance(ledger.CustomerBalance(5)).String())
	assert.Equal(t, "250", repo.store.Balance(ledger.CarLeft(1)).String())

	for _, p := range []Payment{in, out} {
		_, err = svc.Update(ctx, p.ID, UpdateInput{Amount: d("100"), PaymentDate: today()})
		require.NoError(t, err)
	}
	assert.Equal(t, "400", repo.store.Balance(ledger.CustomerBalance(5)).String())
	assert.Equal(t, "200", repo.store.Balance(ledger.CarLeft(1)).String())

	balances, sums, err := repo.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, ledger.Verify(balances, sums))
}

func TestEditForwardAndBackFromClampedBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.Receive(ctx, PaymentInput{CustomerID: id(6), Amount: d("100"), PaymentDate: today()}, "")
	require.NoError(t, err)
	require.Equal(t, "0", repo.store.Balance(ledger.CustomerBalance(6)).String())

	_, err = svc.Update(ctx, p.ID, UpdateInput{Amount: d("150"), PaymentDate: today()})
	require.NoError(t, err)
	assert.Equal(t, "0", repo.store.Balance(ledger.CustomerBalance(6)).String())

	_, err = svc.Update(ctx, p.ID, UpdateInput{Amount: d("100"), PaymentDate: today()})
	require.NoError(t, err)
	assert.Equal(t, "0", repo.store.Balance(ledger.CustomerBalance(6)).String())

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, "60", repo.store.Balance(ledger.CustomerBalance(6)).String())

	balances, sums, err := repo.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, ledger.Verify(balances, sums))
}

func TestDeleteBranchesOnType(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	out, err := svc.PayOut(ctx, PaymentInput{CustomerID: id(5), Amount: d("50"), PaymentDate: today()}, "")
	require.NoError(t, err)
	in, err := svc.Receive(ctx, PaymentInput{CustomerID: id(5), Amount: d("80"), PaymentDate: today()}, "")
	require.NoError(t, err)
	require.Equal(t, "470", repo.store.Balance(ledger.CustomerBalance(5)).String())

	require.NoError(t, svc.Delete(ctx, in.ID))
	assert.Equal(t, "550", repo.store.Balance(ledger.CustomerBalance(5)).String())
	require.NoError(t, svc.Delete(ctx, out.ID))
	assert.Equal(t, "500", repo.store.Balance(ledger.CustomerBalance(5)).String())
	assert.Empty(t, repo.payments)
}

func TestCreateValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		in    PaymentInput
		field string
	}{
		{"receive without customer", PaymentInput{Type: ledger.PaymentReceive, Amount: d("1"), PaymentDate: today()}, "customerId"},
		{"receive with car", PaymentInput{Type: ledger.PaymentReceive, CustomerID: id(5), CarID: id(1), Amount: d("1"), PaymentDate: today()}, "carId"},
		{"payout to both", PaymentInput{Type: ledger.PaymentOut, CustomerID: id(5), CarID: id(1), Amount: d("1"), PaymentDate: today()}, "carId"},
		{"payout to nobody", PaymentInput{Type: ledger.PaymentOut, Amount: d("1"), PaymentDate: today()}, "carId"},
		{"zero amount", PaymentInput{Type: ledger.PaymentReceive, CustomerID: id(5), PaymentDate: today()}, "amount"},
		{"missing date", PaymentInput{Type: ledger.PaymentReceive, CustomerID: id(5), Amount: d("1")}, "paymentDate"},
		{"missing type", PaymentInput{CustomerID: id(5), Amount: d("1"), PaymentDate: today()}, "type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in, "")
			var verr *httpx.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
	assert.Empty(t, repo.payments)
}

func TestUnknownCustomerRollsBack(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Receive(ctx, PaymentInput{CustomerID: id(77), Amount: d("10"), PaymentDate: today()}, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.payments)

	next, err := svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PYN-0001", next)
}
