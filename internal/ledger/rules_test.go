package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amounts(effects []Effect) map[Account]string {
	out := make(map[Account]string, len(effects))
	for _, e := range effects {
		out[e.Account] = e.Amount.String()
	}
	return out
}

func TestInvoiceEffectsDistribution(t *testing.T) {
	inv := InvoiceFacts{
		CarID:     7,
		Total:     d("450"),
		TotalLeft: d("120"),
		Lines: []InvoiceLineFacts{
			{CustomerID: 1, Total: d("200"), Method: MethodCredit},
			{CustomerID: 2, Total: d("100"), Method: MethodCash},
			{CustomerID: 1, Total: d("150"), Method: MethodCredit},
		},
	}

	got := amounts(InvoiceEffects(inv))
	assert.Equal(t, map[Account]string{
		CarBalance(7):      "450",
		CarLeft(7):         "120",
		CustomerBalance(1): "350",
	}, got)
}

func TestInvoiceEffectsCarBalanceIgnoresPaymentMix(t *testing.T) {
	allCash := InvoiceFacts{CarID: 3, Total: d("90"), Lines: []InvoiceLineFacts{
		{CustomerID: 4, Total: d("90"), Method: MethodCash},
	}}
	allCredit := InvoiceFacts{CarID: 3, Total: d("90"), Lines: []InvoiceLineFacts{
		{CustomerID: 4, Total: d("90"), Method: MethodCredit},
	}}

	cash := amounts(InvoiceEffects(allCash))
	credit := amounts(InvoiceEffects(allCredit))
	assert.Equal(t, "90", cash[CarBalance(3)])
	assert.Equal(t, "90", credit[CarBalance(3)])
	assert.NotContains(t, cash, CustomerBalance(4))
	assert.Equal(t, "90", credit[CustomerBalance(4)])
}

func TestInvoiceEffectsSkipsZeroLeft(t *testing.T) {
	effects := InvoiceEffects(InvoiceFacts{CarID: 1, Total: d("10"), TotalLeft: decimal.Zero})
	require.Len(t, effects, 1)
	assert.Equal(t, CarBalance(1), effects[0].Account)
}

func TestPaymentEffectsBranchOnType(t *testing.T) {
	cases := []struct {
		name string
		in   PaymentFacts
		want map[Account]string
	}{
		{"receive", PaymentFacts{Type: PaymentReceive, CustomerID: 2, Amount: d("40")},
			map[Account]string{CustomerBalance(2): "-40"}},
		{"payout to car", PaymentFacts{Type: PaymentOut, CarID: 5, Amount: d("25")},
			map[Account]string{CarLeft(5): "25"}},
		{"payout to customer", PaymentFacts{Type: PaymentOut, CustomerID: 2, Amount: d("30")},
			map[Account]string{CustomerBalance(2): "30"}},
		{"unknown type", PaymentFacts{Type: "refund", CustomerID: 2, Amount: d("30")},
			map[Account]string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, amounts(PaymentEffects(tc.in)))
		})
	}
}

func TestPlanDeterministicOrder(t *testing.T) {
	intended := []Effect{
		{Account: CustomerBalance(9), Amount: d("5")},
		{Account: CarBalance(2), Amount: d("5")},
		{Account: CarBalance(1), Amount: d("5")},
	}
	posted := []Entry{{Account: CarLeft(1), Applied: d("3")}}

	adjs := Plan(intended, posted)
	require.Len(t, adjs, 4)
	assert.Equal(t, []Account{CarBalance(1), CarBalance(2), CarLeft(1), CustomerBalance(9)},
		[]Account{adjs[0].Account, adjs[1].Account, adjs[2].Account, adjs[3].Account})
	assert.Equal(t, "-3", adjs[2].Delta.String())
}

func TestPlanNoopWhenAlreadyApplied(t *testing.T) {
	intended := []Effect{{Account: CarBalance(1), Amount: d("10")}}
	posted := []Entry{
		{Account: CarBalance(1), Applied: d("4")},
		{Account: CarBalance(1), Applied: d("6")},
	}
	assert.Empty(t, Plan(intended, posted))
}

func TestClamp(t *testing.T) {
	cases := []struct {
		balance, delta, next, applied string
	}{
		{"100", "50", "150", "50"},
		{"100", "-40", "60", "-40"},
		{"30", "-50", "0", "-30"},
		{"0", "-10", "0", "0"},
		{"-20", "-5", "-20", "0"},
		{"-20", "5", "-15", "5"},
	}
	for _, tc := range cases {
		next, applied := Clamp(d(tc.balance), d(tc.delta))
		assert.Equal(t, tc.next, next.String(), "next for %s %s", tc.balance, tc.delta)
		assert.Equal(t, tc.applied, applied.String(), "applied for %s %s", tc.balance, tc.delta)
	}
}

func TestNumbering(t *testing.T) {
	assert.Equal(t, "INV-001", InvoiceSequence.Next(nil))
	assert.Equal(t, "PYN-0001", PaymentSequence.Next([]string{"garbage", "INV-004"}))
	assert.Equal(t, "INV-013", InvoiceSequence.Next([]string{"INV-002", "INV-012", "INV-x", "INV-007"}))
	assert.Equal(t, "PYN-10000", PaymentSequence.Format(10000))

	n, ok := ParseNumber(" PYN-0042 ", "PYN-")
	require.True(t, ok)
	assert.EqualValues(t, 42, n)

	_, ok = ParseNumber("INV-", "INV-")
	assert.False(t, ok)
	_, ok = ParseNumber("INV--3", "INV-")
	assert.False(t, ok)
	for _, bad := range []string{"INV-+5", "INV-1_000", "INV-٣", "INV- 7"} {
		_, ok = ParseNumber(bad, "INV-")
		assert.False(t, ok, bad)
	}
}

func TestVerify(t *testing.T) {
	balances := map[Account]decimal.Decimal{
		CarBalance(1):      d("100"),
		CustomerBalance(2): d("40"),
	}
	sums := map[Account]decimal.Decimal{
		CarBalance(1):      d("100"),
		CustomerBalance(2): d("35"),
		CarLeft(3):         d("5"),
	}
	drifts := Verify(balances, sums)
	require.Len(t, drifts, 2)
	assert.Equal(t, CarLeft(3), drifts[0].Account)
	assert.Equal(t, "-5", drifts[0].Diff.String())
	assert.Equal(t, CustomerBalance(2), drifts[1].Account)
	assert.Equal(t, "5", drifts[1].Diff.String())
}
