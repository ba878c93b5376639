package ledger

import "github.com/shopspring/decimal"

// InvoiceLineFacts is the part of an invoice line the bookkeeping rules read.
type InvoiceLineFacts struct {
	CustomerID int64
	Total      decimal.Decimal
	Method     PaymentMethod
}

// InvoiceFacts is the part of an invoice the bookkeeping rules read.
type InvoiceFacts struct {
	CarID     int64
	Total     decimal.Decimal
	TotalLeft decimal.Decimal
	Lines     []InvoiceLineFacts
}

// InvoiceEffects distributes an invoice over its car and customers.
//
// The car balance always grows by the full invoice total whatever the mix of
// payment methods; the car's outstanding amount grows by totalLeft when positive;
// each credit line raises its customer's balance by the line total while cash
// lines leave customers untouched.
func InvoiceEffects(inv InvoiceFacts) []Effect {
	effects := make([]Effect, 0, len(inv.Lines)+2)
	if inv.CarID > 0 {
		effects = append(effects, Effect{Account: CarBalance(inv.CarID), Amount: inv.Total})
		if inv.TotalLeft.IsPositive() {
			effects = append(effects, Effect{Account: CarLeft(inv.CarID), Amount: inv.TotalLeft})
		}
	}
	for _, line := range inv.Lines {
		if line.Method != MethodCredit || line.CustomerID <= 0 {
			continue
		}
		effects = append(effects, Effect{Account: CustomerBalance(line.CustomerID), Amount: line.Total})
	}
	return mergeEffects(effects)
}

// PaymentFacts is the part of a payment the bookkeeping rules read.
type PaymentFacts struct {
	Type       PaymentType
	CustomerID int64
	CarID      int64
	Amount     decimal.Decimal
}

// PaymentEffects returns the counterpart movement of a payment.
//
// A receive settles customer debt. A payment out against a car is an expense
// added to the car's outstanding amount; paid out to a customer it raises what
// that customer owes.
func PaymentEffects(p PaymentFacts) []Effect {
	var effects []Effect
	switch p.Type {
	case PaymentReceive:
		if p.CustomerID > 0 {
			effects = append(effects, Effect{Account: CustomerBalance(p.CustomerID), Amount: p.Amount.Neg()})
		}
	case PaymentOut:
		if p.CarID > 0 {
			effects = append(effects, Effect{Account: CarLeft(p.CarID), Amount: p.Amount})
		}
		if p.CustomerID > 0 {
			effects = append(effects, Effect{Account: CustomerBalance(p.CustomerID), Amount: p.Amount})
		}
	}
	return mergeEffects(effects)
}

func mergeEffects(effects []Effect) []Effect {
	sums := make(map[Account]decimal.Decimal, len(effects))
	for _, e := range effects {
		sums[e.Account] = sums[e.Account].Add(e.Amount)
	}
	accts := make([]Account, 0, len(sums))
	for acct, amt := range sums {
		if amt.IsZero() {
			continue
		}
		accts = append(accts, acct)
	}
	sortAccounts(accts)
	out := make([]Effect, 0, len(accts))
	for _, acct := range accts {
		out = append(out, Effect{Account: acct, Amount: sums[acct]})
	}
	return out
}
