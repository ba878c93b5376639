// Package dashboard aggregates fleet, receivable and cash figures for the home screen.
package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// Filter is the reporting period. Both ends are inclusive.
type Filter struct {
	From shared.Date `json:"from"`
	To   shared.Date `json:"to"`
}

// Counts are the sizes of the master data sets.
type Counts struct {
	Cars       int `json:"cars"`
	ActiveCars int `json:"activeCars"`
	Employees  int `json:"employees"`
	Customers  int `json:"customers"`
	Items      int `json:"items"`
	Invoices   int `json:"invoices"`
}

// Totals are ledger balances as of now.
type Totals struct {
	CarBalance  decimal.Decimal `json:"carBalance"`
	CarLeft     decimal.Decimal `json:"carLeft"`
	Receivables decimal.Decimal `json:"receivables"`
}

// PeriodFigures are document sums within the filter period.
type PeriodFigures struct {
	Invoiced    decimal.Decimal `json:"invoiced"`
	CashSales   decimal.Decimal `json:"cashSales"`
	CreditSales decimal.Decimal `json:"creditSales"`
	Received    decimal.Decimal `json:"received"`
	PaidOut     decimal.Decimal `json:"paidOut"`
}

// Debtor is a customer with an outstanding balance.
type Debtor struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// MonthAmount is a sum per account month.
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the dashboard payload.
type Summary struct {
	Filter     Filter        `json:"filter"`
	Counts     Counts        `json:"counts"`
	Totals     Totals        `json:"totals"`
	Period     PeriodFigures `json:"period"`
	TopDebtors []Debtor      `json:"topDebtors"`
	Payouts    []MonthAmount `json:"payouts"`
}

const topDebtorLimit = 5
