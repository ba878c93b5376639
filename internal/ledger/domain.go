// Package ledger owns the balance bookkeeping of cars and customers.
//
// Documents (invoices, payments) never write balances directly. They describe the
// effect they intend to have on each account and Post moves the accounts from the
// effect already applied to the intended one, writing a journal entry per move.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// AccountKind names a balance column that the ledger maintains.
type AccountKind string

const (
	// AccountCarBalance is the cumulative invoice revenue of a car.
	AccountCarBalance AccountKind = "car_balance"
	// AccountCarLeft is the outstanding amount tied to a car's jobs and expenses.
	AccountCarLeft AccountKind = "car_left"
	// AccountCustomerBalance is the credit a customer owes the company.
	AccountCustomerBalance AccountKind = "customer_balance"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountCarBalance, AccountCarLeft, AccountCustomerBalance:
		return true
	}
	return false
}

// Account identifies one balance of one entity.
type Account struct {
	Kind AccountKind `json:"kind"`
	ID   int64       `json:"id"`
}

func (a Account) String() string {
	return fmt.Sprintf("%s:%d", a.Kind, a.ID)
}

// CarBalance returns the balance account of a car.
func CarBalance(carID int64) Account { return Account{Kind: AccountCarBalance, ID: carID} }

// CarLeft returns the outstanding account of a car.
func CarLeft(carID int64) Account { return Account{Kind: AccountCarLeft, ID: carID} }

// CustomerBalance returns the balance account of a customer.
func CustomerBalance(customerID int64) Account {
	return Account{Kind: AccountCustomerBalance, ID: customerID}
}

// SourceKind names the document type that caused a journal entry.
type SourceKind string

const (
	SourceInvoice SourceKind = "invoice"
	SourcePayment SourceKind = "payment"
	// SourceOpening marks balances carried in by a backup import.
	SourceOpening SourceKind = "opening"
)

// Source identifies the document behind a journal entry.
type Source struct {
	Kind SourceKind `json:"kind"`
	ID   int64      `json:"id"`
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Effect is the total contribution a document intends to make to an account.
type Effect struct {
	Account Account
	Amount  decimal.Decimal
}

// Adjustment is a change still to be applied to an account.
type Adjustment struct {
	Account Account
	Delta   decimal.Decimal
}

// Entry is a posted journal row. Requested is the delta the plan asked for and
// Applied what actually moved after clamping.
type Entry struct {
	ID           int64           `json:"id"`
	Account      Account         `json:"account"`
	Source       Source          `json:"source"`
	Requested    decimal.Decimal `json:"requested"`
	Applied      decimal.Decimal `json:"applied"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Memo         string          `json:"memo,omitempty"`
	PostedAt     time.Time       `json:"postedAt"`
}

// ErrAccountNotFound is returned when a document points at a car or customer that does not exist.
var ErrAccountNotFound = fmt.Errorf("%w: ledger account not found", shared.ErrValidation)

// ErrUnknownAccountKind is returned by stores for unmapped kinds.
var ErrUnknownAccountKind = fmt.Errorf("%w: unknown ledger account kind", shared.ErrValidation)

// PaymentMethod is how an invoice line is settled.
type PaymentMethod string

const (
	// MethodCash lines are settled on the spot and never touch customer balance.
	MethodCash PaymentMethod = "cash"
	// MethodCredit lines are deferred and raise the customer's balance.
	MethodCredit PaymentMethod = "credit"
)

// PaymentType is the direction of a payment.
type PaymentType string

const (
	// PaymentReceive is money received from a customer.
	PaymentReceive PaymentType = "receive"
	// PaymentOut is money paid out against a car or to a customer.
	PaymentOut PaymentType = "payment_out"
)

func sortAccounts(accts []Account) {
	// Fixed lock order across transactions.
	sort.Slice(accts, func(i, j int) bool {
		if accts[i].Kind != accts[j].Kind {
			return accts[i].Kind < accts[j].Kind
		}
		return accts[i].ID < accts[j].ID
	})
}
