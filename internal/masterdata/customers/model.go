package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Customer buys on cash or credit. Balance is what the customer owes and only
// the ledger moves it.
type Customer struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CustomerInput is the create/update payload. Balance is not accepted.
type CustomerInput struct {
	Name   string `json:"name" validate:"required,max=160"`
	Phone  string `json:"phone" validate:"omitempty,max=40"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search  string
	Status  string
	Debtors bool
	shared.Page
}

// Statement is the journal of a customer's balance account.
type Statement struct {
	Customer Customer                        `json:"customer"`
	Entries  shared.ListResult[ledger.Entry] `json:"entries"`
}
