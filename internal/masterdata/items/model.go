package items

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// Item is a catalogue entry that invoice lines may reference.
type Item struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ItemInput is the create/update payload.
type ItemInput struct {
	Name  string          `json:"name" validate:"required,max=160"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// ListFilter narrows item listings.
type ListFilter struct {
	Search string
	shared.Page
}
