package cars

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusRepair   = "repair"
)

// Car is a revenue unit. Balance accumulates invoice totals and Left the
// outstanding amount of its jobs and expenses; both are moved by the ledger only.
type Car struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	NumberPlate   string          `json:"numberPlate"`
	DriverID      *int64          `json:"driverId"`
	DriverName    string          `json:"driverName,omitempty"`
	KirishboyID   *int64          `json:"kirishboyId"`
	KirishboyName string          `json:"kirishboyName,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	Left          decimal.Decimal `json:"left"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CarInput is the create/update payload. Balance and left are not accepted.
type CarInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	NumberPlate string `json:"numberPlate" validate:"required,max=20"`
	DriverID    *int64 `json:"driverId" validate:"omitempty,gt=0"`
	KirishboyID *int64 `json:"kirishboyId" validate:"omitempty,gt=0"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive repair"`
	Notes       string `json:"notes" validate:"max=1000"`
}

// ListFilter narrows car listings.
type ListFilter struct {
	Search string
	Status string
	shared.Page
}
