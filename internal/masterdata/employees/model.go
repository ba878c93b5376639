package employees

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// Category is the role an employee fills on a car crew.
type Category string

const (
	CategoryDriver    Category = "driver"
	CategoryKirishboy Category = "kirishboy"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Employee is a crew member. Balance is maintained by hand; no document posts to it.
type Employee struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Category  Category        `json:"category"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// EmployeeInput is the create/update payload.
type EmployeeInput struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Phone    string          `json:"phone" validate:"omitempty,max=40"`
	Category Category        `json:"category" validate:"required,oneof=driver kirishboy"`
	Balance  decimal.Decimal `json:"balance"`
	Status   string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ListFilter narrows employee listings.
type ListFilter struct {
	Search   string
	Category Category
	Status   string
	shared.Page
}
