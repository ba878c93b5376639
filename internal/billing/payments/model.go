package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Payment is money received from a customer or paid out against a car or to a customer.
type Payment struct {
	ID           int64              `json:"id"`
	PaymentNo    string             `json:"paymentNo"`
	Type         ledger.PaymentType `json:"type"`
	CustomerID   *int64             `json:"customerId"`
	CustomerName string             `json:"customerName,omitempty"`
	CarID        *int64             `json:"carId"`
	CarName      string             `json:"carName,omitempty"`
	Amount       decimal.Decimal    `json:"amount"`
	PaymentDate  shared.Date        `json:"paymentDate"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	AccountMonth string             `json:"accountMonth"`
	CreatedBy    int64              `json:"createdBy"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// PaymentInput is the creation payload. Type is implied by the receive and
// payment-out endpoints.
type PaymentInput struct {
	Type         ledger.PaymentType `json:"type" validate:"omitempty,oneof=receive payment_out"`
	CustomerID   *int64             `json:"customerId" validate:"omitempty,gt=0"`
	CarID        *int64             `json:"carId" validate:"omitempty,gt=0"`
	Amount       decimal.Decimal    `json:"amount" validate:"gt=0"`
	PaymentDate  shared.Date        `json:"paymentDate"`
	Description  string             `json:"description" validate:"max=500"`
	Category     string             `json:"category" validate:"max=60"`
	AccountMonth string             `json:"accountMonth" validate:"omitempty,datetime=2006-01"`
}

// UpdateInput changes a payment. Type and counterpart are fixed once created.
type UpdateInput struct {
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate  shared.Date     `json:"paymentDate"`
	Description  string          `json:"description" validate:"max=500"`
	Category     string          `json:"category" validate:"max=60"`
	AccountMonth string          `json:"accountMonth" validate:"omitempty,datetime=2006-01"`
}

// ListFilter narrows payment listings.
type ListFilter struct {
	Type         ledger.PaymentType
	CustomerID   int64
	CarID        int64
	AccountMonth string
	From         shared.Date
	To           shared.Date
	shared.Page
}

// Facts extracts what the ledger needs from a payment.
func Facts(p Payment) ledger.PaymentFacts {
	facts := ledger.PaymentFacts{Type: p.Type, Amount: p.Amount}
	if p.CustomerID != nil {
		facts.CustomerID = *p.CustomerID
	}
	if p.CarID != nil {
		facts.CarID = *p.CarID
	}
	return facts
}
