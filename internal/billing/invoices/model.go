package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Line is one row of an invoice. Total is quantity times price.
type Line struct {
	ID            int64                `json:"id"`
	ItemID        *int64               `json:"itemId"`
	CustomerID    *int64               `json:"customerId"`
	CustomerName  string               `json:"customerName,omitempty"`
	Description   string               `json:"description"`
	Quantity      decimal.Decimal      `json:"quantity"`
	Price         decimal.Decimal      `json:"price"`
	Total         decimal.Decimal      `json:"total"`
	LeftAmount    decimal.Decimal      `json:"leftAmount"`
	PaymentMethod ledger.PaymentMethod `json:"paymentMethod"`
}

// Invoice bills the work of one car. TotalProfit stays zero until a monthly
// close computes it.
type Invoice struct {
	ID          int64           `json:"id"`
	InvoiceNo   string          `json:"invoiceNo"`
	CarID       int64           `json:"carId"`
	CarName     string          `json:"carName,omitempty"`
	Date        shared.Date     `json:"date"`
	Items       []Line          `json:"items"`
	Total       decimal.Decimal `json:"total"`
	TotalLeft   decimal.Decimal `json:"totalLeft"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	Notes       string          `json:"notes"`
	CreatedBy   int64           `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LineInput is an invoice line as submitted. Totals are computed server-side.
type LineInput struct {
	ItemID        *int64               `json:"itemId" validate:"omitempty,gt=0"`
	CustomerID    *int64               `json:"customerId" validate:"omitempty,gt=0"`
	Description   string               `json:"description" validate:"max=500"`
	Quantity      decimal.Decimal      `json:"quantity" validate:"gt=0"`
	Price         decimal.Decimal      `json:"price" validate:"gte=0"`
	LeftAmount    decimal.Decimal      `json:"leftAmount" validate:"gte=0"`
	PaymentMethod ledger.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash credit"`
}

// InvoiceInput is the create/update payload.
type InvoiceInput struct {
	CarID int64       `json:"carId" validate:"required,gt=0"`
	Date  shared.Date `json:"date"`
	Items []LineInput `json:"items" validate:"required,min=1,max=200,dive"`
	Notes string      `json:"notes" validate:"max=2000"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	CarID      int64
	CustomerID int64
	From       shared.Date
	To         shared.Date
	Search     string
	shared.Page
}

// Facts extracts what the ledger needs from an invoice.
func Facts(inv Invoice) ledger.InvoiceFacts {
	facts := ledger.InvoiceFacts{
		CarID:     inv.CarID,
		Total:     inv.Total,
		TotalLeft: inv.TotalLeft,
		Lines:     make([]ledger.InvoiceLineFacts, 0, len(inv.Items)),
	}
	for _, line := range inv.Items {
		lf := ledger.InvoiceLineFacts{Total: line.Total, Method: line.PaymentMethod}
		if line.CustomerID != nil {
			lf.CustomerID = *line.CustomerID
		}
		facts.Lines = append(facts.Lines, lf)
	}
	return facts
}
