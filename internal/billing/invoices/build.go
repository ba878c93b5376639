package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
)

// build turns input into an invoice with server-side totals.
func build(in InvoiceInput) (Invoice, error) {
	fields := map[string]string{}
	if in.CarID <= 0 {
		fields["carId"] = "is required"
	}
	if in.Date.IsZero() {
		fields["date"] = "is required"
	}
	if len(in.Items) == 0 {
		fields["items"] = "is required"
	}

	inv := Invoice{
		CarID:       in.CarID,
		Date:        in.Date,
		Notes:       strings.TrimSpace(in.Notes),
		Items:       make([]Line, 0, len(in.Items)),
		Total:       decimal.Zero,
		TotalLeft:   decimal.Zero,
		TotalProfit: decimal.Zero,
	}
	for i, li := range in.Items {
		path := fmt.Sprintf("items[%d]", i)
		if !li.Quantity.IsPositive() {
			fields[path+".quantity"] = "must be greater than zero"
		}
		if li.Price.IsNegative() {
			fields[path+".price"] = "must not be negative"
		}
		if li.PaymentMethod != ledger.MethodCash && li.PaymentMethod != ledger.MethodCredit {
			fields[path+".paymentMethod"] = "must be one of: cash credit"
		}
		customerID := positive(li.CustomerID)
		if li.PaymentMethod == ledger.MethodCredit && customerID == nil {
			fields[path+".customerId"] = "is required for credit lines"
		}

		total := li.Quantity.Mul(li.Price).Round(2)
		left := li.LeftAmount.Round(2)
		if left.IsNegative() || left.GreaterThan(total) {
			fields[path+".leftAmount"] = "must be between 0 and the line total"
		}

		inv.Items = append(inv.Items, Line{
			ItemID:        positive(li.ItemID),
			CustomerID:    customerID,
			Description:   strings.TrimSpace(li.Description),
			Quantity:      li.Quantity,
			Price:         li.Price,
			Total:         total,
			LeftAmount:    left,
			PaymentMethod: li.PaymentMethod,
		})
		inv.Total = inv.Total.Add(total)
		inv.TotalLeft = inv.TotalLeft.Add(left)
	}
	if len(fields) > 0 {
		return Invoice{}, &httpx.ValidationError{Fields: fields}
	}
	return inv, nil
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}
