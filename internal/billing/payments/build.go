package payments

import (
	"strings"

	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
)

func build(in PaymentInput) (Payment, error) {
	fields := map[string]string{}
	p := Payment{
		Type:       in.Type,
		CustomerID: positive(in.CustomerID),
		CarID:      positive(in.CarID),
		Amount:     in.Amount.Round(2),
	}
	switch p.Type {
	case ledger.PaymentReceive:
		if p.CustomerID == nil {
			fields["customerId"] = "is required for receive payments"
		}
		if p.CarID != nil {
			fields["carId"] = "must be empty for receive payments"
		}
	case ledger.PaymentOut:
		if (p.CarID == nil) == (p.CustomerID == nil) {
			fields["carId"] = "exactly one of carId or customerId is required"
		}
	default:
		fields["type"] = "must be one of: receive payment_out"
	}
	applyDetails(&p, UpdateInput{
		Amount:       in.Amount,
		PaymentDate:  in.PaymentDate,
		Description:  in.Description,
		Category:     in.Category,
		AccountMonth: in.AccountMonth,
	}, fields)
	if len(fields) > 0 {
		return Payment{}, &httpx.ValidationError{Fields: fields}
	}
	return p, nil
}

func applyDetails(p *Payment, in UpdateInput, fields map[string]string) {
	p.Amount = in.Amount.Round(2)
	if !p.Amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	p.PaymentDate = in.PaymentDate
	if p.PaymentDate.IsZero() {
		fields["paymentDate"] = "is required"
	}
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.AccountMonth = strings.TrimSpace(in.AccountMonth)
	if p.AccountMonth == "" {
		p.AccountMonth = p.PaymentDate.Month()
	}
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}
