// Package backup exports and restores the complete dataset as a JSON bundle
// or an Excel workbook.
package backup

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/billing/payments"
	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/masterdata/items"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// BundleVersion is written into every export and checked on import.
const BundleVersion = 1

// Bundle is the full dataset.
type Bundle struct {
	Version    int                  `json:"version"`
	ExportedAt time.Time            `json:"exportedAt"`
	Cars       []cars.Car           `json:"cars"`
	Employees  []employees.Employee `json:"employees"`
	Items      []items.Item         `json:"items"`
	Customers  []customers.Customer `json:"customers"`
	Invoices   []invoices.Invoice   `json:"invoices"`
	Payments   []payments.Payment   `json:"payments"`
}

// Stats counts the records of a bundle.
type Stats struct {
	Cars         int `json:"cars"`
	Employees    int `json:"employees"`
	Items        int `json:"items"`
	Customers    int `json:"customers"`
	Invoices     int `json:"invoices"`
	InvoiceItems int `json:"invoiceItems"`
	Payments     int `json:"payments"`
}

// Stats returns the record counts.
func (b Bundle) Stats() Stats {
	st := Stats{
		Cars:      len(b.Cars),
		Employees: len(b.Employees),
		Items:     len(b.Items),
		Customers: len(b.Customers),
		Invoices:  len(b.Invoices),
		Payments:  len(b.Payments),
	}
	for _, inv := range b.Invoices {
		st.InvoiceItems += len(inv.Items)
	}
	return st
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: backup: %s", shared.ErrValidation, fmt.Sprintf(format, args...))
}

func idSet[T any](kind string, rows []T, id func(T) int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		v := id(row)
		if v <= 0 {
			return nil, invalid("%s with id %d", kind, v)
		}
		if _, dup := set[v]; dup {
			return nil, invalid("duplicate %s id %d", kind, v)
		}
		set[v] = struct{}{}
	}
	return set, nil
}

func checkRef(set map[int64]struct{}, ref *int64, what string, owner string) error {
	if ref == nil {
		return nil
	}
	if _, ok := set[*ref]; !ok {
		return invalid("%s references unknown %s %d", owner, what, *ref)
	}
	return nil
}

// Validate checks ids, references, numbering and ledger fields before a
// bundle replaces the stored data.
func (b Bundle) Validate() error {
	if b.Version < 1 || b.Version > BundleVersion {
		return invalid("unsupported version %d", b.Version)
	}
	emps, err := idSet("employee", b.Employees, func(e employees.Employee) int64 { return e.ID })
	if err != nil {
		return err
	}
	carIDs, err := idSet("car", b.Cars, func(c cars.Car) int64 { return c.ID })
	if err != nil {
		return err
	}
	itemIDs, err := idSet("item", b.Items, func(i items.Item) int64 { return i.ID })
	if err != nil {
		return err
	}
	custIDs, err := idSet("customer", b.Customers, func(c customers.Customer) int64 { return c.ID })
	if err != nil {
		return err
	}
	if _, err := idSet("invoice", b.Invoices, func(i invoices.Invoice) int64 { return i.ID }); err != nil {
		return err
	}
	if _, err := idSet("payment", b.Payments, func(p payments.Payment) int64 { return p.ID }); err != nil {
		return err
	}

	for _, c := range b.Cars {
		owner := "car " + c.NumberPlate
		if err := checkRef(emps, c.DriverID, "employee", owner); err != nil {
			return err
		}
		if err := checkRef(emps, c.KirishboyID, "employee", owner); err != nil {
			return err
		}
		if c.Balance.IsNegative() || c.Left.IsNegative() {
			return invalid("%s has a negative balance", owner)
		}
	}
	for _, c := range b.Customers {
		if c.Balance.IsNegative() {
			return invalid("customer %d has a negative balance", c.ID)
		}
	}

	lineIDs := make(map[int64]struct{})
	numbers := make(map[string]struct{}, len(b.Invoices))
	for _, inv := range b.Invoices {
		owner := "invoice " + inv.InvoiceNo
		if _, ok := ledger.InvoiceSequence.Parse(inv.InvoiceNo); !ok {
			return invalid("invoice %d has malformed number %q", inv.ID, inv.InvoiceNo)
		}
		if _, dup := numbers[inv.InvoiceNo]; dup {
			return invalid("duplicate invoice number %s", inv.InvoiceNo)
		}
		numbers[inv.InvoiceNo] = struct{}{}
		carID := inv.CarID
		if err := checkRef(carIDs, &carID, "car", owner); err != nil {
			return err
		}
		for _, l := range inv.Items {
			if l.ID > 0 {
				if _, dup := lineIDs[l.ID]; dup {
					return invalid("duplicate invoice item id %d", l.ID)
				}
				lineIDs[l.ID] = struct{}{}
			}
			if err := checkRef(itemIDs, l.ItemID, "item", owner); err != nil {
				return err
			}
			if err := checkRef(custIDs, l.CustomerID, "customer", owner); err != nil {
				return err
			}
			if l.PaymentMethod != ledger.MethodCash && l.PaymentMethod != ledger.MethodCredit {
				return invalid("%s has payment method %q", owner, l.PaymentMethod)
			}
		}
	}

	numbers = make(map[string]struct{}, len(b.Payments))
	for _, p := range b.Payments {
		owner := "payment " + p.PaymentNo
		if _, ok := ledger.PaymentSequence.Parse(p.PaymentNo); !ok {
			return invalid("payment %d has malformed number %q", p.ID, p.PaymentNo)
		}
		if _, dup := numbers[p.PaymentNo]; dup {
			return invalid("duplicate payment number %s", p.PaymentNo)
		}
		numbers[p.PaymentNo] = struct{}{}
		if p.Type != ledger.PaymentReceive && p.Type != ledger.PaymentOut {
			return invalid("%s has type %q", owner, p.Type)
		}
		if err := checkRef(custIDs, p.CustomerID, "customer", owner); err != nil {
			return err
		}
		if err := checkRef(carIDs, p.CarID, "car", owner); err != nil {
			return err
		}
	}
	return nil
}

// Sequences returns the counter values that keep new numbers after the
// highest imported ones.
func (b Bundle) Sequences() map[string]int64 {
	invNos := make([]string, 0, len(b.Invoices))
	for _, inv := range b.Invoices {
		invNos = append(invNos, inv.InvoiceNo)
	}
	payNos := make([]string, 0, len(b.Payments))
	for _, p := range b.Payments {
		payNos = append(payNos, p.PaymentNo)
	}
	return map[string]int64{
		ledger.InvoiceSequence.Name: ledger.MaxNumber(invNos, ledger.InvoiceSequence.Prefix),
		ledger.PaymentSequence.Name: ledger.MaxNumber(payNos, ledger.PaymentSequence.Prefix),
	}
}

// Journal rebuilds ledger entries whose sums match the imported balances.
func (b Bundle) Journal(now time.Time) []ledger.Entry {
	balances := make(map[ledger.Account]decimal.Decimal, 2*len(b.Cars)+len(b.Customers))
	for _, c := range b.Cars {
		balances[ledger.CarBalance(c.ID)] = c.Balance
		balances[ledger.CarLeft(c.ID)] = c.Left
	}
	for _, c := range b.Customers {
		balances[ledger.CustomerBalance(c.ID)] = c.Balance
	}

	sources := make([]ledger.SourceEffects, 0, len(b.Invoices)+len(b.Payments))
	for _, inv := range b.Invoices {
		sources = append(sources, ledger.SourceEffects{
			Source:   ledger.Source{Kind: ledger.SourceInvoice, ID: inv.ID},
			Effects:  ledger.InvoiceEffects(invoices.Facts(inv)),
			PostedAt: inv.CreatedAt,
		})
	}
	for _, p := range b.Payments {
		sources = append(sources, ledger.SourceEffects{
			Source:   ledger.Source{Kind: ledger.SourcePayment, ID: p.ID},
			Effects:  ledger.PaymentEffects(payments.Facts(p)),
			PostedAt: p.CreatedAt,
		})
	}
	return ledger.Rebuild(balances, sources, now)
}
