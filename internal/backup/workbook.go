package backup

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/billing/payments"
	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/masterdata/items"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// Sheet names in workbook order.
const (
	SheetInfo         = "Backup_Info"
	SheetCars         = "Cars"
	SheetEmployees    = "Employees"
	SheetItems        = "Items"
	SheetCustomers    = "Customers"
	SheetInvoices     = "Invoices"
	SheetInvoiceItems = "Invoice_Items"
	SheetPayments     = "Payments"
)

// Headers are the fixed first rows of each sheet.
var Headers = map[string][]string{
	SheetInfo:         {"key", "value"},
	SheetCars:         {"id", "name", "number_plate", "driver_id", "kirishboy_id", "balance", "left", "status", "notes", "created_at", "updated_at"},
	SheetEmployees:    {"id", "name", "phone", "category", "balance", "status", "created_at", "updated_at"},
	SheetItems:        {"id", "name", "price", "created_at", "updated_at"},
	SheetCustomers:    {"id", "name", "phone", "balance", "status", "notes", "created_at", "updated_at"},
	SheetInvoices:     {"id", "invoice_no", "car_id", "date", "total", "total_left", "total_profit", "notes", "created_by", "created_at", "updated_at"},
	SheetInvoiceItems: {"id", "invoice_id", "item_id", "customer_id", "description", "quantity", "price", "total", "left_amount", "payment_method"},
	SheetPayments:     {"id", "payment_no", "type", "customer_id", "car_id", "amount", "payment_date", "description", "category", "account_month", "created_by", "created_at", "updated_at"},
}

// Sheets lists sheet names in workbook order.
var Sheets = []string{SheetInfo, SheetCars, SheetEmployees, SheetItems, SheetCustomers, SheetInvoices, SheetInvoiceItems, SheetPayments}

// WriteWorkbook renders the bundle as an xlsx document. Amounts and
// timestamps are stored as text so they read back exactly.
func WriteWorkbook(w io.Writer, b Bundle) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetInfo); err != nil {
		return err
	}
	for _, name := range Sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	st := b.Stats()
	data := map[string][][]string{
		SheetInfo: {
			{"version", strconv.Itoa(b.Version)},
			{"exported_at", formatTime(b.ExportedAt)},
			{"cars", strconv.Itoa(st.Cars)},
			{"employees", strconv.Itoa(st.Employees)},
			{"items", strconv.Itoa(st.Items)},
			{"customers", strconv.Itoa(st.Customers)},
			{"invoices", strconv.Itoa(st.Invoices)},
			{"invoice_items", strconv.Itoa(st.InvoiceItems)},
			{"payments", strconv.Itoa(st.Payments)},
		},
	}
	for _, c := range b.Cars {
		data[SheetCars] = append(data[SheetCars], []string{
			formatID(c.ID), c.Name, c.NumberPlate, formatRef(c.DriverID), formatRef(c.KirishboyID),
			c.Balance.String(), c.Left.String(), c.Status, c.Notes, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		})
	}
	for _, e := range b.Employees {
		data[SheetEmployees] = append(data[SheetEmployees], []string{
			formatID(e.ID), e.Name, e.Phone, string(e.Category), e.Balance.String(), e.Status,
			formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		})
	}
	for _, it := range b.Items {
		data[SheetItems] = append(data[SheetItems], []string{
			formatID(it.ID), it.Name, it.Price.String(), formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
		})
	}
	for _, c := range b.Customers {
		data[SheetCustomers] = append(data[SheetCustomers], []string{
			formatID(c.ID), c.Name, c.Phone, c.Balance.String(), c.Status, c.Notes,
			formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		})
	}
	for _, inv := range b.Invoices {
		data[SheetInvoices] = append(data[SheetInvoices], []string{
			formatID(inv.ID), inv.InvoiceNo, formatID(inv.CarID), inv.Date.String(), inv.Total.String(),
			inv.TotalLeft.String(), inv.TotalProfit.String(), inv.Notes, formatID(inv.CreatedBy),
			formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt),
		})
		for _, l := range inv.Items {
			data[SheetInvoiceItems] = append(data[SheetInvoiceItems], []string{
				formatID(l.ID), formatID(inv.ID), formatRef(l.ItemID), formatRef(l.CustomerID), l.Description,
				l.Quantity.String(), l.Price.String(), l.Total.String(), l.LeftAmount.String(), string(l.PaymentMethod),
			})
		}
	}
	for _, p := range b.Payments {
		data[SheetPayments] = append(data[SheetPayments], []string{
			formatID(p.ID), p.PaymentNo, string(p.Type), formatRef(p.CustomerID), formatRef(p.CarID),
			p.Amount.String(), p.PaymentDate.String(), p.Description, p.Category, p.AccountMonth,
			formatID(p.CreatedBy), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		})
	}

	for _, name := range Sheets {
		if err := writeRows(f, name, Headers[name], data[name]); err != nil {
			return fmt.Errorf("backup: sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]string) error {
	for i, row := range append([][]string{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// ReadWorkbook parses a workbook written by WriteWorkbook.
func ReadWorkbook(r io.Reader) (Bundle, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Bundle{}, invalid("unreadable workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := make(map[string][]*row, len(Sheets))
	for _, name := range Sheets {
		rows, err := readSheet(f, name)
		if err != nil {
			return Bundle{}, err
		}
		sheets[name] = rows
	}

	var b Bundle
	for _, rw := range sheets[SheetInfo] {
		switch rw.str(0) {
		case "version":
			b.Version = int(rw.int(1))
		case "exported_at":
			b.ExportedAt = rw.time(1)
		}
	}
	for _, rw := range sheets[SheetCars] {
		b.Cars = append(b.Cars, cars.Car{
			ID: rw.int(0), Name: rw.str(1), NumberPlate: rw.str(2), DriverID: rw.ref(3), KirishboyID: rw.ref(4),
			Balance: rw.decimal(5), Left: rw.decimal(6), Status: rw.str(7), Notes: rw.str(8),
			CreatedAt: rw.time(9), UpdatedAt: rw.time(10),
		})
	}
	for _, rw := range sheets[SheetEmployees] {
		b.Employees = append(b.Employees, employees.Employee{
			ID: rw.int(0), Name: rw.str(1), Phone: rw.str(2), Category: employees.Category(rw.str(3)),
			Balance: rw.decimal(4), Status: rw.str(5), CreatedAt: rw.time(6), UpdatedAt: rw.time(7),
		})
	}
	for _, rw := range sheets[SheetItems] {
		b.Items = append(b.Items, items.Item{
			ID: rw.int(0), Name: rw.str(1), Price: rw.decimal(2), CreatedAt: rw.time(3), UpdatedAt: rw.time(4),
		})
	}
	for _, rw := range sheets[SheetCustomers] {
		b.Customers = append(b.Customers, customers.Customer{
			ID: rw.int(0), Name: rw.str(1), Phone: rw.str(2), Balance: rw.decimal(3), Status: rw.str(4),
			Notes: rw.str(5), CreatedAt: rw.time(6), UpdatedAt: rw.time(7),
		})
	}
	lines := make(map[int64][]invoices.Line)
	for _, rw := range sheets[SheetInvoiceItems] {
		invoiceID := rw.int(1)
		lines[invoiceID] = append(lines[invoiceID], invoices.Line{
			ID: rw.int(0), ItemID: rw.ref(2), CustomerID: rw.ref(3), Description: rw.str(4),
			Quantity: rw.decimal(5), Price: rw.decimal(6), Total: rw.decimal(7), LeftAmount: rw.decimal(8),
			PaymentMethod: ledger.PaymentMethod(rw.str(9)),
		})
	}
	for _, rw := range sheets[SheetInvoices] {
		inv := invoices.Invoice{
			ID: rw.int(0), InvoiceNo: rw.str(1), CarID: rw.int(2), Date: rw.date(3), Total: rw.decimal(4),
			TotalLeft: rw.decimal(5), TotalProfit: rw.decimal(6), Notes: rw.str(7), CreatedBy: rw.int(8),
			CreatedAt: rw.time(9), UpdatedAt: rw.time(10),
		}
		inv.Items = lines[inv.ID]
		if inv.Items == nil {
			inv.Items = []invoices.Line{}
		}
		delete(lines, inv.ID)
		b.Invoices = append(b.Invoices, inv)
	}
	if len(lines) > 0 {
		orphans := slices.Sorted(maps.Keys(lines))
		return Bundle{}, invalid("sheet %s references unknown invoice %d", SheetInvoiceItems, orphans[0])
	}
	for _, rw := range sheets[SheetPayments] {
		b.Payments = append(b.Payments, payments.Payment{
			ID: rw.int(0), PaymentNo: rw.str(1), Type: ledger.PaymentType(rw.str(2)), CustomerID: rw.ref(3),
			CarID: rw.ref(4), Amount: rw.decimal(5), PaymentDate: rw.date(6), Description: rw.str(7),
			Category: rw.str(8), AccountMonth: rw.str(9), CreatedBy: rw.int(10),
			CreatedAt: rw.time(11), UpdatedAt: rw.time(12),
		})
	}

	for _, name := range Sheets {
		for _, rw := range sheets[name] {
			if rw.err != nil {
				return Bundle{}, rw.err
			}
		}
	}
	return b, nil
}

func readSheet(f *excelize.File, name string) ([]*row, error) {
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, invalid("missing sheet %s", name)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	header := Headers[name]
	if len(rows) == 0 || !slices.Equal(trimRow(rows[0]), header) {
		return nil, invalid("sheet %s must start with header %s", name, strings.Join(header, ","))
	}
	out := make([]*row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if len(trimRow(cells)) == 0 {
			continue
		}
		out = append(out, &row{sheet: name, line: i + 2, cells: cells})
	}
	return out, nil
}

func trimRow(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}

// row reads typed cells and keeps the first parse error.
type row struct {
	sheet string
	line  int
	cells []string
	err   error
}

func (r *row) fail(col int, value string) {
	if r.err == nil {
		r.err = invalid("sheet %s row %d column %d: bad value %q", r.sheet, r.line, col+1, value)
	}
}

func (r *row) str(col int) string {
	if col >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[col])
}

func (r *row) int(col int) int64 {
	s := r.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.fail(col, s)
	}
	return v
}

func (r *row) ref(col int) *int64 {
	if r.str(col) == "" {
		return nil
	}
	v := r.int(col)
	return &v
}

func (r *row) decimal(col int) decimal.Decimal {
	s := r.str(col)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		r.fail(col, s)
	}
	return d
}

func (r *row) date(col int) shared.Date {
	s := r.str(col)
	d, err := shared.ParseDate(s)
	if err != nil {
		r.fail(col, s)
	}
	return d
}

func (r *row) time(col int) time.Time {
	s := r.str(col)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.fail(col, s)
	}
	return t
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func formatRef(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
