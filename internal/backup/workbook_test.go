package backup

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fleetbook/fleetbook/internal/shared"
)

func TestWorkbookRoundTrip(t *testing.T) {
	in := sampleBundle()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, in))

	out, err := ReadWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, in.Version, out.Version)
	assert.True(t, in.ExportedAt.Equal(out.ExportedAt))
	require.Len(t, out.Cars, 1)
	assert.Equal(t, "01 A 123 BC", out.Cars[0].NumberPlate)
	assert.Equal(t, int64(1), *out.Cars[0].DriverID)
	assert.True(t, out.Cars[0].Left.Equal(dec("50")))
	assert.True(t, out.Employees[1].Balance.Equal(dec("12.5")))
	assert.Nil(t, out.Payments[0].CarID)
	assert.Equal(t, "2024-04-01", out.Payments[0].PaymentDate.String())

	require.Len(t, out.Invoices, 1)
	require.Len(t, out.Invoices[0].Items, 1)
	line := out.Invoices[0].Items[0]
	assert.Equal(t, in.Invoices[0].Items[0].PaymentMethod, line.PaymentMethod)
	assert.True(t, line.LeftAmount.Equal(dec("50")))
	assert.Equal(t, int64(10), *line.CustomerID)

	assert.Equal(t, in.Journal(created), out.Journal(created))
}

func TestWorkbookHasFixedSheetsAndHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, Bundle{Version: BundleVersion}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, Sheets, f.GetSheetList())
	for _, name := range Sheets {
		rows, err := f.GetRows(name)
		require.NoError(t, err)
		require.NotEmpty(t, rows, name)
		assert.Equal(t, Headers[name], rows[0], name)
	}
}

func TestReadWorkbookRejectsForeignLayout(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"whatever"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ReadWorkbook(&buf)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReadWorkbookReportsBadCell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleBundle()))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(SheetCars, "F2", "lots"))
	var edited bytes.Buffer
	require.NoError(t, f.Write(&edited))

	_, err = ReadWorkbook(&edited)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "sheet Cars row 2 column 6")
}
