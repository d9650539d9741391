package importer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/models"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffAmount,Date (YYYY-MM-DD),Category ID,Description,Transaction Type\n" +
		"12.5,2024-01-02,3,\"Lunch, with team\",debit\n" +
		"\n" +
		"99,2024-01-03,3\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, header, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Lunch, with team", table.Rows[0][3])
	assert.Len(t, table.Rows[1], 3)
}

func TestReadCSVEmpty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Header)
	assert.Empty(t, table.Rows)
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	_, err := ReadFile("ledger.xls", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTemplateRoundTrip(t *testing.T) {
	categories := []models.Category{
		{Base: models.Base{ID: 4}, Name: "Food & Dining"},
		{Base: models.Base{ID: 5}, Name: "Salary"},
	}
	today := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, categories, today))

	table, err := ReadFile("template.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, Columns, table.Header)

	res, err := Reconcile(table, 1, owned(4))
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, 100.0, res.Accepted[0].Amount)
	assert.Equal(t, uint(4), res.Accepted[0].CategoryID)
	assert.Equal(t, 2025, res.Accepted[0].FiscalYear)
	assert.Equal(t, 4, res.Accepted[0].Month)
	// The note row has text in the amount column but no date.
	assert.Equal(t, []string{"Row 3: Missing date"}, res.Errors())
}

func TestExportCanBeImported(t *testing.T) {
	desc := "Rent"
	txns := []models.Transaction{
		{CategoryID: 2, Type: models.TransactionTypeDebit, Amount: 900.5, Description: &desc, Category: &models.Category{Name: "Housing"}},
		{CategoryID: 3, Type: models.TransactionTypeCredit, Amount: 2000},
	}
	txns[0].SetDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	txns[1].SetDate(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, txns))

	table, err := ReadXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, Columns...), "Category"), table.Header)

	res, err := Reconcile(table, 1, owned(2, 3))
	require.NoError(t, err)
	assert.Empty(t, res.Errors())
	require.Len(t, res.Accepted, 2)
	assert.Equal(t, 900.5, res.Accepted[0].Amount)
	assert.Equal(t, "Rent", *res.Accepted[0].Description)
	assert.Equal(t, models.TransactionTypeCredit, res.Accepted[1].Type)
	assert.Equal(t, 28, res.Accepted[1].Date.Day())
}

func TestSerialToDate(t *testing.T) {
	assert.Equal(t, "2024-01-15 00:00:00", serialToDate("45306"))
	assert.Equal(t, "2024-01-15", serialToDate("2024-01-15"))
	assert.Equal(t, "20240115", serialToDate("20240115"))
}

// workbook builds an xlsx with the import header and the given data rows.
// dateFmt, when non-zero, is applied to the date column of every data row.
func workbook(t *testing.T, dateFmt int, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	if dateFmt != 0 && len(rows) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: dateFmt})
		require.NoError(t, err)
		last, err := excelize.CoordinatesToCellName(2, len(rows)+1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", "B2", last, style))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadXLSXDateFormattedCell(t *testing.T) {
	buf := workbook(t, 14, []any{50, 45306, 1, "Lunch", "debit"})

	table, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2024-01-15 00:00:00", table.Rows[0][1])

	res, err := Reconcile(table, 1, owned(1))
	require.NoError(t, err)
	assert.Empty(t, res.Errors())
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), res.Accepted[0].Date)
}

func TestReadXLSXPlainNumberInDateColumn(t *testing.T) {
	buf := workbook(t, 0,
		[]any{50, 2024, 1, "x", "debit"},
		[]any{20, 45306, 1, "y", "debit"},
	)

	table, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2024", table.Rows[0][1])
	assert.Equal(t, "45306", table.Rows[1][1])

	res, err := Reconcile(table, 1, owned(1))
	require.NoError(t, err)
	assert.Empty(t, res.Accepted)
	assert.Equal(t, []string{
		"Row 2: Invalid date format. Use YYYY-MM-DD",
		"Row 3: Invalid date format. Use YYYY-MM-DD",
	}, res.Errors())
}

func TestIsDateFormat(t *testing.T) {
	custom := func(code string) *excelize.Style { return &excelize.Style{CustomNumFmt: &code} }

	tests := []struct {
		name  string
		style *excelize.Style
		want  bool
	}{
		{"general", &excelize.Style{}, false},
		{"integer", &excelize.Style{NumFmt: 1}, false},
		{"builtin date", &excelize.Style{NumFmt: 14}, true},
		{"builtin date time", &excelize.Style{NumFmt: 22}, true},
		{"builtin time", &excelize.Style{NumFmt: 21}, false},
		{"custom iso date", custom("yyyy-mm-dd"), true},
		{"custom time", custom("hh:mm:ss"), false},
		{"custom currency", custom(`[$USD]#,##0.00`), false},
		{"quoted literal", custom(`0 "days"`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormat(tt.style))
		})
	}
}
