package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/models"
)

// ErrUnsupportedFormat is returned by ReadFile for extensions other than .csv and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format, use .csv or .xlsx")

const (
	templateSheet   = "Transaction Template"
	categoriesSheet = "Categories"
	exportSheet     = "Transactions"

	// maxExcelSerial is 9999-12-31 as an Excel date serial.
	maxExcelSerial = 2958465
)

// ReadFile reads a table from r, choosing the decoder from name's extension.
func ReadFile(name string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return Table{}, ErrUnsupportedFormat
	}
}

// ReadCSV reads a comma-separated table whose first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return Table{Header: header, Rows: records[1:]}, nil
}

// ReadXLSX reads the first worksheet of a workbook; its first row is the header.
// Cells are read unformatted. Numbers in the date column are rendered as
// timestamps only when the cell carries a date number format, so a plain
// number there is still rejected as an invalid date.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, nil
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	t := Table{Header: rows[0], Rows: rows[1:]}
	col, ok := indexColumns(t.Header)[ColumnDate]
	if !ok {
		return t, nil
	}
	dates := dateStyles{f: f, known: map[int]bool{}}
	for i, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		// GetRows keeps blank rows, so row i of the data is sheet row i+2.
		cell, err := excelize.CoordinatesToCellName(col+1, i+headerRows+1)
		if err != nil {
			return Table{}, err
		}
		isDate, err := dates.cellIsDate(sheet, cell)
		if err != nil {
			return Table{}, fmt.Errorf("read style of %s: %w", cell, err)
		}
		if isDate {
			row[col] = serialToDate(row[col])
		}
	}
	return t, nil
}

// dateStyles caches, per style index, whether the style formats numbers as dates.
type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (d dateStyles) cellIsDate(sheet, cell string) (bool, error) {
	idx, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := d.known[idx]; ok {
		return isDate, nil
	}
	// A workbook without cell formats has no date styles.
	style, err := d.f.GetStyle(idx)
	isDate := err == nil && isDateFormat(style)
	d.known[idx] = isDate
	return isDate, nil
}

// isDateFormat reports whether style renders numbers as calendar dates.
// Time-only formats do not count.
func isDateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22:
		return true
	case n >= 27 && n <= 36, n >= 50 && n <= 58:
		// East Asian locale date formats.
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code contains a day or
// year token outside quoted literals, escapes and bracketed sections.
func isDateFormatCode(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == 'd' || r == 'y':
			return true
		}
	}
	return false
}

// WriteTemplate writes the upload template: styled headers, an example row, a
// note row, and a sheet listing the user's categories.
func WriteTemplate(w io.Writer, categories []models.Category, today time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}
	if err := writeHeader(f, templateSheet, Columns); err != nil {
		return err
	}

	exampleCategory := uint(1)
	if len(categories) > 0 {
		exampleCategory = categories[0].ID
	}
	example := []any{100.00, today.Format("2006-01-02"), exampleCategory, "Example transaction description", string(models.TransactionTypeDebit)}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return err
	}

	if err := f.SetCellValue(templateSheet, "A3", "Note: Transaction Type must be either 'debit' or 'credit'"); err != nil {
		return err
	}
	if err := f.MergeCell(templateSheet, "A3", "E3"); err != nil {
		return err
	}
	noteStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A3", "E3", noteStyle); err != nil {
		return err
	}

	for i, width := range []float64{15, 20, 15, 40, 20} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(templateSheet, col, col, width); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return err
	}
	if err := writeHeader(f, categoriesSheet, []string{ColumnCategoryID, "Name"}); err != nil {
		return err
	}
	for i, c := range categories {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(categoriesSheet, cell, &[]any{c.ID, c.Name}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(categoriesSheet, "B", "B", 30); err != nil {
		return err
	}

	return f.Write(w)
}

// WriteExport writes txns in the import column layout, followed by the
// category name, so an export can be edited and uploaded again.
func WriteExport(w io.Writer, txns []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := append(append([]string{}, Columns...), "Category")
	if err := writeHeader(f, exportSheet, header); err != nil {
		return err
	}

	for i := range txns {
		t := &txns[i]
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		row := []any{t.Amount, t.Date.Format("2006-01-02"), t.CategoryID, desc, string(t.Type), t.CategoryName()}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, names []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	row := make([]any, len(names))
	for i, n := range names {
		row[i] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(names), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}
