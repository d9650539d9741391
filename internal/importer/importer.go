// Package importer converts tabular transaction uploads into ledger records.
//
// Every data row is reconciled independently into an explicit outcome: an
// accepted transaction, a silent skip (blank amount) or a RowError. Only
// payload-level problems (a missing required column) stop the batch, and only
// a failing CategoryLookup is returned as an error.
package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// Column names of an import table.
const (
	ColumnAmount          = "Amount"
	ColumnDate            = "Date (YYYY-MM-DD)"
	ColumnCategoryID      = "Category ID"
	ColumnDescription     = "Description"
	ColumnTransactionType = "Transaction Type"
)

// Columns is the canonical column order used by templates and exports.
var Columns = []string{ColumnAmount, ColumnDate, ColumnCategoryID, ColumnDescription, ColumnTransactionType}

// RequiredColumns must all be present in the header.
var RequiredColumns = []string{ColumnAmount, ColumnDate, ColumnCategoryID, ColumnTransactionType}

// headerRows is the number of rows before the first data row.
const headerRows = 1

// dateLayouts accepts the YYYY-MM-DD form plus the renderings of cells that
// were already typed as dates by the spreadsheet.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Table is a header row plus data rows, all as raw cell text.
type Table struct {
	Header []string
	Rows   [][]string
}

// ErrorKind classifies a row-level validation failure.
type ErrorKind string

const (
	KindMissingDate     ErrorKind = "missing_date"
	KindMissingCategory ErrorKind = "missing_category_id"
	KindMissingType     ErrorKind = "missing_transaction_type"
	KindInvalidDate     ErrorKind = "invalid_date"
	KindInvalidType     ErrorKind = "invalid_transaction_type"
	KindUnknownCategory ErrorKind = "unknown_category"
	KindConversion      ErrorKind = "conversion"
)

// RowError is a validation failure of a single row. Row is the 1-based
// spreadsheet row number, counting the header.
type RowError struct {
	Row     int
	Kind    ErrorKind
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// CategoryLookup reports whether categoryID exists and belongs to the importing user.
type CategoryLookup func(categoryID uint) (bool, error)

// Result is the outcome of reconciling a table.
type Result struct {
	Accepted  []models.Transaction
	Skipped   int
	RowErrors []RowError
	// PayloadError is set when the table could not be processed at all.
	PayloadError string
}

// Report is the (success count, errors) pair handed to callers.
type Report struct {
	SuccessCount int      `json:"success_count"`
	Errors       []string `json:"errors"`
}

// PayloadReport returns a report for a table that could not be processed.
func PayloadReport(msg string) Report {
	return Report{SuccessCount: 0, Errors: []string{msg}}
}

// Errors renders the result's errors in row order.
func (r *Result) Errors() []string {
	if r.PayloadError != "" {
		return []string{r.PayloadError}
	}
	out := make([]string, 0, len(r.RowErrors))
	for _, e := range r.RowErrors {
		out = append(out, e.Error())
	}
	return out
}

// Report converts the result into a Report.
func (r *Result) Report() Report {
	return Report{SuccessCount: len(r.Accepted), Errors: r.Errors()}
}

// Reconcile validates every row of t for ownerID.
func Reconcile(t Table, ownerID uint, owns CategoryLookup) (*Result, error) {
	cols := indexColumns(t.Header)
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			return &Result{PayloadError: "Missing required column: " + name}, nil
		}
	}

	res := &Result{}
	for i, row := range t.Rows {
		out, err := reconcileRow(cols, row, i+headerRows+1, ownerID, owns)
		if err != nil {
			return nil, err
		}
		switch {
		case out.err != nil:
			res.RowErrors = append(res.RowErrors, *out.err)
		case out.txn != nil:
			res.Accepted = append(res.Accepted, *out.txn)
		default:
			res.Skipped++
		}
	}
	return res, nil
}

// outcome holds exactly one of txn or err; both nil means the row was skipped.
type outcome struct {
	txn *models.Transaction
	err *RowError
}

func rejected(rowNum int, kind ErrorKind, format string, args ...any) outcome {
	return outcome{err: &RowError{Row: rowNum, Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// reconcileRow applies the row checks in order; the first failure wins.
func reconcileRow(cols columnIndex, row []string, rowNum int, ownerID uint, owns CategoryLookup) (outcome, error) {
	amountRaw := cols.cell(row, ColumnAmount)
	dateRaw := cols.cell(row, ColumnDate)
	categoryRaw := cols.cell(row, ColumnCategoryID)
	typeRaw := cols.cell(row, ColumnTransactionType)

	if amountRaw == "" {
		return outcome{}, nil
	}
	if dateRaw == "" {
		return rejected(rowNum, KindMissingDate, "Missing date"), nil
	}
	if categoryRaw == "" {
		return rejected(rowNum, KindMissingCategory, "Missing category ID"), nil
	}
	if typeRaw == "" {
		return rejected(rowNum, KindMissingType, "Missing transaction type"), nil
	}

	date, ok := parseDate(dateRaw)
	if !ok {
		return rejected(rowNum, KindInvalidDate, "Invalid date format. Use YYYY-MM-DD"), nil
	}

	txType, ok := models.ParseTransactionType(typeRaw)
	if !ok {
		return rejected(rowNum, KindInvalidType, "Transaction type must be 'debit' or 'credit'"), nil
	}

	categoryNum, err := parseCategoryID(categoryRaw)
	if err != nil {
		return rejected(rowNum, KindConversion, "%s", err.Error()), nil
	}
	categoryID, inRange := categoryIDValue(categoryNum)
	found := false
	if inRange {
		if found, err = owns(categoryID); err != nil {
			return outcome{}, fmt.Errorf("look up category %d: %w", categoryID, err)
		}
	}
	if !found {
		return rejected(rowNum, KindUnknownCategory, "Category ID %s not found or doesn't belong to you", categoryNum), nil
	}

	amount, err := parseAmount(amountRaw)
	if err != nil {
		return rejected(rowNum, KindConversion, "%s", err.Error()), nil
	}

	txn := &models.Transaction{
		UserID:     ownerID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
	}
	if desc := cols.cell(row, ColumnDescription); desc != "" {
		txn.Description = &desc
	}
	txn.SetDate(date)
	return outcome{txn: txn}, nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// maxCategoryID is the largest id a category row can have.
var maxCategoryID = decimal.NewFromInt(int64(^uint32(0)))

// parseCategoryID accepts any integer, including "3.0" from numeric cells.
func parseCategoryID(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return decimal.Decimal{}, fmt.Errorf("invalid category ID %q", raw)
	}
	return d.Truncate(0), nil
}

// categoryIDValue reports whether d can name a stored category at all.
func categoryIDValue(d decimal.Decimal) (uint, bool) {
	if !d.IsPositive() || d.GreaterThan(maxCategoryID) {
		return 0, false
	}
	return uint(d.IntPart()), true
}

// maxAmount is the largest value the amount column (NUMERIC(12, 2)) holds.
var maxAmount = decimal.RequireFromString("9999999999.99")

// parseAmount checks the amount as it will be stored, rounded to cents.
func parseAmount(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount must not exceed %s", maxAmount.StringFixed(2))
	}
	f, _ := d.Float64()
	return f, nil
}

// columnIndex maps a header name to its position in a row.
type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || strings.HasPrefix(h, "Unnamed") {
			continue
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// cell returns the trimmed value of column name in row, or "" when absent.
func (c columnIndex) cell(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
