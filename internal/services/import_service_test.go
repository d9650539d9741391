package services

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"fintrack/internal/importer"
	"fintrack/internal/models"
	"fintrack/internal/testutil"

	"gorm.io/gorm"
)

func newImportService(db *gorm.DB) *importService {
	svc := NewImportService(db, NewAuditService(db)).(*importService)
	svc.now = func() time.Time { return time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC) }
	return svc
}

func importTable(rows ...[]string) importer.Table {
	return importer.Table{Header: importer.Columns, Rows: rows}
}

func countTransactions(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n)
	return n
}

func TestImportTable(t *testing.T) {
	t.Run("mixed_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		id := fmt.Sprint(cat.ID)

		report, err := svc.ImportTable(user.ID, importTable(
			[]string{"12.50", "2024-01-15", id, "Lunch", "debit"},
			[]string{"100", "2024-02-30", id, "", "debit"},
			[]string{"", "", "", "", ""},
			[]string{"2,000", "2024-03-01", id, "Bonus", "Credit"},
		), "127.0.0.1")
		testutil.AssertNoError(t, err)

		if report.SuccessCount != 2 {
			t.Errorf("expected 2 imported, got %d", report.SuccessCount)
		}
		if len(report.Errors) != 1 || report.Errors[0] != "Row 3: Invalid date format. Use YYYY-MM-DD" {
			t.Errorf("unexpected errors: %v", report.Errors)
		}
		if n := countTransactions(t, db, user.ID); n != 2 {
			t.Errorf("expected 2 stored transactions, got %d", n)
		}

		var credit models.Transaction
		db.Where("user_id = ? AND transaction_type = ?", user.ID, "credit").First(&credit)
		if credit.Amount != 2000 || credit.FiscalYear != 2024 || credit.Month != 3 {
			t.Errorf("unexpected stored credit row: %+v", credit)
		}

		var audits []models.AuditLog
		db.Where("user_id = ? AND action = ?", user.ID, ActionImportTransactions).Find(&audits)
		if len(audits) != 1 || !strings.Contains(audits[0].Changes, `"success_count":2`) {
			t.Errorf("expected one import audit entry, got %+v", audits)
		}
	})

	t.Run("foreign_category_is_row_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		foreign := testutil.CreateTestCategory(t, db, other.ID)

		report, err := svc.ImportTable(user.ID, importTable(
			[]string{"10", "2024-01-15", fmt.Sprint(foreign.ID), "", "debit"},
		), "")
		testutil.AssertNoError(t, err)

		if report.SuccessCount != 0 {
			t.Errorf("expected nothing imported, got %d", report.SuccessCount)
		}
		want := fmt.Sprintf("Row 2: Category ID %d not found or doesn't belong to you", foreign.ID)
		if len(report.Errors) != 1 || report.Errors[0] != want {
			t.Errorf("expected %q, got %v", want, report.Errors)
		}
		if n := countTransactions(t, db, user.ID) + countTransactions(t, db, other.ID); n != 0 {
			t.Errorf("expected no stored transactions, got %d", n)
		}
	})

	t.Run("missing_column", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)

		report, err := svc.ImportTable(user.ID, importer.Table{
			Header: []string{"Amount", "Date (YYYY-MM-DD)", "Category ID"},
			Rows:   [][]string{{"1", "2024-01-01", "1"}},
		}, "")
		testutil.AssertNoError(t, err)

		if report.SuccessCount != 0 || len(report.Errors) != 1 || report.Errors[0] != "Missing required column: Transaction Type" {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("nothing_accepted_writes_no_audit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)

		report, err := svc.ImportTable(user.ID, importTable([]string{"", "", "", "", ""}), "")
		testutil.AssertNoError(t, err)
		if report.SuccessCount != 0 || len(report.Errors) != 0 {
			t.Errorf("expected empty report, got %+v", report)
		}

		var n int64
		db.Model(&models.AuditLog{}).Count(&n)
		if n != 0 {
			t.Errorf("expected no audit entries, got %d", n)
		}
	})
}

func TestImportFile(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		csv := "Amount,Date (YYYY-MM-DD),Category ID,Description,Transaction Type\n" +
			fmt.Sprintf("5.25,2024-04-01,%d,Coffee,debit\n", cat.ID) +
			fmt.Sprintf("7,2024-04-02,%d,,refund\n", cat.ID)

		report, err := svc.ImportFile(user.ID, "upload.CSV", strings.NewReader(csv), "")
		testutil.AssertNoError(t, err)

		if report.SuccessCount != 1 {
			t.Errorf("expected 1 imported, got %d", report.SuccessCount)
		}
		if len(report.Errors) != 1 || report.Errors[0] != "Row 3: Transaction type must be 'debit' or 'credit'" {
			t.Errorf("unexpected errors: %v", report.Errors)
		}
	})

	t.Run("unsupported_extension", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.ImportFile(user.ID, "ledger.pdf", strings.NewReader("%PDF"), "")
		testutil.AssertAppError(t, err, "UNSUPPORTED_FILE")
	})

	t.Run("corrupt_xlsx", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newImportService(db)
		user := testutil.CreateTestUser(t, db)

		report, err := svc.ImportFile(user.ID, "ledger.xlsx", strings.NewReader("not a zip"), "")
		testutil.AssertNoError(t, err)

		if report.SuccessCount != 0 || len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0], "Error processing file: ") {
			t.Errorf("unexpected report: %+v", report)
		}
	})
}

func TestTemplateAndExportRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newImportService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")

	var template bytes.Buffer
	testutil.AssertNoError(t, svc.WriteTemplate(user.ID, &template))

	report, err := svc.ImportFile(user.ID, "template.xlsx", &template, "")
	testutil.AssertNoError(t, err)
	if report.SuccessCount != 1 {
		t.Fatalf("expected the template example row to import, got %+v", report)
	}

	var imported models.Transaction
	db.Where("user_id = ?", user.ID).First(&imported)
	if imported.CategoryID != cat.ID || imported.FiscalYear != 2024 || imported.Month != 5 {
		t.Errorf("unexpected imported example row: %+v", imported)
	}

	var export bytes.Buffer
	testutil.AssertNoError(t, svc.Export(user.ID, intPtr(2024), nil, &export))

	table, err := importer.ReadXLSX(&export)
	testutil.AssertNoError(t, err)
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 exported row, got %d", len(table.Rows))
	}
	if got := table.Rows[0][2]; got != fmt.Sprint(cat.ID) {
		t.Errorf("expected exported category ID %d, got %s", cat.ID, got)
	}
}
