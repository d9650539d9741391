package services

import (
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/testutil"

	"gorm.io/gorm"
)

func newTransactionService(db *gorm.DB) TransactionServicer {
	return NewTransactionService(db, NewCategoryService(db))
}

func typePtr(t models.TransactionType) *models.TransactionType { return &t }

func intPtr(i int) *int { return &i }

func TestCreateTransaction(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")

		txn, err := svc.CreateTransaction(user.ID, TransactionInput{
			CategoryID:  cat.ID,
			Type:        models.TransactionTypeDebit,
			Amount:      42.5,
			Date:        time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC),
			Description: strPtr("Dinner"),
		})
		testutil.AssertNoError(t, err)

		if txn.FiscalYear != 2024 || txn.Month != 2 {
			t.Errorf("expected period 2024-02, got %d-%d", txn.FiscalYear, txn.Month)
		}
		if txn.Date.Hour() != 0 {
			t.Errorf("expected date at midnight, got %s", txn.Date)
		}
		if txn.CategoryName() != "Food" {
			t.Errorf("expected preloaded category Food, got %q", txn.CategoryName())
		}
	})

	t.Run("zero_date_defaults_to_today", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewTransactionService(db, NewCategoryService(db)).(*transactionService)
		svc.now = func() time.Time { return time.Date(2023, 7, 4, 9, 0, 0, 0, time.UTC) }
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		txn, err := svc.CreateTransaction(user.ID, TransactionInput{CategoryID: cat.ID, Type: models.TransactionTypeCredit, Amount: 1})
		testutil.AssertNoError(t, err)
		if txn.FiscalYear != 2023 || txn.Month != 7 {
			t.Errorf("expected period 2023-07, got %d-%d", txn.FiscalYear, txn.Month)
		}
	})

	tests := []struct {
		name     string
		input    func(catID uint) TransactionInput
		wantCode string
	}{
		{"zero_amount", func(id uint) TransactionInput {
			return TransactionInput{CategoryID: id, Type: models.TransactionTypeDebit, Amount: 0}
		}, "INVALID_INPUT"},
		{"negative_amount", func(id uint) TransactionInput {
			return TransactionInput{CategoryID: id, Type: models.TransactionTypeDebit, Amount: -5}
		}, "INVALID_INPUT"},
		{"bad_type", func(id uint) TransactionInput {
			return TransactionInput{CategoryID: id, Type: "expense", Amount: 5}
		}, "INVALID_TRANSACTION_TYPE"},
		{"unknown_category", func(uint) TransactionInput {
			return TransactionInput{CategoryID: 99999, Type: models.TransactionTypeDebit, Amount: 5}
		}, "CATEGORY_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			svc := newTransactionService(db)
			user := testutil.CreateTestUser(t, db)
			cat := testutil.CreateTestCategory(t, db, user.ID)

			_, err := svc.CreateTransaction(user.ID, tt.input(cat.ID))
			testutil.AssertAppError(t, err, tt.wantCode)
		})
	}

	t.Run("foreign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, owner.ID)

		_, err := svc.CreateTransaction(intruder.ID, TransactionInput{CategoryID: cat.ID, Type: models.TransactionTypeDebit, Amount: 5})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetUserTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTransactionService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, user.ID)
	pay := testutil.CreateTestCategory(t, db, user.ID)
	foreign := testutil.CreateTestCategory(t, db, other.ID)

	testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeDebit, 10, testutil.Date(2023, 12, 31))
	testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeDebit, 20, testutil.Date(2024, 1, 5))
	testutil.CreateTestTransaction(t, db, user.ID, pay.ID, models.TransactionTypeCredit, 1000, testutil.Date(2024, 1, 25))
	testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeDebit, 30, testutil.Date(2024, 3, 2))
	testutil.CreateTestTransaction(t, db, other.ID, foreign.ID, models.TransactionTypeDebit, 99, testutil.Date(2024, 1, 5))

	tests := []struct {
		name       string
		filter     TransactionFilter
		wantAmount []float64
	}{
		{"all_newest_first", TransactionFilter{}, []float64{30, 1000, 20, 10}},
		{"year", TransactionFilter{Year: intPtr(2024)}, []float64{30, 1000, 20}},
		{"year_and_month", TransactionFilter{Year: intPtr(2024), Month: intPtr(1)}, []float64{1000, 20}},
		{"out_of_range_month_ignored", TransactionFilter{Year: intPtr(2024), Month: intPtr(13)}, []float64{30, 1000, 20}},
		{"type", TransactionFilter{Type: typePtr(models.TransactionTypeCredit)}, []float64{1000}},
		{"category", TransactionFilter{CategoryID: &food.ID, Year: intPtr(2024)}, []float64{30, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, tt.filter)
			testutil.AssertNoError(t, err)

			if int(page.TotalItems) != len(tt.wantAmount) {
				t.Fatalf("expected %d items, got %d", len(tt.wantAmount), page.TotalItems)
			}
			for i, want := range tt.wantAmount {
				if page.Data[i].Amount != want {
					t.Errorf("item %d: expected amount %v, got %v", i, want, page.Data[i].Amount)
				}
			}
		})
	}

	t.Run("pagination", func(t *testing.T) {
		page, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{Page: 2, PageSize: 3}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 1 || page.Data[0].Amount != 10 {
			t.Errorf("expected the oldest transaction on page 2, got %+v", page.Data)
		}
		if page.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", page.TotalPages)
		}
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("date_change_moves_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		txn := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeDebit, 10, testutil.Date(2023, 12, 31))

		newDate := testutil.Date(2024, 1, 1)
		updated, err := svc.UpdateTransaction(user.ID, txn.ID, TransactionUpdate{Date: &newDate})
		testutil.AssertNoError(t, err)

		if updated.FiscalYear != 2024 || updated.Month != 1 {
			t.Errorf("expected period 2024-01, got %d-%d", updated.FiscalYear, updated.Month)
		}

		var stored models.Transaction
		db.First(&stored, txn.ID)
		if stored.FiscalYear != 2024 || stored.Month != 1 {
			t.Errorf("stored period not updated: %d-%d", stored.FiscalYear, stored.Month)
		}
	})

	t.Run("change_category_type_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")
		pay := testutil.CreateTestCategoryNamed(t, db, user.ID, "Salary")
		txn := testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeDebit, 10, testutil.Date(2024, 5, 1))

		amount := 2500.0
		updated, err := svc.UpdateTransaction(user.ID, txn.ID, TransactionUpdate{
			CategoryID: &pay.ID,
			Type:       typePtr(models.TransactionTypeCredit),
			Amount:     &amount,
		})
		testutil.AssertNoError(t, err)

		if updated.CategoryName() != "Salary" || updated.Type != models.TransactionTypeCredit || updated.Amount != 2500 {
			t.Errorf("unexpected update result: %+v", updated)
		}
	})

	t.Run("foreign_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		foreign := testutil.CreateTestCategory(t, db, other.ID)
		txn := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeDebit, 10, time.Now())

		_, err := svc.UpdateTransaction(user.ID, txn.ID, TransactionUpdate{CategoryID: &foreign.ID})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("not_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		txn := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeDebit, 10, time.Now())

		_, err := svc.UpdateTransaction(other.ID, txn.ID, TransactionUpdate{})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestDeleteTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTransactionService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	txn := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeDebit, 10, time.Now())

	testutil.AssertNoError(t, svc.DeleteTransaction(user.ID, txn.ID))

	_, err := svc.GetTransactionByID(user.ID, txn.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")

	testutil.AssertAppError(t, svc.DeleteTransaction(user.ID, txn.ID), "TRANSACTION_NOT_FOUND")
}
