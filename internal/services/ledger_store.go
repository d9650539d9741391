package services

import (
	"gorm.io/gorm"

	"fintrack/internal/models"
	"fintrack/internal/report"
)

// LedgerStore answers the aggregation engine's ledger queries from the database.
type LedgerStore struct {
	db *gorm.DB
}

var _ report.Source = (*LedgerStore)(nil)

// NewLedgerStore creates a LedgerStore.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// FiscalYears returns the distinct fiscal years of the owner's transactions.
func (s *LedgerStore) FiscalYears(ownerID uint) ([]int, error) {
	var years []int
	err := s.db.Model(&models.Transaction{}).
		Where("user_id = ?", ownerID).
		Distinct().
		Order("fiscal_year DESC").
		Pluck("fiscal_year", &years).Error
	return years, err
}

// Transactions returns the owner's transactions in the filter's scope with
// their category loaded, newest first.
func (s *LedgerStore) Transactions(ownerID uint, f report.Filter) ([]models.Transaction, error) {
	q := s.db.Where("user_id = ? AND fiscal_year = ?", ownerID, f.Year)
	if f.Month != 0 {
		q = q.Where("month = ?", f.Month)
	}
	if f.Type != nil {
		q = q.Where("transaction_type = ?", *f.Type)
	}

	var txns []models.Transaction
	err := q.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("date DESC").Order("id DESC").
		Find(&txns).Error
	return txns, err
}

// All returns the owner's transactions, optionally narrowed to a year and
// month, oldest first.
func (s *LedgerStore) All(ownerID uint, year, month *int) ([]models.Transaction, error) {
	q := s.db.Where("user_id = ?", ownerID)
	if year != nil {
		q = q.Where("fiscal_year = ?", *year)
		if month != nil && *month >= 1 && *month <= 12 {
			q = q.Where("month = ?", *month)
		}
	}

	var txns []models.Transaction
	err := q.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("date ASC").Order("id ASC").
		Find(&txns).Error
	return txns, err
}
