package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// TransactionTypes lists the supported types in reporting order.
var TransactionTypes = []TransactionType{TransactionTypeDebit, TransactionTypeCredit}

// ParseTransactionType normalizes s and reports whether it names a supported type.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is debit or credit.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeDebit || t == TransactionTypeCredit
}

// Transaction represents a single monetary movement.
//
// FiscalYear and Month are derived from Date. They are only ever written by
// SetDate, which BeforeSave also runs, so they cannot drift from Date.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index:idx_transactions_scope,priority:1" json:"user_id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Type        TransactionType `gorm:"column:transaction_type;size:10;not null" json:"transaction_type"`
	Amount      float64         `gorm:"not null" json:"amount"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	Description *string         `json:"description,omitempty"`
	FiscalYear  int             `gorm:"not null;index:idx_transactions_scope,priority:2" json:"fiscal_year"`
	Month       int             `gorm:"not null;index:idx_transactions_scope,priority:3" json:"month"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// SetDate sets the calendar date and recomputes the derived period fields.
func (t *Transaction) SetDate(d time.Time) {
	t.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	t.FiscalYear = t.Date.Year()
	t.Month = int(t.Date.Month())
}

// BeforeSave keeps FiscalYear and Month consistent with Date on every create and update.
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	t.SetDate(t.Date)
	return nil
}

// CategoryName returns the preloaded category name, or "" when not loaded.
func (t *Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}
