package models

// Category represents a user-owned transaction category
type Category struct {
	Base
	UserID      uint    `gorm:"not null;index" json:"user_id"`
	Name        string  `gorm:"size:50;not null" json:"name"`
	Description *string `json:"description,omitempty"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}

// DefaultCategoryNames are seeded for every newly registered user.
var DefaultCategoryNames = []string{
	"Salary",
	"Food & Dining",
	"Transportation",
	"Housing",
	"Utilities",
	"Entertainment",
	"Healthcare",
	"Shopping",
	"Travel",
	"Education",
	"Other",
}
