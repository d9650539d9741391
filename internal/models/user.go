package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Username            string        `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email               string        `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password            string        `gorm:"not null" json:"-"`
	FirstName           string        `gorm:"size:64" json:"first_name"`
	LastName            string        `gorm:"size:64" json:"last_name"`
	IsActive            bool          `gorm:"default:true" json:"is_active"`
	RefreshTokenHash    string        `gorm:"size:64" json:"-"`
	FailedLoginAttempts int           `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time    `json:"-"`
	LastLoginAt         *time.Time    `json:"last_login_at,omitempty"`
	Categories          []Category    `gorm:"foreignKey:UserID" json:"categories,omitempty"`
	Transactions        []Transaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Username
}
