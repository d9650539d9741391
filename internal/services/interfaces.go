package services

import (
	"io"
	"time"

	"fintrack/internal/fiscal"
	"fintrack/internal/importer"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/report"
)

// RegisterInput carries the fields needed to create a user.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(input RegisterInput) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(username, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
	RequestPasswordReset(email string) error
	ResetPassword(token, newPassword string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, description *string) (*models.Category, error)
	GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	ListAllCategories(userID uint) ([]models.Category, error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, name, description *string) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
}

// TransactionInput holds the user-editable fields of a transaction.
type TransactionInput struct {
	CategoryID  uint
	Type        models.TransactionType
	Amount      float64
	Date        time.Time
	Description *string
}

// TransactionUpdate holds optional changes to a transaction. Nil fields are left untouched.
type TransactionUpdate struct {
	CategoryID  *uint
	Type        *models.TransactionType
	Amount      *float64
	Date        *time.Time
	Description *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Year       *int
	Month      *int
	Type       *models.TransactionType
	CategoryID *uint
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID uint, input TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// SummaryResult pairs the resolved fiscal selection with its aggregates.
type SummaryResult struct {
	Selection fiscal.Selection `json:"selection"`
	Summary   *report.Summary  `json:"summary"`
}

// SummaryServicer defines the contract for dashboard aggregation.
type SummaryServicer interface {
	GetSummary(userID uint, year, month *int) (*SummaryResult, error)
	GetYears(userID uint) ([]int, error)
}

// ImportServicer defines the contract for bulk transaction import and export.
type ImportServicer interface {
	ImportFile(userID uint, filename string, r io.Reader, ipAddress string) (*importer.Report, error)
	ImportTable(userID uint, table importer.Table, ipAddress string) (*importer.Report, error)
	WriteTemplate(userID uint, w io.Writer) error
	Export(userID uint, year, month *int, w io.Writer) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(user *models.User, link string) error
}
