package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// Audit actions.
const (
	ActionCreateTransaction  = "CREATE_TRANSACTION"
	ActionUpdateTransaction  = "UPDATE_TRANSACTION"
	ActionDeleteTransaction  = "DELETE_TRANSACTION"
	ActionDeleteCategory     = "DELETE_CATEGORY"
	ActionImportTransactions = "IMPORT_TRANSACTIONS"
)

// Audited resource types.
const (
	ResourceTransaction = "transaction"
	ResourceCategory    = "category"
)

// auditService writes audit log rows.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so an audit
// write never fails the operation being audited.
func (s *auditService) Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit changes", "error", err, "action", action)
		} else {
			entry.Changes = string(data)
		}
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_id", resourceID,
		)
	}
}
