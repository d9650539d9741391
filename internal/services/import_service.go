package services

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/importer"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

const importBatchSize = 100

// importService persists reconciled spreadsheet rows and produces the
// spreadsheets users download.
type importService struct {
	db    *gorm.DB
	store *LedgerStore
	audit AuditServicer
	now   func() time.Time
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB, audit AuditServicer) ImportServicer {
	return &importService{
		db:    db,
		store: NewLedgerStore(db),
		audit: audit,
		now:   time.Now,
	}
}

// ImportFile reads a .csv or .xlsx upload and imports its rows. A file that
// cannot be read is reported as a single error rather than failing the call.
func (s *importService) ImportFile(userID uint, filename string, r io.Reader, ipAddress string) (*importer.Report, error) {
	table, err := importer.ReadFile(filename, r)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return nil, apperrors.ErrUnsupportedFile
		}
		logger.Get().Warnw("import file unreadable", "user_id", userID, "file", filename, "error", err)
		report := importer.PayloadReport("Error processing file: " + err.Error())
		return &report, nil
	}
	return s.ImportTable(userID, table, ipAddress)
}

// ImportTable reconciles table for userID and stores the accepted rows in a
// single database transaction.
func (s *importService) ImportTable(userID uint, table importer.Table, ipAddress string) (*importer.Report, error) {
	owned, err := s.ownedCategoryIDs(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	lookup := func(id uint) (bool, error) { return owned[id], nil }

	result, err := importer.Reconcile(table, userID, lookup)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if len(result.Accepted) > 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&result.Accepted, importBatchSize).Error
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("store imported rows: %w", err))
		}
	}

	report := result.Report()
	logger.Get().Infow("transactions imported",
		"user_id", userID,
		"rows", len(table.Rows),
		"success_count", report.SuccessCount,
		"error_count", len(report.Errors),
		"skipped", result.Skipped,
	)
	if report.SuccessCount > 0 {
		s.audit.Log(userID, ActionImportTransactions, ResourceTransaction, 0, ipAddress, map[string]interface{}{
			"success_count": report.SuccessCount,
			"error_count":   len(report.Errors),
		})
	}
	return &report, nil
}

func (s *importService) ownedCategoryIDs(userID uint) (map[uint]bool, error) {
	var ids []uint
	if err := s.db.Model(&models.Category{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	owned := make(map[uint]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// WriteTemplate writes the XLSX upload template listing the user's categories.
func (s *importService) WriteTemplate(userID uint, w io.Writer) error {
	var categories []models.Category
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&categories).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := importer.WriteTemplate(w, categories, s.now()); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Export writes the user's transactions, optionally narrowed to a year and
// month, as an XLSX file in the import layout.
func (s *importService) Export(userID uint, year, month *int, w io.Writer) error {
	txns, err := s.store.All(userID, year, month)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := importer.WriteExport(w, txns); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
