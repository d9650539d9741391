package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/fiscal"
	"fintrack/internal/report"
)

// summaryService resolves the requested fiscal period and aggregates it.
type summaryService struct {
	source report.Source
	now    func() time.Time
}

// NewSummaryService creates a new SummaryServicer backed by the ledger store.
func NewSummaryService(db *gorm.DB) SummaryServicer {
	return newSummaryService(NewLedgerStore(db), time.Now)
}

func newSummaryService(source report.Source, now func() time.Time) *summaryService {
	return &summaryService{source: source, now: now}
}

// GetSummary resolves (year, month) against the user's known fiscal years and
// returns the selection together with its aggregates.
func (s *summaryService) GetSummary(userID uint, year, month *int) (*SummaryResult, error) {
	known, err := s.source.FiscalYears(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	selection := fiscal.Resolve(known, year, month, s.now())

	summary, err := report.Summarize(s.source, userID, selection.Year, selection.Month)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &SummaryResult{Selection: selection, Summary: summary}, nil
}

// GetYears returns the user's fiscal years, most recent first.
func (s *summaryService) GetYears(userID uint) ([]int, error) {
	known, err := s.source.FiscalYears(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return fiscal.SortedYears(known), nil
}
