package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/fiscal"
	"fintrack/internal/services"
)

// SummaryHandler serves the dashboard aggregates.
type SummaryHandler struct {
	summaryService services.SummaryServicer
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaryService services.SummaryServicer) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// YearsResponse lists the fiscal years that hold transactions.
type YearsResponse struct {
	Years []int `json:"years"`
}

// GetSummary returns the aggregates for the requested fiscal scope
// @Summary     Dashboard summary
// @Description Resolve the fiscal year and month from the query and return totals, category and monthly breakdowns for that scope.
// @Description Missing or invalid values fall back to the most recent year with data and all months.
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int false "Fiscal year"
// @Param       month query int false "Month 1-12, 0 or omitted for the whole year"
// @Success     200 {object} services.SummaryResult "Selection and summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Internal error"
// @Router      /summary [get]
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, month := fiscal.ParseParams(c.Query("year"), c.Query("month"))
	result, err := h.summaryService.GetSummary(userID, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetYears lists the fiscal years holding the user's transactions
// @Summary     Fiscal years
// @Description Distinct years with at least one transaction, most recent first
// @Tags        summary
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} YearsResponse "Years"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /summary/years [get]
func (h *SummaryHandler) GetYears(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	years, err := h.summaryService.GetYears(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	c.JSON(http.StatusOK, YearsResponse{Years: years})
}
