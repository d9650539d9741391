package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/fiscal"
	"fintrack/internal/importer"
	"fintrack/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler handles spreadsheet import, template and export requests.
type ImportHandler struct {
	importService services.ImportServicer
	maxBytes      int64
}

// NewImportHandler creates a new ImportHandler. Uploads larger than maxBytes
// are rejected; zero or less disables the limit.
func NewImportHandler(importService services.ImportServicer, maxBytes int64) *ImportHandler {
	return &ImportHandler{importService: importService, maxBytes: maxBytes}
}

// PipelineImportRequest is a pre-parsed import table sent by an automated pipeline.
type PipelineImportRequest struct {
	Header []string   `json:"header" binding:"required,min=1"`
	Rows   [][]string `json:"rows"`
}

// ImportTransactions imports transactions from an uploaded spreadsheet
// @Summary     Import transactions
// @Description Upload a .csv or .xlsx file in the template layout. Each row is validated independently;
// @Description valid rows are stored and invalid rows are reported as "Row N: message".
// @Tags        import
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Spreadsheet (.csv or .xlsx)"
// @Success     200 {object} importer.Report "Import report"
// @Failure     400 {object} ErrorResponse "Missing or unsupported file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /transactions/import [post]
func (h *ImportHandler) ImportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if h.maxBytes > 0 {
		if c.Request.ContentLength > h.maxBytes {
			respondWithError(c, apperrors.ErrFileTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(c, apperrors.ErrFileTooLarge)
			return
		}
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "A file is required in the 'file' field"))
		return
	}

	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".csv", ".xlsx":
	default:
		respondWithError(c, apperrors.ErrUnsupportedFile)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()

	report, err := h.importService.ImportFile(userID, fh.Filename, f, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DownloadTemplate returns the XLSX upload template
// @Summary     Download import template
// @Description XLSX template with the import columns, an example row and the user's category IDs
// @Tags        import
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Success     200 {file} file "Template"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/import/template [get]
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.importService.WriteTemplate(userID, &buf); err != nil {
		respondWithError(c, err)
		return
	}
	sendSpreadsheet(c, "transaction_template.xlsx", buf.Bytes())
}

// ExportTransactions returns the user's transactions as XLSX
// @Summary     Export transactions
// @Description Transactions in the import layout, optionally limited to a fiscal year and month
// @Tags        import
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       year  query int false "Fiscal year"
// @Param       month query int false "Month 1-12"
// @Success     200 {file} file "Export"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/export [get]
func (h *ImportHandler) ExportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, month := fiscal.ParseParams(c.Query("year"), c.Query("month"))
	var buf bytes.Buffer
	if err := h.importService.Export(userID, year, month, &buf); err != nil {
		respondWithError(c, err)
		return
	}
	sendSpreadsheet(c, exportFilename(year, month), buf.Bytes())
}

func exportFilename(year, month *int) string {
	switch {
	case year != nil && month != nil && *month >= 1 && *month <= 12:
		return fmt.Sprintf("transactions_%d_%02d.xlsx", *year, *month)
	case year != nil:
		return fmt.Sprintf("transactions_%d.xlsx", *year)
	default:
		return "transactions.xlsx"
	}
}

func sendSpreadsheet(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// PipelineImport imports a pre-parsed table on behalf of a user
// @Summary     Import transactions for a user (pipeline)
// @Description Same row validation as the file upload, with the table given as JSON
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string                true "Pipeline API key"
// @Param       id        path   int                   true "User ID"
// @Param       request   body   PipelineImportRequest true "Import table"
// @Success     200 {object} importer.Report "Import report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/users/{id}/transactions/import [post]
func (h *ImportHandler) PipelineImport(c *gin.Context) {
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PipelineImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}

	report, err := h.importService.ImportTable(userID, importer.Table{Header: req.Header, Rows: req.Rows}, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
