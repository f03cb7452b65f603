package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/application/service"
	"github.com/garyjia/spendlens/internal/description"
	"github.com/garyjia/spendlens/internal/statement"
)

// multipartOverhead is allowed on top of the file size for form framing
const multipartOverhead = 64 << 10

var errTooLarge = errors.New("upload too large")

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	maxImportRows  int
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, maxImportRows int, logger Logger) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}
	if maxImportRows <= 0 {
		maxImportRows = DefaultServerConfig().MaxImportRows
	}
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		maxImportRows:  maxImportRows,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// TextRequest carries a description or receipt text
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// SanitizeResponse is returned by the sanitize endpoint
type SanitizeResponse struct {
	Sanitized string   `json:"sanitized"`
	Tokens    []string `json:"tokens"`
}

// PreferenceRequest sets a user label for a description
type PreferenceRequest struct {
	Description string `json:"description" binding:"required"`
	Label       string `json:"label" binding:"required"`
	Category    string `json:"category"`
}

// ListRequest holds paging query parameters
type ListRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.services.Health != nil {
		ok, details := h.services.Health(c.Request.Context())
		resp.Components = details
		if !ok {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// SanitizeDescription handles POST /api/descriptions/sanitize
func (h *Handlers) SanitizeDescription(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	sanitized := description.SanitizeDescription(req.Text)
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: SanitizeResponse{
			Sanitized: sanitized,
			Tokens:    description.ExtractMerchantTokens(sanitized),
		},
	})
}

// ClassifyDescription handles POST /api/descriptions/classify
func (h *Handlers) ClassifyDescription(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	result, err := h.services.Categorization.Categorize(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, "Failed to classify description", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// SetPreference handles PUT /api/preferences
func (h *Handlers) SetPreference(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "description and label are required")
		return
	}

	pref, err := h.services.Categorization.SetPreference(c.Request.Context(), req.Description, req.Label, req.Category)
	if err != nil {
		h.fail(c, "Failed to save preference", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: pref})
}

// ImportStatement handles POST /api/statements/import (multipart "file")
func (h *Handlers) ImportStatement(c *gin.Context) {
	filename, data, err := h.readUpload(c)
	if err != nil {
		h.uploadError(c, err)
		return
	}

	rows, err := statement.Read(filename, bytes.NewReader(data))
	if err != nil {
		h.fail(c, "Failed to read statement", err)
		return
	}
	if len(rows) > h.maxImportRows {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("statement has %d rows, the limit is %d", len(rows), h.maxImportRows),
		})
		return
	}

	summary, err := h.services.Import.Import(c.Request.Context(), rows)
	if err != nil {
		h.fail(c, "Failed to import statement", err)
		return
	}

	h.logger.Info("Statement imported",
		"filename", filename,
		"batch_id", summary.BatchID,
		"total", summary.Total,
		"failed", summary.Failed)
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ListBatch handles GET /api/statements/:batch_id/transactions
func (h *Handlers) ListBatch(c *gin.Context) {
	txs, err := h.services.Import.ListBatch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		h.fail(c, "Failed to list transactions", err)
		return
	}
	if len(txs) == 0 {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "batch not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: txs})
}

// ParseReceipt handles POST /api/receipts/parse
func (h *Handlers) ParseReceipt(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	stored, err := h.services.Receipt.ProcessText(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, "Failed to parse receipt", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: stored})
}

// UploadReceipt handles POST /api/receipts/upload (multipart "file")
func (h *Handlers) UploadReceipt(c *gin.Context) {
	filename, data, err := h.readUpload(c)
	if err != nil {
		h.uploadError(c, err)
		return
	}

	stored, err := h.services.Receipt.ProcessFile(c.Request.Context(), filename, data)
	if err != nil {
		h.fail(c, "Failed to process receipt upload", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: stored})
}

// ListReceipts handles GET /api/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	receipts, err := h.services.Receipt.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.fail(c, "Failed to list receipts", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: receipts})
}

// GetReceipt handles GET /api/receipts/:id
func (h *Handlers) GetReceipt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid receipt id")
		return
	}

	stored, err := h.services.Receipt.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get receipt", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stored})
}

// readUpload returns the "file" form field, bounded by maxUploadBytes
func (h *Handlers) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, errTooLarge
		}
		return "", nil, fmt.Errorf("file is required: %w", err)
	}
	if header.Size > h.maxUploadBytes {
		return "", nil, errTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return "", nil, errTooLarge
	}
	return header.Filename, data, nil
}

func (h *Handlers) uploadError(c *gin.Context, err error) {
	if errors.Is(err, errTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes),
		})
		return
	}
	badRequest(c, err.Error())
}

// fail maps service errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, statement.ErrNoHeader):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, statement.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrNoParser):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
