package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// CashflowHandler exposes the finance ledger endpoints.
type CashflowHandler struct {
	cashflow   *service.CashflowService
	exports    *service.ExportService
	exportJobs *service.ExportJobService
}

// NewCashflowHandler constructs CashflowHandler.
func NewCashflowHandler(cashflow *service.CashflowService, exports *service.ExportService, exportJobs *service.ExportJobService) *CashflowHandler {
	return &CashflowHandler{cashflow: cashflow, exports: exports, exportJobs: exportJobs}
}

func cashflowFilter(c *gin.Context) models.CashflowFilter {
	var filter models.CashflowFilter
	filter.Category = c.Query("category")
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// List godoc
// @Summary List ledger lines with running balances
// @Tags Cashflow
// @Produce json
// @Security BearerAuth
// @Param category query string false "Filter by category"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /cashflow [get]
func (h *CashflowHandler) List(c *gin.Context) {
	filter := cashflowFilter(c)
	lines, total, err := h.cashflow.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lines, &models.Pagination{
		Page: filter.Page, PageSize: filter.PageSize, TotalCount: total,
	})
}

// Balance returns the full ledger balance.
func (h *CashflowHandler) Balance(c *gin.Context) {
	balance, err := h.cashflow.Balance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"balance": balance}, nil)
}

// Record appends a ledger entry.
func (h *CashflowHandler) Record(c *gin.Context) {
	var entry models.CashflowEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.cashflow.Record(c.Request.Context(), middleware.AuthzFrom(c), &entry)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Export streams the filtered ledger as CSV or PDF.
func (h *CashflowHandler) Export(c *gin.Context) {
	filter := cashflowFilter(c)
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		data, err := h.exports.RenderCashflowPDF(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cashflow.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
	case "csv":
		data, err := h.exports.RenderCashflowCSV(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cashflow.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

// CreateExportJob schedules an async ledger export.
func (h *CashflowHandler) CreateExportJob(c *gin.Context) {
	job, err := h.exportJobs.EnqueueCashflow(c.DefaultQuery("format", "csv"), cashflowFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetExportJob reports job progress and, once finished, the download token.
func (h *CashflowHandler) GetExportJob(c *gin.Context) {
	job, err := h.exportJobs.Get(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download streams a finished export. The signed token is the credential.
func (h *CashflowHandler) Download(c *gin.Context) {
	file, contentType, err := h.exportJobs.Download(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": `attachment; filename="` + info.Name() + `"`,
	})
}
