package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// VoyageHandler exposes voyage management and settlement endpoints.
type VoyageHandler struct {
	voyages *service.VoyageService
}

// NewVoyageHandler constructs VoyageHandler.
func NewVoyageHandler(voyages *service.VoyageService) *VoyageHandler {
	return &VoyageHandler{voyages: voyages}
}

// List godoc
// @Summary List voyages
// @Tags Voyages
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param search query string false "Search name or vessel"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /voyages [get]
func (h *VoyageHandler) List(c *gin.Context) {
	var filter models.VoyageFilter
	if status := c.Query("status"); status != "" {
		s := models.VoyageStatus(status)
		filter.Status = &s
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	voyages, total, err := h.voyages.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voyages, &models.Pagination{
		Page: filter.Page, PageSize: filter.PageSize, TotalCount: total,
	})
}

// Get returns one voyage with its crew.
func (h *VoyageHandler) Get(c *gin.Context) {
	voyage, crew, err := h.voyages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"voyage": voyage, "crew": crew}, nil)
}

// Create persists a new voyage.
func (h *VoyageHandler) Create(c *gin.Context) {
	var voyage models.Voyage
	if err := c.ShouldBindJSON(&voyage); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.voyages.Create(c.Request.Context(), &voyage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update mutates a voyage.
func (h *VoyageHandler) Update(c *gin.Context) {
	var voyage models.Voyage
	if err := c.ShouldBindJSON(&voyage); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	voyage.ID = c.Param("id")
	if err := h.voyages.Update(c.Request.Context(), &voyage); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voyage, nil)
}

type assignCrewRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	SharePct   int    `json:"share_pct" binding:"min=0,max=100"`
}

// AssignCrew sets a crew member's share on a voyage.
func (h *VoyageHandler) AssignCrew(c *gin.Context) {
	var req assignCrewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.voyages.AssignCrew(c.Request.Context(), c.Param("id"), req.EmployeeID, req.SharePct); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Settle godoc
// @Summary Settle a completed voyage
// @Tags Voyages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Voyage ID"
// @Success 200 {object} response.Envelope
// @Router /voyages/{id}/settle [post]
func (h *VoyageHandler) Settle(c *gin.Context) {
	settlement, err := h.voyages.Settle(c.Request.Context(), middleware.AuthzFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}
