package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// FormHandler exposes intranet form endpoints.
type FormHandler struct {
	forms *service.FormService
}

// NewFormHandler constructs FormHandler.
func NewFormHandler(forms *service.FormService) *FormHandler {
	return &FormHandler{forms: forms}
}

// List returns the active forms.
func (h *FormHandler) List(c *gin.Context) {
	forms, err := h.forms.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, forms, nil)
}

// Get returns one form.
func (h *FormHandler) Get(c *gin.Context) {
	form, err := h.forms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

type createFormRequest struct {
	Title  string          `json:"title" binding:"required"`
	Schema json.RawMessage `json:"schema"`
}

// Create persists a new form.
func (h *FormHandler) Create(c *gin.Context) {
	var req createFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.forms.Create(c.Request.Context(), &models.Form{Title: req.Title, Schema: req.Schema})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, form)
}

// Archive deactivates a form.
func (h *FormHandler) Archive(c *gin.Context) {
	if err := h.forms.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type submitFormRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// Submit records the caller's submission.
func (h *FormHandler) Submit(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	if authzCtx == nil || authzCtx.Employee == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no employee record for this session"))
		return
	}
	var req submitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.forms.Submit(c.Request.Context(), authzCtx.Employee.ID, c.Param("id"), req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Submissions lists a form's submissions.
func (h *FormHandler) Submissions(c *gin.Context) {
	submissions, err := h.forms.ListSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}
