package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// ExamHandler exposes exam submission and grading endpoints.
type ExamHandler struct {
	exams *service.ExamService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

type submitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// Submit godoc
// @Summary Submit an exam attempt
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param payload body submitAttemptRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Router /college/exams/{id}/attempts [post]
func (h *ExamHandler) Submit(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exams.SubmitAttempt(c.Request.Context(), authzCtx, employeeID, c.Param("id"), req.Answers)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListAttempts returns the employee's attempts for one exam.
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	attempts, err := h.exams.ListAttempts(c.Request.Context(), employeeID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

type gradeAttemptRequest struct {
	Score int    `json:"score" binding:"min=0,max=100"`
	Notes string `json:"notes"`
}

// Grade godoc
// @Summary Manually grade an attempt
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "Attempt ID"
// @Param payload body gradeAttemptRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /college/attempts/{attemptId}/grade [put]
func (h *ExamHandler) Grade(c *gin.Context) {
	var req gradeAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attempt, err := h.exams.GradeAttempt(c.Request.Context(), middleware.AuthzFrom(c), c.Param("attemptId"), req.Score, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}
