package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/models"
	"github.com/frontier-maritime/intranet-api/internal/service"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/response"
)

// CollegeHandler exposes the training progression endpoints.
type CollegeHandler struct {
	college *service.CollegeService
	courses *service.CourseService
	exports *service.ExportService
}

// NewCollegeHandler constructs CollegeHandler.
func NewCollegeHandler(college *service.CollegeService, courses *service.CourseService, exports *service.ExportService) *CollegeHandler {
	return &CollegeHandler{college: college, courses: courses, exports: exports}
}

// targetEmployee resolves the employee a college call acts on. Without an id
// parameter the caller acts on themselves; acting on someone else requires a
// management permission.
func targetEmployee(c *gin.Context, authzCtx *authz.Context) (string, error) {
	id := c.Param("employeeId")
	if id == "" {
		if authzCtx == nil || authzCtx.Employee == nil {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "no employee record for this session")
		}
		return authzCtx.Employee.ID, nil
	}
	if authzCtx.Employee != nil && authzCtx.Employee.ID == id {
		return id, nil
	}
	if !authzCtx.HasAny(authz.PermCollegeManage, authz.PermProgressOverride, authz.PermExamMark) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot act on another employee's training")
	}
	return id, nil
}

// ListCourses godoc
// @Summary List published courses
// @Tags College
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /college/courses [get]
func (h *CollegeHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.ListPublished(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// GetCourse returns a course with its modules.
func (h *CollegeHandler) GetCourse(c *gin.Context) {
	course, modules, err := h.courses.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course": course, "modules": modules}, nil)
}

// CreateCourse persists a new course.
func (h *CollegeHandler) CreateCourse(c *gin.Context) {
	var course models.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.courses.Create(c.Request.Context(), &course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateCourse mutates course attributes.
func (h *CollegeHandler) UpdateCourse(c *gin.Context) {
	var course models.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course.ID = c.Param("courseId")
	if err := h.courses.Update(c.Request.Context(), &course); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ArchiveCourse soft-deletes a course.
func (h *CollegeHandler) ArchiveCourse(c *gin.Context) {
	if err := h.courses.Archive(c.Request.Context(), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddModule appends a module to a course.
func (h *CollegeHandler) AddModule(c *gin.Context) {
	var module models.Module
	if err := c.ShouldBindJSON(&module); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module.CourseID = c.Param("courseId")
	created, err := h.courses.AddModule(c.Request.Context(), &module)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Progress godoc
// @Summary Per-course training progress
// @Tags College
// @Produce json
// @Security BearerAuth
// @Param employeeId path string false "Employee ID, defaults to self"
// @Success 200 {object} response.Envelope
// @Router /college/progress [get]
func (h *CollegeHandler) Progress(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	progress, err := h.college.GetProgress(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

type completeModuleRequest struct {
	Reason string `json:"reason"`
}

// CompleteModule records a module completion or marking request.
func (h *CollegeHandler) CompleteModule(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req completeModuleRequest
	_ = c.ShouldBindJSON(&req)
	progress, err := h.college.CompleteModule(c.Request.Context(), authzCtx, employeeID, c.Param("moduleId"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// AcknowledgeTerms records acceptance of a course's terms.
func (h *CollegeHandler) AcknowledgeTerms(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.college.AcknowledgeTerms(c.Request.Context(), authzCtx, employeeID, c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EvaluatePass godoc
// @Summary Evaluate the pass checklist and promote when satisfied
// @Tags College
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /college/pass/evaluate [post]
func (h *CollegeHandler) EvaluatePass(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.college.EvaluatePass(c.Request.Context(), authzCtx, employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

type extendDueRequest struct {
	Until *time.Time `json:"until,omitempty"`
	Days  int        `json:"days,omitempty"`
}

// ExtendDue pushes an employee's training deadline.
func (h *CollegeHandler) ExtendDue(c *gin.Context) {
	var req extendDueRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.college.ExtendDueDate(c.Request.Context(), middleware.AuthzFrom(c), c.Param("employeeId"), req.Until, req.Days); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

// MarkPassed promotes an employee by administrative override.
func (h *CollegeHandler) MarkPassed(c *gin.Context) {
	var req overrideRequest
	_ = c.ShouldBindJSON(&req)
	summary, err := h.college.MarkPassed(c.Request.Context(), middleware.AuthzFrom(c), c.Param("employeeId"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Withdraw removes a trainee from the program.
func (h *CollegeHandler) Withdraw(c *gin.Context) {
	var req overrideRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.college.Withdraw(c.Request.Context(), middleware.AuthzFrom(c), c.Param("employeeId"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Certificate streams the completion certificate PDF.
func (h *CollegeHandler) Certificate(c *gin.Context) {
	authzCtx := middleware.AuthzFrom(c)
	employeeID, err := targetEmployee(c, authzCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.exports.RenderCertificate(c.Request.Context(), employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="certificate.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
