package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type employeeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByIdentity(ctx context.Context, identityID string) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
}

type enrollmentProvisioner interface {
	ProvisionEnrollments(ctx context.Context, employeeID string) error
}

// EmployeeService manages the employee directory and applicant onboarding.
type EmployeeService struct {
	employees employeeRepository
	college   enrollmentProvisioner
	audits    auditAppender
	validator *validator.Validate
	logger    *zap.Logger

	defaultDueDays int
}

// NewEmployeeService constructs an EmployeeService instance.
func NewEmployeeService(employees employeeRepository, college enrollmentProvisioner, audits auditAppender, validate *validator.Validate, logger *zap.Logger, defaultDueDays int) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDueDays <= 0 {
		defaultDueDays = 14
	}
	return &EmployeeService{
		employees:      employees,
		college:        college,
		audits:         audits,
		validator:      validate,
		logger:         logger,
		defaultDueDays: defaultDueDays,
	}
}

// Accept onboards an accepted applicant: a restricted employee record with
// training window timestamps, plus provisioning of the required enrollments.
func (s *EmployeeService) Accept(ctx context.Context, actor *authz.Context, req models.AcceptEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accept payload")
	}
	if existing, err := s.employees.FindByIdentity(ctx, req.IdentityID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee already exists for this identity")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check identity")
	}

	now := time.Now().UTC()
	dueDays := req.DueDays
	if dueDays <= 0 {
		dueDays = s.defaultDueDays
	}
	due := now.AddDate(0, 0, dueDays)
	employee := &models.Employee{
		IdentityID:     req.IdentityID,
		Username:       req.Username,
		Serial:         req.Serial,
		Rank:           req.Rank,
		Grade:          req.Grade,
		UserStatus:     models.StatusApplicantAccepted,
		CollegeStartAt: &now,
		CollegeDueAt:   &due,
	}
	if err := s.employees.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}

	if err := s.college.ProvisionEnrollments(ctx, employee.ID); err != nil {
		s.logger.Error("enrollment provisioning failed after acceptance",
			zap.String("employee_id", employee.ID), zap.Error(err))
		return nil, err
	}

	if err := s.audits.Append(ctx, &models.AuditEvent{
		EmployeeID: &employee.ID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionEmployeeAccepted,
		Metadata:   mustJSON(map[string]string{"identity_id": req.IdentityID, "due_at": due.Format(time.RFC3339)}),
	}); err != nil {
		s.logger.Warn("failed to record acceptance audit event", zap.Error(err))
	}
	return employee, nil
}

// Get returns one employee by id.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.employees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// List returns employees matching the filter with the total count.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	employees, total, err := s.employees.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	return employees, total, nil
}

// Update mutates display attributes. College lifecycle fields are owned by
// the progression engine and cannot be set here.
func (s *EmployeeService) Update(ctx context.Context, actor *authz.Context, id string, req models.UpdateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	employee, err := s.employees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if req.Username != nil {
		employee.Username = *req.Username
	}
	if req.Serial != nil {
		employee.Serial = *req.Serial
	}
	if req.Rank != nil {
		employee.Rank = *req.Rank
	}
	if req.Grade != nil {
		employee.Grade = *req.Grade
	}
	if req.Status != nil {
		employee.UserStatus = *req.Status
	}
	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	if err := s.audits.Append(ctx, &models.AuditEvent{
		EmployeeID: &employee.ID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionEmployeeUpdated,
	}); err != nil {
		s.logger.Warn("failed to record update audit event", zap.Error(err))
	}
	return employee, nil
}
