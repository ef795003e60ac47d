package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type collegeEnrollmentRepository interface {
	ListByEmployee(ctx context.Context, employeeID string) ([]models.Enrollment, error)
	ListRequiredByEmployee(ctx context.Context, employeeID string) ([]models.Enrollment, error)
	FindByEmployeeAndCourse(ctx context.Context, employeeID, courseID string) (*models.Enrollment, error)
	EnsureEnrollments(ctx context.Context, employeeID string, courseIDs []string, required bool) error
	FindModuleProgress(ctx context.Context, employeeID, moduleID string) (*models.ModuleProgress, error)
	CompletionCounts(ctx context.Context, employeeID, courseID string) (int, int, error)
	ApplyModuleState(ctx context.Context, progress *models.ModuleProgress, transition *models.EnrollmentTransition, audit *models.AuditEvent) error
	SetTermsAcknowledged(ctx context.Context, employeeID, courseID string, audit *models.AuditEvent) error
	ApplyCollegePass(ctx context.Context, employeeID string, passedAt time.Time, audit *models.AuditEvent) (bool, error)
	ExtendDueDate(ctx context.Context, employeeID string, due time.Time, audit *models.AuditEvent) error
	ApplyWithdrawal(ctx context.Context, employee *models.Employee, traineeRoleName string, audit *models.AuditEvent) error
}

type collegeCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListRequiredForApplicants(ctx context.Context) ([]models.Course, error)
	FindModule(ctx context.Context, id string) (*models.Module, error)
}

type collegeEmployeeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
}

// CollegeService drives the training progression engine: enrollment
// provisioning, module completion, terms acknowledgement, pass evaluation and
// the promotion out of the restricted applicant state. Every multi-row
// transition goes through a single repository transaction.
type CollegeService struct {
	enrollments collegeEnrollmentRepository
	courses     collegeCourseRepository
	employees   collegeEmployeeRepository
	validator   *validator.Validate
	logger      *zap.Logger

	defaultDueDays  int
	traineeRoleName string
}

// NewCollegeService constructs a CollegeService instance.
func NewCollegeService(enrollments collegeEnrollmentRepository, courses collegeCourseRepository, employees collegeEmployeeRepository, validate *validator.Validate, logger *zap.Logger, defaultDueDays int, traineeRoleName string) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDueDays <= 0 {
		defaultDueDays = 14
	}
	return &CollegeService{
		enrollments:     enrollments,
		courses:         courses,
		employees:       employees,
		validator:       validate,
		logger:          logger,
		defaultDueDays:  defaultDueDays,
		traineeRoleName: traineeRoleName,
	}
}

// ProvisionEnrollments ensures the employee holds an enrollment for every
// published course required for applicants. Safe to call repeatedly.
func (s *CollegeService) ProvisionEnrollments(ctx context.Context, employeeID string) error {
	courses, err := s.courses.ListRequiredForApplicants(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load required courses")
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	if err := s.enrollments.EnsureEnrollments(ctx, employeeID, ids, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision enrollments")
	}
	return nil
}

// GetProgress returns the employee's per-course progress summaries.
func (s *CollegeService) GetProgress(ctx context.Context, employeeID string) ([]models.CourseProgress, error) {
	enrollments, err := s.enrollments.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	out := make([]models.CourseProgress, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.courses.FindByID(ctx, e.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		completed, total, err := s.enrollments.CompletionCounts(ctx, employeeID, e.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count progress")
		}
		out = append(out, models.CourseProgress{
			CourseID:          e.CourseID,
			CourseTitle:       course.Title,
			Required:          e.Required,
			Status:            e.Status,
			CompletedModules:  completed,
			TotalModules:      total,
			ProgressPct:       models.ProgressPct(completed, total),
			FinalQuizPassed:   e.FinalQuizPassed,
			TermsAcknowledged: e.TermsAcknowledged,
		})
	}
	return out, nil
}

// CompleteModule records a module completion or a marking request, depending
// on the module's rule and who is asking. Self-servable modules complete
// immediately; privileged actors complete on the trainee's behalf; everything
// else parks in awaiting_marking for an instructor.
func (s *CollegeService) CompleteModule(ctx context.Context, actor *authz.Context, employeeID, moduleID, reason string) (*models.ModuleProgress, error) {
	module, err := s.courses.FindModule(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	enrollment, err := s.enrollments.FindByEmployeeAndCourse(ctx, employeeID, module.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee is not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status.Terminal() && enrollment.Status != models.EnrollmentPassed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is no longer active")
	}

	privileged := actor.Has(authz.PermProgressOverride) || actor.Has(authz.PermCollegeManage)
	now := time.Now().UTC()
	progress := &models.ModuleProgress{
		EmployeeID: employeeID,
		ModuleID:   moduleID,
		Reason:     reason,
	}

	var action string
	switch {
	case module.SelfServe():
		progress.Status = models.ProgressComplete
		progress.CompletedAt = &now
		action = models.AuditActionModuleCompleted
	case privileged && !actor.Restricted():
		progress.Status = models.ProgressComplete
		progress.CompletedAt = &now
		if actor.Employee != nil {
			progress.GraderID = &actor.Employee.ID
		}
		action = models.AuditActionModuleCompleted
	default:
		progress.Status = models.ProgressAwaitingMarking
		progress.RequestedAt = &now
		action = models.AuditActionModuleRequested
	}

	transition, err := s.moduleTransition(ctx, enrollment, employeeID, module, progress)
	if err != nil {
		return nil, err
	}

	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     action,
		Metadata:   mustJSON(map[string]string{"module_id": moduleID, "course_id": module.CourseID}),
	}
	if err := s.enrollments.ApplyModuleState(ctx, progress, transition, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record module state")
	}

	// A completion may have satisfied the last checklist item; re-evaluate.
	// The module write already committed, and evaluation is idempotent, so a
	// failure here only delays promotion to the next trigger.
	if progress.Status == models.ProgressComplete {
		if _, err := s.EvaluatePass(ctx, actor, employeeID); err != nil {
			s.logger.Warn("pass evaluation after module completion failed",
				zap.String("employee_id", employeeID), zap.Error(err))
		}
	}
	return progress, nil
}

// moduleTransition decides whether the module write completes the course. The
// counts come from storage, with the pending write accounted for locally, so
// the transition rides the same transaction as the progress upsert.
func (s *CollegeService) moduleTransition(ctx context.Context, enrollment *models.Enrollment, employeeID string, module *models.Module, pending *models.ModuleProgress) (*models.EnrollmentTransition, error) {
	if pending.Status != models.ProgressComplete {
		return nil, nil
	}
	completed, total, err := s.enrollments.CompletionCounts(ctx, employeeID, module.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count progress")
	}
	existing, err := s.enrollments.FindModuleProgress(ctx, employeeID, module.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module progress")
	}
	if existing == nil || existing.Status != models.ProgressComplete {
		completed++
	}
	if total == 0 || completed < total {
		return nil, nil
	}
	// When the quiz and terms are already in, the last module completes the
	// whole checklist and the enrollment goes straight to passed.
	target := models.EnrollmentCompleted
	if enrollment.TermsAcknowledged && enrollment.FinalQuizPassed {
		target = models.EnrollmentPassed
	}
	if !enrollment.Status.CanTransition(target) {
		return nil, nil
	}
	now := time.Now().UTC()
	transition := &models.EnrollmentTransition{
		EnrollmentID: enrollment.ID,
		From:         enrollment.Status,
		To:           target,
		CompletedAt:  &now,
	}
	if target == models.EnrollmentPassed {
		transition.PassedAt = &now
	}
	return transition, nil
}

// AcknowledgeTerms records the employee's acceptance of the course terms.
func (s *CollegeService) AcknowledgeTerms(ctx context.Context, actor *authz.Context, employeeID, courseID string) error {
	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionTermsAccepted,
		Metadata:   mustJSON(map[string]string{"course_id": courseID}),
	}
	if err := s.enrollments.SetTermsAcknowledged(ctx, employeeID, courseID, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acknowledge terms")
	}
	// Terms may have been the last open checklist item.
	if _, err := s.EvaluatePass(ctx, actor, employeeID); err != nil {
		s.logger.Warn("pass evaluation after terms acknowledgement failed",
			zap.String("employee_id", employeeID), zap.Error(err))
	}
	return nil
}

// EvaluatePass checks the full pass checklist over the employee's required
// enrollments and, when satisfied, promotes the employee out of the
// restricted state. The promotion is guarded in storage, so concurrent
// evaluations produce exactly one promotion and one audit event.
func (s *CollegeService) EvaluatePass(ctx context.Context, actor *authz.Context, employeeID string) (*models.PassSummary, error) {
	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if employee.CollegePassedAt != nil {
		return &models.PassSummary{Passed: true, AlreadyPassed: true}, nil
	}

	summary, err := s.evaluateChecklist(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !summary.Passed {
		return summary, nil
	}

	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionCollegePassed,
		Metadata:   mustJSON(map[string]int{"required_courses": summary.RequiredCount}),
	}
	promoted, err := s.enrollments.ApplyCollegePass(ctx, employeeID, time.Now().UTC(), audit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote employee")
	}
	summary.AlreadyPassed = !promoted
	if promoted {
		s.logger.Info("employee passed college training", zap.String("employee_id", employeeID))
	}
	return summary, nil
}

func (s *CollegeService) evaluateChecklist(ctx context.Context, employeeID string) (*models.PassSummary, error) {
	required, err := s.enrollments.ListRequiredByEmployee(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load required enrollments")
	}
	summary := &models.PassSummary{
		RequiredCount:      len(required),
		InductionCompleted: true,
		FinalQuizPassed:    true,
		TermsAcknowledged:  true,
	}
	for _, e := range required {
		completed, total, err := s.enrollments.CompletionCounts(ctx, employeeID, e.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count progress")
		}
		// A course with no modules yet contributes nothing to complete.
		if total > 0 && completed < total {
			summary.InductionCompleted = false
		}
		if !e.FinalQuizPassed {
			summary.FinalQuizPassed = false
		}
		if !e.TermsAcknowledged {
			summary.TermsAcknowledged = false
		}
	}
	// An employee with no required enrollments has nothing to pass yet;
	// promotion waits until at least one required course is provisioned.
	summary.Passed = summary.RequiredCount > 0 &&
		summary.InductionCompleted && summary.FinalQuizPassed && summary.TermsAcknowledged
	return summary, nil
}

// ExtendDueDate pushes the employee's training deadline to an explicit future
// timestamp, by a caller-supplied day offset, or by the configured default
// when neither is given. An explicit timestamp wins over an offset.
func (s *CollegeService) ExtendDueDate(ctx context.Context, actor *authz.Context, employeeID string, until *time.Time, days int) error {
	if days < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "day offset must be positive")
	}
	now := time.Now().UTC()
	offset := s.defaultDueDays
	if days > 0 {
		offset = days
	}
	due := now.AddDate(0, 0, offset)
	if until != nil {
		due = until.UTC()
	}
	if !due.After(now) {
		return appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
	}
	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionDueExtended,
		Metadata:   mustJSON(map[string]string{"due_at": due.Format(time.RFC3339)}),
	}
	if err := s.enrollments.ExtendDueDate(ctx, employeeID, due, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend due date")
	}
	return nil
}

// MarkPassed promotes the employee regardless of the checklist. The override
// exists for administrative corrections; it is still idempotent because the
// storage guard refuses a second promotion.
func (s *CollegeService) MarkPassed(ctx context.Context, actor *authz.Context, employeeID, reason string) (*models.PassSummary, error) {
	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionMarkedPassed,
		Metadata:   mustJSON(map[string]string{"reason": reason}),
	}
	promoted, err := s.enrollments.ApplyCollegePass(ctx, employeeID, time.Now().UTC(), audit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark employee passed")
	}
	return &models.PassSummary{Passed: true, AlreadyPassed: !promoted}, nil
}

// Withdraw removes a trainee from the program: terminal employee status,
// withdrawal of active enrollments and revocation of the trainee role, in one
// transaction. Passed enrollments are left untouched.
func (s *CollegeService) Withdraw(ctx context.Context, actor *authz.Context, employeeID, reason string) error {
	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if employee.UserStatus == models.StatusTraineeWithdrawn {
		return nil
	}
	audit := &models.AuditEvent{
		EmployeeID: &employeeID,
		ActorID:    actorID(actor),
		Action:     models.AuditActionWithdrawn,
		Metadata:   mustJSON(map[string]string{"reason": reason}),
	}
	if err := s.enrollments.ApplyWithdrawal(ctx, employee, s.traineeRoleName, audit); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw trainee")
	}
	return nil
}

// actorID extracts the acting employee id from the request context, when one
// exists. Superusers without an employee record act anonymously in the audit
// trail.
func actorID(actor *authz.Context) *string {
	if actor == nil || actor.Employee == nil {
		return nil
	}
	return &actor.Employee.ID
}

func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	return raw
}
