package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type examRepository interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error)
	CountAttempts(ctx context.Context, employeeID, examID string) (int, error)
	FindAttempt(ctx context.Context, id string) (*models.ExamAttempt, error)
	ListAttempts(ctx context.Context, employeeID, examID string) ([]models.ExamAttempt, error)
	RecordAttempt(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error
	UpdateAttemptGrade(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error
}

type examEnrollmentRepository interface {
	FindByEmployeeAndCourse(ctx context.Context, employeeID, courseID string) (*models.Enrollment, error)
	CompletionCounts(ctx context.Context, employeeID, courseID string) (int, int, error)
}

type passEvaluator interface {
	EvaluatePass(ctx context.Context, actor *authz.Context, employeeID string) (*models.PassSummary, error)
}

// ExamService grades attempts and applies pass side effects. Auto-gradable
// answers are compared after trimming and lowercasing; a question with no
// stored expected answer forces the whole attempt into manual grading.
type ExamService struct {
	exams       examRepository
	enrollments examEnrollmentRepository
	college     passEvaluator
	logger      *zap.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(exams examRepository, enrollments examEnrollmentRepository, college passEvaluator, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, enrollments: enrollments, college: college, logger: logger}
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Attempt               *models.ExamAttempt `json:"attempt"`
	RequiresManualGrading bool                `json:"requires_manual_grading"`
}

// SubmitAttempt records a submission and auto-grades it when every question
// carries an expected answer. The attempt limit binds non-privileged
// principals only.
func (s *ExamService) SubmitAttempt(ctx context.Context, actor *authz.Context, employeeID, examID string, answers map[string]string) (*SubmitResult, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	enrollment, err := s.enrollments.FindByEmployeeAndCourse(ctx, employeeID, exam.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee is not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	privileged := actor.Has(authz.PermExamMark) || actor.Has(authz.PermCollegeManage)
	if exam.AttemptLimit > 0 && !privileged {
		used, err := s.exams.CountAttempts(ctx, employeeID, examID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attempts")
		}
		if used >= exam.AttemptLimit {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attempt limit exceeded")
		}
	}

	questions, err := s.exams.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	score, manual := gradeAnswers(questions, answers)

	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answers payload")
	}

	now := time.Now().UTC()
	attempt := &models.ExamAttempt{
		ExamID:      examID,
		EmployeeID:  employeeID,
		Answers:     rawAnswers,
		SubmittedAt: now,
	}
	if !manual {
		attempt.Score = &score
		attempt.Passed = score >= exam.PassingScore
		attempt.GradedAt = &now
	}

	var effects *models.ExamPassEffects
	if attempt.Passed {
		effects, err = s.passEffects(ctx, actor, exam, enrollment, employeeID)
		if err != nil {
			return nil, err
		}
	} else {
		// A non-passing attempt records the audit event only; it must not
		// flip the final-quiz flag.
		effects = &models.ExamPassEffects{Audit: &models.AuditEvent{
			EmployeeID: &employeeID,
			ActorID:    actorID(actor),
			Action:     models.AuditActionExamSubmitted,
			Metadata:   mustJSON(map[string]interface{}{"exam_id": examID, "manual": manual}),
		}}
	}

	if err := s.exams.RecordAttempt(ctx, attempt, effects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attempt")
	}
	if attempt.Passed {
		s.evaluatePass(ctx, actor, employeeID)
	}
	return &SubmitResult{Attempt: attempt, RequiresManualGrading: manual}, nil
}

// GradeAttempt applies a manual grade. Re-grading is allowed; the pass side
// effects replay through idempotent upserts, and an earlier promotion is
// never revoked.
func (s *ExamService) GradeAttempt(ctx context.Context, actor *authz.Context, attemptID string, score int, notes string) (*models.ExamAttempt, error) {
	if score < 0 || score > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 100")
	}
	attempt, err := s.exams.FindAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	exam, err := s.exams.FindByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	enrollment, err := s.enrollments.FindByEmployeeAndCourse(ctx, attempt.EmployeeID, exam.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	now := time.Now().UTC()
	attempt.Score = &score
	attempt.Passed = score >= exam.PassingScore
	attempt.GraderID = actorID(actor)
	attempt.Notes = notes
	attempt.GradedAt = &now

	var effects *models.ExamPassEffects
	if attempt.Passed {
		effects, err = s.passEffects(ctx, actor, exam, enrollment, attempt.EmployeeID)
		if err != nil {
			return nil, err
		}
		effects.Audit.Action = models.AuditActionExamGraded
	} else {
		effects = &models.ExamPassEffects{Audit: &models.AuditEvent{
			EmployeeID: &attempt.EmployeeID,
			ActorID:    actorID(actor),
			Action:     models.AuditActionExamGraded,
			Metadata:   mustJSON(map[string]interface{}{"exam_id": exam.ID, "score": score}),
		}}
	}
	if err := s.exams.UpdateAttemptGrade(ctx, attempt, effects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade attempt")
	}
	if attempt.Passed {
		s.evaluatePass(ctx, actor, attempt.EmployeeID)
	}
	return attempt, nil
}

// evaluatePass re-runs the pass checklist after a passing attempt lands. The
// attempt is already committed and evaluation is idempotent, so a failure is
// logged and promotion waits for the next trigger.
func (s *ExamService) evaluatePass(ctx context.Context, actor *authz.Context, employeeID string) {
	if s.college == nil {
		return
	}
	if _, err := s.college.EvaluatePass(ctx, actor, employeeID); err != nil {
		s.logger.Warn("pass evaluation after exam pass failed",
			zap.String("employee_id", employeeID), zap.Error(err))
	}
}

// ListAttempts returns an employee's attempts for an exam.
func (s *ExamService) ListAttempts(ctx context.Context, employeeID, examID string) ([]models.ExamAttempt, error) {
	attempts, err := s.exams.ListAttempts(ctx, employeeID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	return attempts, nil
}

// passEffects assembles the side effects of a passing attempt: the enrollment
// final-quiz flag, the gated module's completion when the exam is bound to
// one, and the enrollment transition to passed when every module is complete.
func (s *ExamService) passEffects(ctx context.Context, actor *authz.Context, exam *models.Exam, enrollment *models.Enrollment, employeeID string) (*models.ExamPassEffects, error) {
	now := time.Now().UTC()
	effects := &models.ExamPassEffects{
		EmployeeID: employeeID,
		CourseID:   exam.CourseID,
		Audit: &models.AuditEvent{
			EmployeeID: &employeeID,
			ActorID:    actorID(actor),
			Action:     models.AuditActionExamSubmitted,
			Metadata:   mustJSON(map[string]interface{}{"exam_id": exam.ID, "passed": true}),
		},
	}
	if exam.ModuleID != nil {
		effects.Module = &models.ModuleProgress{
			EmployeeID:  employeeID,
			ModuleID:    *exam.ModuleID,
			Status:      models.ProgressComplete,
			CompletedAt: &now,
		}
	}

	completed, total, err := s.enrollments.CompletionCounts(ctx, employeeID, exam.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count progress")
	}
	if effects.Module != nil {
		completed++
		if completed > total {
			completed = total
		}
	}
	if completed >= total && enrollment.Status.CanTransition(models.EnrollmentPassed) {
		effects.Transition = &models.EnrollmentTransition{
			EnrollmentID: enrollment.ID,
			From:         enrollment.Status,
			To:           models.EnrollmentPassed,
			PassedAt:     &now,
		}
	}
	return effects, nil
}

// gradeAnswers scores the submission. A question with a nil or empty expected
// answer cannot be auto-graded; one such question defers the entire attempt
// to manual grading.
func gradeAnswers(questions []models.ExamQuestion, answers map[string]string) (int, bool) {
	totalPoints := 0
	earned := 0
	manual := false
	for _, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		totalPoints += points
		if q.ExpectedAnswer == nil || strings.TrimSpace(*q.ExpectedAnswer) == "" {
			manual = true
			continue
		}
		given, ok := answers[q.ID]
		if !ok {
			continue
		}
		if normalizeAnswer(given) == normalizeAnswer(*q.ExpectedAnswer) {
			earned += points
		}
	}
	if manual || totalPoints == 0 {
		return 0, manual
	}
	score := int(math.Round(100 * float64(earned) / float64(totalPoints)))
	return score, false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
