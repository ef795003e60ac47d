package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockExamRepo struct {
	exams     map[string]models.Exam
	questions map[string][]models.ExamQuestion
	attempts  map[string]models.ExamAttempt
	used      int

	recorded        *models.ExamAttempt
	recordedEffects *models.ExamPassEffects
	graded          *models.ExamAttempt
	gradedEffects   *models.ExamPassEffects
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := m.exams[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error) {
	return m.questions[examID], nil
}

func (m *mockExamRepo) CountAttempts(ctx context.Context, employeeID, examID string) (int, error) {
	return m.used, nil
}

func (m *mockExamRepo) FindAttempt(ctx context.Context, id string) (*models.ExamAttempt, error) {
	if a, ok := m.attempts[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) ListAttempts(ctx context.Context, employeeID, examID string) ([]models.ExamAttempt, error) {
	var out []models.ExamAttempt
	for _, a := range m.attempts {
		if a.EmployeeID == employeeID && a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockExamRepo) RecordAttempt(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error {
	m.recorded = attempt
	m.recordedEffects = effects
	return nil
}

func (m *mockExamRepo) UpdateAttemptGrade(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error {
	m.graded = attempt
	m.gradedEffects = effects
	return nil
}

type mockExamEnrollmentRepo struct {
	enrollment *models.Enrollment
	completed  int
	total      int
}

func (m *mockExamEnrollmentRepo) FindByEmployeeAndCourse(ctx context.Context, employeeID, courseID string) (*models.Enrollment, error) {
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockExamEnrollmentRepo) CompletionCounts(ctx context.Context, employeeID, courseID string) (int, int, error) {
	return m.completed, m.total, nil
}

type mockPassEvaluator struct {
	evaluated []string
}

func (m *mockPassEvaluator) EvaluatePass(ctx context.Context, actor *authz.Context, employeeID string) (*models.PassSummary, error) {
	m.evaluated = append(m.evaluated, employeeID)
	return &models.PassSummary{}, nil
}

func strptr(s string) *string { return &s }

func quizExam(limit int) models.Exam {
	return models.Exam{ID: "x1", CourseID: "c1", Title: "Final Quiz", PassingScore: 60, AttemptLimit: limit}
}

func TestExamServiceSubmitAutoGrades(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("port"), Points: 1},
			{ID: "q2", ExpectedAnswer: strptr("starboard"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  0, total: 2,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{
		"q1": "port",
		"q2": "bow",
	})
	require.NoError(t, err)
	assert.False(t, result.RequiresManualGrading)
	require.NotNil(t, result.Attempt.Score)
	assert.Equal(t, 50, *result.Attempt.Score)
	assert.False(t, result.Attempt.Passed)
	assert.NotNil(t, result.Attempt.GradedAt)

	// A failed attempt carries the audit event only.
	require.NotNil(t, repo.recordedEffects)
	assert.Empty(t, repo.recordedEffects.EmployeeID)
	assert.Nil(t, repo.recordedEffects.Module)
	assert.Nil(t, repo.recordedEffects.Transition)
	assert.Equal(t, models.AuditActionExamSubmitted, repo.recordedEffects.Audit.Action)
}

func TestExamServiceSubmitNormalizesAnswers(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("  Port  "), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  1, total: 1,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{"q1": "pORT"})
	require.NoError(t, err)
	require.NotNil(t, result.Attempt.Score)
	assert.Equal(t, 100, *result.Attempt.Score)
	assert.True(t, result.Attempt.Passed)

	require.NotNil(t, repo.recordedEffects)
	assert.Equal(t, "emp1", repo.recordedEffects.EmployeeID)
	assert.Equal(t, "c1", repo.recordedEffects.CourseID)
	require.NotNil(t, repo.recordedEffects.Transition)
	assert.Equal(t, models.EnrollmentPassed, repo.recordedEffects.Transition.To)
}

func TestExamServiceSubmitWeightsPoints(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(0)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("a"), Points: 3},
			{ID: "q2", ExpectedAnswer: strptr("b"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  0, total: 5,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{"q1": "a", "q2": "wrong"})
	require.NoError(t, err)
	require.NotNil(t, result.Attempt.Score)
	assert.Equal(t, 75, *result.Attempt.Score)
	assert.True(t, result.Attempt.Passed)
}

func TestExamServiceSubmitDefersToManualGrading(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("port"), Points: 1},
			{ID: "q2", ExpectedAnswer: nil, Points: 2},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  0, total: 1,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{
		"q1": "port",
		"q2": "the long way round",
	})
	require.NoError(t, err)
	assert.True(t, result.RequiresManualGrading)
	assert.Nil(t, result.Attempt.Score)
	assert.Nil(t, result.Attempt.GradedAt)
	assert.False(t, result.Attempt.Passed)
}

func TestExamServiceSubmitEnforcesAttemptLimit(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(2)},
		used:  2,
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	_, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "attempt limit exceeded")
	assert.Nil(t, repo.recorded)
}

func TestExamServiceSubmitAttemptLimitIgnoredForGraders(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(2)},
		used:  5,
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("port"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  0, total: 3,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	marker := authz.NewContext(authz.NewCatalog(), []string{authz.PermExamMark}, nil, &models.Employee{ID: "staff1"})
	result, err := svc.SubmitAttempt(context.Background(), marker, "emp1", "x1", map[string]string{"q1": "port"})
	require.NoError(t, err)
	assert.NotNil(t, result.Attempt)
}

func TestExamServiceSubmitModuleBoundExamCompletesModule(t *testing.T) {
	exam := quizExam(3)
	exam.ModuleID = strptr("m9")
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": exam},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("yes"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  2, total: 3,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	_, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{"q1": "yes"})
	require.NoError(t, err)
	require.NotNil(t, repo.recordedEffects.Module)
	assert.Equal(t, "m9", repo.recordedEffects.Module.ModuleID)
	require.NotNil(t, repo.recordedEffects.Transition)
	assert.Equal(t, models.EnrollmentPassed, repo.recordedEffects.Transition.To)
}

func TestExamServiceGradeAttempt(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		attempts: map[string]models.ExamAttempt{
			"a1": {ID: "a1", ExamID: "x1", EmployeeID: "emp1"},
		},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentCompleted},
		completed:  2, total: 2,
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	grader := authz.NewContext(authz.NewCatalog(), []string{authz.PermExamMark}, nil, &models.Employee{ID: "staff1"})
	attempt, err := svc.GradeAttempt(context.Background(), grader, "a1", 80, "good work")
	require.NoError(t, err)
	assert.True(t, attempt.Passed)
	require.NotNil(t, attempt.Score)
	assert.Equal(t, 80, *attempt.Score)
	require.NotNil(t, attempt.GraderID)
	assert.Equal(t, "staff1", *attempt.GraderID)

	require.NotNil(t, repo.gradedEffects)
	assert.Equal(t, models.AuditActionExamGraded, repo.gradedEffects.Audit.Action)
	require.NotNil(t, repo.gradedEffects.Transition)
	assert.Equal(t, models.EnrollmentPassed, repo.gradedEffects.Transition.To)
}

func TestExamServiceGradeAttemptFailing(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		attempts: map[string]models.ExamAttempt{
			"a1": {ID: "a1", ExamID: "x1", EmployeeID: "emp1"},
		},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
	}
	svc := NewExamService(repo, enrollments, nil, zap.NewNop())

	attempt, err := svc.GradeAttempt(context.Background(), nil, "a1", 40, "")
	require.NoError(t, err)
	assert.False(t, attempt.Passed)
	assert.Nil(t, repo.gradedEffects.Transition)
	assert.Empty(t, repo.gradedEffects.EmployeeID)
}

func TestExamServiceSubmitPassReEvaluatesChecklist(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("port"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  1, total: 1,
	}
	college := &mockPassEvaluator{}
	svc := NewExamService(repo, enrollments, college, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{"q1": "port"})
	require.NoError(t, err)
	require.True(t, result.Attempt.Passed)
	assert.Equal(t, []string{"emp1"}, college.evaluated)
}

func TestExamServiceSubmitFailDoesNotReEvaluate(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		questions: map[string][]models.ExamQuestion{"x1": {
			{ID: "q1", ExpectedAnswer: strptr("port"), Points: 1},
		}},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentInProgress},
		completed:  0, total: 1,
	}
	college := &mockPassEvaluator{}
	svc := NewExamService(repo, enrollments, college, zap.NewNop())

	result, err := svc.SubmitAttempt(context.Background(), traineeContext(t, trainee("emp1")), "emp1", "x1", map[string]string{"q1": "stern"})
	require.NoError(t, err)
	require.False(t, result.Attempt.Passed)
	assert.Empty(t, college.evaluated)
}

func TestExamServiceGradePassReEvaluatesChecklist(t *testing.T) {
	repo := &mockExamRepo{
		exams: map[string]models.Exam{"x1": quizExam(3)},
		attempts: map[string]models.ExamAttempt{
			"a1": {ID: "a1", ExamID: "x1", EmployeeID: "emp1"},
		},
	}
	enrollments := &mockExamEnrollmentRepo{
		enrollment: &models.Enrollment{ID: "e1", Status: models.EnrollmentCompleted},
		completed:  2, total: 2,
	}
	college := &mockPassEvaluator{}
	svc := NewExamService(repo, enrollments, college, zap.NewNop())

	grader := authz.NewContext(authz.NewCatalog(), []string{authz.PermExamMark}, nil, &models.Employee{ID: "staff1"})
	_, err := svc.GradeAttempt(context.Background(), grader, "a1", 90, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"emp1"}, college.evaluated)
}

func TestExamServiceGradeAttemptValidatesScore(t *testing.T) {
	svc := NewExamService(&mockExamRepo{}, &mockExamEnrollmentRepo{}, nil, zap.NewNop())

	_, err := svc.GradeAttempt(context.Background(), nil, "a1", 120, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
