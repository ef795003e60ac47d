package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type courseAdminRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListPublished(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Archive(ctx context.Context, id string) error
	FindModule(ctx context.Context, id string) (*models.Module, error)
	ListModules(ctx context.Context, courseID string) ([]models.Module, error)
	CreateModule(ctx context.Context, module *models.Module) error
}

// CourseService administers the training catalog: courses and their modules.
type CourseService struct {
	courses   courseAdminRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseAdminRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, validator: validate, logger: logger}
}

// ListPublished returns the browsable catalog.
func (s *CourseService) ListPublished(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.ListPublished(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course with its modules.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, []models.Module, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	modules, err := s.courses.ListModules(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modules")
	}
	return course, modules, nil
}

// Create persists a new course.
func (s *CourseService) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	if course.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course title is required")
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update mutates course attributes.
func (s *CourseService) Update(ctx context.Context, course *models.Course) error {
	if course.ID == "" || course.Title == "" {
		return appErrors.Clone(appErrors.ErrValidation, "course id and title are required")
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return nil
}

// Archive soft-deletes a course. Existing enrollments keep their history.
func (s *CourseService) Archive(ctx context.Context, id string) error {
	if err := s.courses.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive course")
	}
	return nil
}

// AddModule appends a module to a course.
func (s *CourseService) AddModule(ctx context.Context, module *models.Module) (*models.Module, error) {
	if module.CourseID == "" || module.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "module course id and title are required")
	}
	if module.CompletionRule == "" {
		module.CompletionRule = models.CompletionManual
	}
	if _, err := s.courses.FindByID(ctx, module.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.courses.CreateModule(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	return module, nil
}
