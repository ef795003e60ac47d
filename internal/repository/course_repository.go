package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

// CourseRepository handles persistence of courses and modules.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, description, required_for_applicants, published, archived_at, created_at, updated_at`

// FindByID returns a course by primary key. Archived courses are excluded.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 AND archived_at IS NULL`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListPublished returns published, non-archived courses.
func (r *CourseRepository) ListPublished(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE published = TRUE AND archived_at IS NULL ORDER BY title`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}
	return courses, nil
}

// ListRequiredForApplicants returns the courses auto-provisioned on acceptance.
func (r *CourseRepository) ListRequiredForApplicants(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses
        WHERE published = TRUE AND required_for_applicants = TRUE AND archived_at IS NULL ORDER BY title`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list required courses: %w", err)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, description, required_for_applicants, published, created_at, updated_at)
        VALUES (:id, :title, :description, :required_for_applicants, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update mutates course attributes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description,
        required_for_applicants = :required_for_applicants, published = :published, updated_at = :updated_at
        WHERE id = :id AND archived_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Archive soft-deletes a course.
func (r *CourseRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE courses SET archived_at = $2, updated_at = $2 WHERE id = $1 AND archived_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive course: %w", err)
	}
	return nil
}

const moduleColumns = `id, course_id, title, order_index, content_type, completion_rule, self_completable, created_at, updated_at`

// FindModule returns a module by primary key.
func (r *CourseRepository) FindModule(ctx context.Context, id string) (*models.Module, error) {
	query := fmt.Sprintf(`SELECT %s FROM modules WHERE id = $1`, moduleColumns)
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// ListModules returns a course's modules in order.
func (r *CourseRepository) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	query := fmt.Sprintf(`SELECT %s FROM modules WHERE course_id = $1 ORDER BY order_index`, moduleColumns)
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// CreateModule persists a new module.
func (r *CourseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now
	const query = `INSERT INTO modules (id, course_id, title, order_index, content_type, completion_rule, self_completable, created_at, updated_at)
        VALUES (:id, :course_id, :title, :order_index, :content_type, :completion_rule, :self_completable, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// CountModules returns the number of modules in a course.
func (r *CourseRepository) CountModules(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM modules WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return total, nil
}
