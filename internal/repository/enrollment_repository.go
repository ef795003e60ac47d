package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

// EnrollmentRepository persists enrollments and module progress. Multi-row
// state transitions are applied inside single transactions: a module write,
// its enrollment transition and the audit event are all visible or none are.
// Uniqueness on (employee_id, course_id) and (employee_id, module_id) plus
// ON CONFLICT upserts are the only concurrency control.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, employee_id, course_id, required, status, final_quiz_passed,
        terms_acknowledged, completed_at, passed_at, created_at, updated_at`

// ListByEmployee returns all of an employee's enrollments.
func (r *EnrollmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE employee_id = $1 ORDER BY created_at`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, employeeID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListRequiredByEmployee returns the employee's required enrollments, the
// input to pass evaluation.
func (r *EnrollmentRepository) ListRequiredByEmployee(ctx context.Context, employeeID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE employee_id = $1 AND required = TRUE ORDER BY created_at`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, employeeID); err != nil {
		return nil, fmt.Errorf("list required enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByEmployeeAndCourse returns the unique enrollment for the pair.
func (r *EnrollmentRepository) FindByEmployeeAndCourse(ctx context.Context, employeeID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE employee_id = $1 AND course_id = $2`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, employeeID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// EnsureEnrollments provisions enrollments for the given courses, insert-if-
// absent. Re-running never duplicates or resets an existing enrollment.
func (r *EnrollmentRepository) EnsureEnrollments(ctx context.Context, employeeID string, courseIDs []string, required bool) error {
	if len(courseIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	const query = `INSERT INTO enrollments (id, employee_id, course_id, required, status, final_quiz_passed,
        terms_acknowledged, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6, $6)
        ON CONFLICT (employee_id, course_id) DO NOTHING`
	for _, courseID := range courseIDs {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), employeeID, courseID, required, models.EnrollmentInProgress, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("ensure enrollment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollments: %w", err)
	}
	return nil
}

const progressColumns = `id, employee_id, module_id, status, grader_id, reason, requested_at, completed_at, updated_at`

// FindModuleProgress returns the unique progress row for the pair, or
// sql.ErrNoRows.
func (r *EnrollmentRepository) FindModuleProgress(ctx context.Context, employeeID, moduleID string) (*models.ModuleProgress, error) {
	query := fmt.Sprintf(`SELECT %s FROM module_progress WHERE employee_id = $1 AND module_id = $2`, progressColumns)
	var progress models.ModuleProgress
	if err := r.db.GetContext(ctx, &progress, query, employeeID, moduleID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListModuleProgressByCourse returns an employee's progress rows for all
// modules of one course.
func (r *EnrollmentRepository) ListModuleProgressByCourse(ctx context.Context, employeeID, courseID string) ([]models.ModuleProgress, error) {
	query := fmt.Sprintf(`SELECT mp.%s FROM module_progress mp
        JOIN modules m ON m.id = mp.module_id
        WHERE mp.employee_id = $1 AND m.course_id = $2
        ORDER BY m.order_index`, "id, mp.employee_id, mp.module_id, mp.status, mp.grader_id, mp.reason, mp.requested_at, mp.completed_at, mp.updated_at")
	var rows []models.ModuleProgress
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, courseID); err != nil {
		return nil, fmt.Errorf("list module progress: %w", err)
	}
	return rows, nil
}

// CompletionCounts returns (completed, total) module counts for the pair.
func (r *EnrollmentRepository) CompletionCounts(ctx context.Context, employeeID, courseID string) (int, int, error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE mp.status = 'complete') AS completed,
        COUNT(*) AS total
        FROM modules m
        LEFT JOIN module_progress mp ON mp.module_id = m.id AND mp.employee_id = $1
        WHERE m.course_id = $2`
	var counts struct {
		Completed int `db:"completed"`
		Total     int `db:"total"`
	}
	if err := r.db.GetContext(ctx, &counts, query, employeeID, courseID); err != nil {
		return 0, 0, fmt.Errorf("completion counts: %w", err)
	}
	return counts.Completed, counts.Total, nil
}

// ApplyModuleState upserts one module-progress row and, in the same
// transaction, the optional enrollment transition and audit event. The
// enrollment update is guarded by its expected predecessor status so a racing
// writer cannot move a terminal enrollment backward.
func (r *EnrollmentRepository) ApplyModuleState(ctx context.Context, progress *models.ModuleProgress, transition *models.EnrollmentTransition, audit *models.AuditEvent) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	progress.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	const upsert = `INSERT INTO module_progress (id, employee_id, module_id, status, grader_id, reason, requested_at, completed_at, updated_at)
        VALUES (:id, :employee_id, :module_id, :status, :grader_id, :reason, :requested_at, :completed_at, :updated_at)
        ON CONFLICT (employee_id, module_id) DO UPDATE SET
        status = EXCLUDED.status, grader_id = EXCLUDED.grader_id, reason = EXCLUDED.reason,
        requested_at = EXCLUDED.requested_at, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, progress); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("upsert module progress: %w", err)
	}

	if transition != nil {
		if err := applyTransition(ctx, tx, transition); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}

	if audit != nil {
		if err := appendAudit(ctx, tx, audit); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit module state: %w", err)
	}
	return nil
}

// applyTransition updates an enrollment status guarded by its expected
// predecessor. Zero rows affected means a concurrent writer got there first;
// that is not an error because non-key fields are recomputed from scratch.
func applyTransition(ctx context.Context, ext sqlx.ExtContext, transition *models.EnrollmentTransition) error {
	const query = `UPDATE enrollments SET status = $1, completed_at = COALESCE($2, completed_at),
        passed_at = COALESCE($3, passed_at), updated_at = $4
        WHERE id = $5 AND status = $6`
	if _, err := ext.ExecContext(ctx, query, transition.To, transition.CompletedAt, transition.PassedAt,
		time.Now().UTC(), transition.EnrollmentID, transition.From); err != nil {
		return fmt.Errorf("transition enrollment: %w", err)
	}
	return nil
}

// SetTermsAcknowledged flags the enrollment's terms acknowledgement and
// appends the audit event atomically.
func (r *EnrollmentRepository) SetTermsAcknowledged(ctx context.Context, employeeID, courseID string, audit *models.AuditEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `UPDATE enrollments SET terms_acknowledged = TRUE, updated_at = $3
        WHERE employee_id = $1 AND course_id = $2`
	res, err := tx.ExecContext(ctx, query, employeeID, courseID, time.Now().UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("acknowledge terms: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if audit != nil {
		if err := appendAudit(ctx, tx, audit); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit terms: %w", err)
	}
	return nil
}

// ApplyCollegePass atomically promotes the employee out of the restricted
// state: status flip, passed timestamp and exactly one audit event. The
// guarded UPDATE makes the promotion idempotent under races; when another
// request already promoted, nothing is written and promoted=false.
func (r *EnrollmentRepository) ApplyCollegePass(ctx context.Context, employeeID string, passedAt time.Time, audit *models.AuditEvent) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	const query = `UPDATE employees SET user_status = $1, college_passed_at = $2, updated_at = $2
        WHERE id = $3 AND user_status = $4 AND college_passed_at IS NULL`
	res, err := tx.ExecContext(ctx, query, models.StatusActiveStaff, passedAt, employeeID, models.StatusApplicantAccepted)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return false, fmt.Errorf("promote employee: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return false, fmt.Errorf("promote employee: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return false, nil
	}
	if err := appendAudit(ctx, tx, audit); err != nil {
		tx.Rollback() //nolint:errcheck
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit promotion: %w", err)
	}
	return true, nil
}

// ExtendDueDate updates the employee's training due timestamp and appends
// the audit event atomically.
func (r *EnrollmentRepository) ExtendDueDate(ctx context.Context, employeeID string, due time.Time, audit *models.AuditEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `UPDATE employees SET college_due_at = $2, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, employeeID, due, time.Now().UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("extend due date: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := appendAudit(ctx, tx, audit); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit due date: %w", err)
	}
	return nil
}

// ApplyWithdrawal atomically withdraws a trainee: terminal employee status,
// downgrade of all non-terminal enrollments, revocation of the trainee role
// and one audit event.
func (r *EnrollmentRepository) ApplyWithdrawal(ctx context.Context, employee *models.Employee, traineeRoleName string, audit *models.AuditEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE employees SET user_status = $2, updated_at = $3 WHERE id = $1`,
		employee.ID, models.StatusTraineeWithdrawn, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("withdraw employee: %w", err)
	}
	// Passed enrollments are terminal and stay untouched.
	if _, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET status = $2, updated_at = $3
         WHERE employee_id = $1 AND status IN ($4, $5)`,
		employee.ID, models.EnrollmentWithdrawn, now, models.EnrollmentInProgress, models.EnrollmentCompleted); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("withdraw enrollments: %w", err)
	}
	if traineeRoleName != "" {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM role_assignments ra USING roles r
             WHERE ra.role_id = r.id AND r.name = $2 AND ra.identity_id = $1`,
			employee.IdentityID, traineeRoleName); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("revoke trainee role: %w", err)
		}
	}
	if err := appendAudit(ctx, tx, audit); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit withdrawal: %w", err)
	}
	return nil
}
