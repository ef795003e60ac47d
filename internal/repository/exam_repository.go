package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

// ExamRepository persists exams, questions and attempts. A passing attempt's
// side effects (final-quiz flag, module completion, enrollment transition)
// are written in the same transaction as the attempt itself.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID returns an exam by primary key.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, course_id, module_id, title, passing_score, attempt_limit, time_limit_min, created_at, updated_at
        FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListQuestions returns the exam's questions in order.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error) {
	const query = `SELECT id, exam_id, type, prompt, choices, expected_answer, points, order_index
        FROM exam_questions WHERE exam_id = $1 ORDER BY order_index`
	var questions []models.ExamQuestion
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// CountAttempts returns the number of attempts an employee has consumed.
func (r *ExamRepository) CountAttempts(ctx context.Context, employeeID, examID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM exam_attempts WHERE employee_id = $1 AND exam_id = $2`
	if err := r.db.GetContext(ctx, &total, query, employeeID, examID); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return total, nil
}

// FindAttempt returns an attempt by primary key.
func (r *ExamRepository) FindAttempt(ctx context.Context, id string) (*models.ExamAttempt, error) {
	const query = `SELECT id, exam_id, employee_id, answers, score, passed, grader_id, notes, submitted_at, graded_at
        FROM exam_attempts WHERE id = $1`
	var attempt models.ExamAttempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListAttempts returns an employee's attempts for one exam, newest first.
func (r *ExamRepository) ListAttempts(ctx context.Context, employeeID, examID string) ([]models.ExamAttempt, error) {
	const query = `SELECT id, exam_id, employee_id, answers, score, passed, grader_id, notes, submitted_at, graded_at
        FROM exam_attempts WHERE employee_id = $1 AND exam_id = $2 ORDER BY submitted_at DESC`
	var attempts []models.ExamAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, employeeID, examID); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// RecordAttempt inserts the attempt and applies pass side effects in one
// transaction.
func (r *ExamRepository) RecordAttempt(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO exam_attempts (id, exam_id, employee_id, answers, score, passed, grader_id, notes, submitted_at, graded_at)
        VALUES (:id, :exam_id, :employee_id, :answers, :score, :passed, :grader_id, :notes, :submitted_at, :graded_at)`
	if _, err := tx.NamedExecContext(ctx, insert, attempt); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert attempt: %w", err)
	}
	if err := applyExamEffects(ctx, tx, effects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attempt: %w", err)
	}
	return nil
}

// UpdateAttemptGrade applies a manual grade and, when passing, the same side
// effects as auto-grading, all in one transaction. Re-grading replays the
// effects through the idempotent upserts.
func (r *ExamRepository) UpdateAttemptGrade(ctx context.Context, attempt *models.ExamAttempt, effects *models.ExamPassEffects) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const update = `UPDATE exam_attempts SET score = :score, passed = :passed, grader_id = :grader_id,
        notes = :notes, graded_at = :graded_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, attempt); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("grade attempt: %w", err)
	}
	if err := applyExamEffects(ctx, tx, effects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade: %w", err)
	}
	return nil
}

// applyExamEffects writes the pass side effects: final_quiz_passed on the
// enrollment (never downgrading a passed status), an optional module
// completion upsert, an optional enrollment transition and the audit event.
func applyExamEffects(ctx context.Context, tx *sqlx.Tx, effects *models.ExamPassEffects) error {
	if effects == nil {
		return nil
	}
	if effects.EmployeeID != "" && effects.CourseID != "" {
		const flag = `UPDATE enrollments SET final_quiz_passed = TRUE, updated_at = $3
        WHERE employee_id = $1 AND course_id = $2`
		if _, err := tx.ExecContext(ctx, flag, effects.EmployeeID, effects.CourseID, time.Now().UTC()); err != nil {
			return fmt.Errorf("flag final quiz: %w", err)
		}
	}
	if effects.Module != nil {
		if effects.Module.ID == "" {
			effects.Module.ID = uuid.NewString()
		}
		effects.Module.UpdatedAt = time.Now().UTC()
		const upsert = `INSERT INTO module_progress (id, employee_id, module_id, status, grader_id, reason, requested_at, completed_at, updated_at)
            VALUES (:id, :employee_id, :module_id, :status, :grader_id, :reason, :requested_at, :completed_at, :updated_at)
            ON CONFLICT (employee_id, module_id) DO UPDATE SET
            status = EXCLUDED.status, grader_id = EXCLUDED.grader_id, reason = EXCLUDED.reason,
            requested_at = EXCLUDED.requested_at, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, upsert, effects.Module); err != nil {
			return fmt.Errorf("upsert module progress: %w", err)
		}
	}
	if effects.Transition != nil {
		if err := applyTransition(ctx, tx, effects.Transition); err != nil {
			return err
		}
	}
	if effects.Audit != nil {
		if err := appendAudit(ctx, tx, effects.Audit); err != nil {
			return err
		}
	}
	return nil
}
