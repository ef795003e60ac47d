package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

// FormRepository persists form definitions and submissions.
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository constructs the repository.
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// ListActive returns non-archived, active forms.
func (r *FormRepository) ListActive(ctx context.Context) ([]models.Form, error) {
	const query = `SELECT id, title, schema, active, archived_at, created_at, updated_at
        FROM forms WHERE active = TRUE AND archived_at IS NULL ORDER BY title`
	var forms []models.Form
	if err := r.db.SelectContext(ctx, &forms, query); err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

// FindByID returns a form by primary key.
func (r *FormRepository) FindByID(ctx context.Context, id string) (*models.Form, error) {
	const query = `SELECT id, title, schema, active, archived_at, created_at, updated_at FROM forms WHERE id = $1`
	var form models.Form
	if err := r.db.GetContext(ctx, &form, query, id); err != nil {
		return nil, err
	}
	return &form, nil
}

// Create persists a new form definition.
func (r *FormRepository) Create(ctx context.Context, form *models.Form) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now
	const query = `INSERT INTO forms (id, title, schema, active, created_at, updated_at)
        VALUES (:id, :title, :schema, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	return nil
}

// Archive soft-deletes a form.
func (r *FormRepository) Archive(ctx context.Context, id string) error {
	const query = `UPDATE forms SET archived_at = $2, active = FALSE, updated_at = $2 WHERE id = $1 AND archived_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive form: %w", err)
	}
	return nil
}

// CreateSubmission stores one employee's submission.
func (r *FormRepository) CreateSubmission(ctx context.Context, submission *models.FormSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO form_submissions (id, form_id, employee_id, payload, submitted_at)
        VALUES (:id, :form_id, :employee_id, :payload, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// ListSubmissions returns a form's submissions, newest first.
func (r *FormRepository) ListSubmissions(ctx context.Context, formID string) ([]models.FormSubmission, error) {
	const query = `SELECT id, form_id, employee_id, payload, submitted_at
        FROM form_submissions WHERE form_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.FormSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, formID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}
