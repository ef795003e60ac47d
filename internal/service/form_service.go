package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type formRepository interface {
	ListActive(ctx context.Context) ([]models.Form, error)
	FindByID(ctx context.Context, id string) (*models.Form, error)
	Create(ctx context.Context, form *models.Form) error
	Archive(ctx context.Context, id string) error
	CreateSubmission(ctx context.Context, submission *models.FormSubmission) error
	ListSubmissions(ctx context.Context, formID string) ([]models.FormSubmission, error)
}

// FormService manages intranet forms and their submissions.
type FormService struct {
	forms  formRepository
	logger *zap.Logger
}

// NewFormService constructs a FormService instance.
func NewFormService(forms formRepository, logger *zap.Logger) *FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{forms: forms, logger: logger}
}

// ListActive returns active forms.
func (s *FormService) ListActive(ctx context.Context) ([]models.Form, error) {
	forms, err := s.forms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forms")
	}
	return forms, nil
}

// Get returns one form.
func (s *FormService) Get(ctx context.Context, id string) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	return form, nil
}

// Create persists a new form definition. The schema must be valid JSON.
func (s *FormService) Create(ctx context.Context, form *models.Form) (*models.Form, error) {
	if form.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "form title is required")
	}
	if len(form.Schema) > 0 && !json.Valid(form.Schema) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "form schema must be valid JSON")
	}
	form.Active = true
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create form")
	}
	return form, nil
}

// Archive deactivates a form. Submissions are kept.
func (s *FormService) Archive(ctx context.Context, id string) error {
	if err := s.forms.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive form")
	}
	return nil
}

// Submit records one employee's submission against an active form.
func (s *FormService) Submit(ctx context.Context, employeeID, formID string, payload []byte) (*models.FormSubmission, error) {
	form, err := s.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !form.Active || form.ArchivedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "form is no longer accepting submissions")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission payload must be valid JSON")
	}
	submission := &models.FormSubmission{FormID: formID, EmployeeID: employeeID, Payload: payload}
	if err := s.forms.CreateSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}
	return submission, nil
}

// ListSubmissions returns a form's submissions, newest first.
func (s *FormService) ListSubmissions(ctx context.Context, formID string) ([]models.FormSubmission, error) {
	submissions, err := s.forms.ListSubmissions(ctx, formID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}
