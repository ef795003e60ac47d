package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockEmployeeRepo struct {
	byID       map[string]models.Employee
	byIdentity map[string]models.Employee

	created *models.Employee
	updated *models.Employee
}

func (m *mockEmployeeRepo) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	if e, ok := m.byID[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeRepo) FindByIdentity(ctx context.Context, identityID string) (*models.Employee, error) {
	if e, ok := m.byIdentity[identityID]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeRepo) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	var out []models.Employee
	for _, e := range m.byID {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockEmployeeRepo) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = "emp-new"
	}
	m.created = employee
	return nil
}

func (m *mockEmployeeRepo) Update(ctx context.Context, employee *models.Employee) error {
	m.updated = employee
	return nil
}

type mockProvisioner struct {
	provisioned []string
	err         error
}

func (m *mockProvisioner) ProvisionEnrollments(ctx context.Context, employeeID string) error {
	if m.err != nil {
		return m.err
	}
	m.provisioned = append(m.provisioned, employeeID)
	return nil
}

type mockAuditAppender struct {
	events []models.AuditEvent
}

func (m *mockAuditAppender) Append(ctx context.Context, event *models.AuditEvent) error {
	m.events = append(m.events, *event)
	return nil
}

func TestEmployeeServiceAcceptProvisionsTrainingWindow(t *testing.T) {
	repo := &mockEmployeeRepo{}
	college := &mockProvisioner{}
	audits := &mockAuditAppender{}
	svc := NewEmployeeService(repo, college, audits, nil, zap.NewNop(), 14)

	employee, err := svc.Accept(context.Background(), managerContext(t, nil), models.AcceptEmployeeRequest{
		IdentityID: "id-77", Username: "jdoe", Serial: "S-1001", Rank: "Deckhand",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplicantAccepted, employee.UserStatus)
	assert.True(t, employee.Restricted())
	require.NotNil(t, employee.CollegeStartAt)
	require.NotNil(t, employee.CollegeDueAt)
	assert.WithinDuration(t, employee.CollegeStartAt.AddDate(0, 0, 14), *employee.CollegeDueAt, time.Second)

	require.Len(t, college.provisioned, 1)
	assert.Equal(t, employee.ID, college.provisioned[0])
	require.Len(t, audits.events, 1)
	assert.Equal(t, models.AuditActionEmployeeAccepted, audits.events[0].Action)
}

func TestEmployeeServiceAcceptHonoursDueDays(t *testing.T) {
	repo := &mockEmployeeRepo{}
	svc := NewEmployeeService(repo, &mockProvisioner{}, &mockAuditAppender{}, nil, zap.NewNop(), 14)

	employee, err := svc.Accept(context.Background(), nil, models.AcceptEmployeeRequest{
		IdentityID: "id-78", Username: "asmith", Serial: "S-1002", DueDays: 30,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, employee.CollegeStartAt.AddDate(0, 0, 30), *employee.CollegeDueAt, time.Second)
}

func TestEmployeeServiceAcceptRejectsDuplicateIdentity(t *testing.T) {
	repo := &mockEmployeeRepo{byIdentity: map[string]models.Employee{
		"id-77": {ID: "emp1", IdentityID: "id-77"},
	}}
	svc := NewEmployeeService(repo, &mockProvisioner{}, &mockAuditAppender{}, nil, zap.NewNop(), 14)

	_, err := svc.Accept(context.Background(), nil, models.AcceptEmployeeRequest{
		IdentityID: "id-77", Username: "jdoe", Serial: "S-1001",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestEmployeeServiceAcceptValidatesPayload(t *testing.T) {
	svc := NewEmployeeService(&mockEmployeeRepo{}, &mockProvisioner{}, &mockAuditAppender{}, nil, zap.NewNop(), 14)

	_, err := svc.Accept(context.Background(), nil, models.AcceptEmployeeRequest{Username: "jdoe"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEmployeeServiceUpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo := &mockEmployeeRepo{byID: map[string]models.Employee{
		"emp1": {ID: "emp1", Username: "jdoe", Serial: "S-1001", Rank: "Deckhand", Grade: "C", UserStatus: models.StatusActiveStaff},
	}}
	audits := &mockAuditAppender{}
	svc := NewEmployeeService(repo, &mockProvisioner{}, audits, nil, zap.NewNop(), 14)

	rank := "Bosun"
	updated, err := svc.Update(context.Background(), managerContext(t, nil), "emp1", models.UpdateEmployeeRequest{Rank: &rank})
	require.NoError(t, err)
	assert.Equal(t, "Bosun", updated.Rank)
	assert.Equal(t, "jdoe", updated.Username)
	assert.Equal(t, "S-1001", updated.Serial)
	assert.Equal(t, models.StatusActiveStaff, updated.UserStatus)
	require.NotNil(t, repo.updated)
	require.Len(t, audits.events, 1)
	assert.Equal(t, models.AuditActionEmployeeUpdated, audits.events[0].Action)
}

func TestEmployeeServiceUpdateUnknownEmployee(t *testing.T) {
	svc := NewEmployeeService(&mockEmployeeRepo{}, &mockProvisioner{}, &mockAuditAppender{}, nil, zap.NewNop(), 14)

	_, err := svc.Update(context.Background(), nil, "missing", models.UpdateEmployeeRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
