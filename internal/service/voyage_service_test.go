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

type mockVoyageRepo struct {
	voyages map[string]models.Voyage
	crew    map[string][]models.VoyageCrew

	assigned   *models.VoyageCrew
	settlement *models.Settlement
	entry      *models.CashflowEntry
	audit      *models.AuditEvent
	settledAt  time.Time
}

func (m *mockVoyageRepo) FindByID(ctx context.Context, id string) (*models.Voyage, error) {
	if v, ok := m.voyages[id]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVoyageRepo) List(ctx context.Context, filter models.VoyageFilter) ([]models.Voyage, int, error) {
	var out []models.Voyage
	for _, v := range m.voyages {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockVoyageRepo) Create(ctx context.Context, voyage *models.Voyage) error {
	if m.voyages == nil {
		m.voyages = make(map[string]models.Voyage)
	}
	if voyage.ID == "" {
		voyage.ID = "v-new"
	}
	m.voyages[voyage.ID] = *voyage
	return nil
}

func (m *mockVoyageRepo) Update(ctx context.Context, voyage *models.Voyage) error {
	m.voyages[voyage.ID] = *voyage
	return nil
}

func (m *mockVoyageRepo) ListCrew(ctx context.Context, voyageID string) ([]models.VoyageCrew, error) {
	return m.crew[voyageID], nil
}

func (m *mockVoyageRepo) AssignCrew(ctx context.Context, crew *models.VoyageCrew) error {
	m.assigned = crew
	return nil
}

func (m *mockVoyageRepo) ApplySettlement(ctx context.Context, settlement *models.Settlement, settledAt time.Time, entry *models.CashflowEntry, audit *models.AuditEvent) error {
	m.settlement = settlement
	m.settledAt = settledAt
	m.entry = entry
	m.audit = audit
	return nil
}

func TestComputeSettlementSumsExactlyToNet(t *testing.T) {
	voyage := &models.Voyage{ID: "v1", GrossRevenue: 100003, Expenses: 3}
	crew := []models.VoyageCrew{
		{EmployeeID: "emp1", SharePct: 33},
		{EmployeeID: "emp2", SharePct: 33},
	}

	settlement := ComputeSettlement(voyage, crew)
	require.Len(t, settlement.Crew, 2)
	assert.Equal(t, int64(100000), settlement.Net)
	assert.Equal(t, int64(33000), settlement.Crew[0].Payout)
	assert.Equal(t, int64(33000), settlement.Crew[1].Payout)
	assert.Equal(t, int64(34000), settlement.CompanyShare)

	var paid int64
	for _, c := range settlement.Crew {
		paid += c.Payout
	}
	assert.Equal(t, settlement.Net, paid+settlement.CompanyShare)
}

func TestComputeSettlementPayoutsRoundDown(t *testing.T) {
	voyage := &models.Voyage{ID: "v1", GrossRevenue: 101, Expenses: 0}
	crew := []models.VoyageCrew{
		{EmployeeID: "emp1", SharePct: 33},
		{EmployeeID: "emp2", SharePct: 33},
		{EmployeeID: "emp3", SharePct: 33},
	}

	settlement := ComputeSettlement(voyage, crew)
	for _, c := range settlement.Crew {
		assert.Equal(t, int64(33), c.Payout)
	}
	// 101 - 3*33 = 2 stays with the company.
	assert.Equal(t, int64(2), settlement.CompanyShare)
}

func TestComputeSettlementNegativeNetSkipsPayouts(t *testing.T) {
	voyage := &models.Voyage{ID: "v1", GrossRevenue: 500, Expenses: 900}
	crew := []models.VoyageCrew{{EmployeeID: "emp1", SharePct: 50}}

	settlement := ComputeSettlement(voyage, crew)
	assert.Equal(t, int64(-400), settlement.Net)
	assert.Equal(t, int64(0), settlement.Crew[0].Payout)
	// The company carries the full loss.
	assert.Equal(t, int64(-400), settlement.CompanyShare)
}

func TestVoyageServiceAssignCrewEnforcesShareCap(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {ID: "v1", Status: models.VoyageUnderway}},
		crew: map[string][]models.VoyageCrew{
			"v1": {{EmployeeID: "emp1", SharePct: 40}},
		},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 30)

	err := svc.AssignCrew(context.Background(), "v1", "emp2", 35)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	require.NoError(t, svc.AssignCrew(context.Background(), "v1", "emp2", 30))
	require.NotNil(t, repo.assigned)
	assert.Equal(t, 30, repo.assigned.SharePct)
}

func TestVoyageServiceAssignCrewReplacesOwnShare(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {ID: "v1", Status: models.VoyagePlanned}},
		crew: map[string][]models.VoyageCrew{
			"v1": {{EmployeeID: "emp1", SharePct: 60}},
		},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 30)

	// emp1's existing 60% does not count against its own reassignment.
	require.NoError(t, svc.AssignCrew(context.Background(), "v1", "emp1", 70))
}

func TestVoyageServiceSettleRequiresCompleted(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {ID: "v1", Status: models.VoyageUnderway}},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 0)

	_, err := svc.Settle(context.Background(), managerContext(t, nil), "v1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestVoyageServiceSettleWritesLedgerAndAudit(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {
			ID: "v1", Name: "Northern Run", VesselName: "MV Aurora",
			Status: models.VoyageCompleted, GrossRevenue: 10000, Expenses: 2000,
		}},
		crew: map[string][]models.VoyageCrew{
			"v1": {{EmployeeID: "emp1", SharePct: 25}},
		},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 0)
	actor := managerContext(t, &models.Employee{ID: "mgr1", UserStatus: models.StatusActiveStaff})

	settlement, err := svc.Settle(context.Background(), actor, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), settlement.Net)
	assert.Equal(t, int64(2000), settlement.Crew[0].Payout)
	assert.Equal(t, int64(6000), settlement.CompanyShare)

	require.NotNil(t, repo.entry)
	assert.Equal(t, "voyage_settlement", repo.entry.Category)
	assert.Equal(t, settlement.CompanyShare, repo.entry.Amount)
	require.NotNil(t, repo.entry.VoyageID)
	assert.Equal(t, "v1", *repo.entry.VoyageID)
	require.NotNil(t, repo.audit)
	assert.Equal(t, models.AuditActionVoyageSettled, repo.audit.Action)
}

func TestVoyageServiceUpdateRejectsSettled(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {ID: "v1", Status: models.VoyageSettled}},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 0)

	err := svc.Update(context.Background(), &models.Voyage{ID: "v1", Status: models.VoyageSettled, Notes: "edited"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestVoyageServiceUpdateRejectsBackwardTransition(t *testing.T) {
	repo := &mockVoyageRepo{
		voyages: map[string]models.Voyage{"v1": {ID: "v1", Status: models.VoyageCompleted}},
	}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 0)

	err := svc.Update(context.Background(), &models.Voyage{ID: "v1", Status: models.VoyagePlanned})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestVoyageServiceCreateDefaultsToPlanned(t *testing.T) {
	repo := &mockVoyageRepo{}
	svc := NewVoyageService(repo, nil, zap.NewNop(), 0)

	voyage, err := svc.Create(context.Background(), &models.Voyage{Name: "Run", VesselName: "MV Test", Status: models.VoyageCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.VoyagePlanned, voyage.Status)

	_, err = svc.Create(context.Background(), &models.Voyage{Name: "missing vessel"})
	require.Error(t, err)
}
