package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type voyageRepository interface {
	FindByID(ctx context.Context, id string) (*models.Voyage, error)
	List(ctx context.Context, filter models.VoyageFilter) ([]models.Voyage, int, error)
	Create(ctx context.Context, voyage *models.Voyage) error
	Update(ctx context.Context, voyage *models.Voyage) error
	ListCrew(ctx context.Context, voyageID string) ([]models.VoyageCrew, error)
	AssignCrew(ctx context.Context, crew *models.VoyageCrew) error
	ApplySettlement(ctx context.Context, settlement *models.Settlement, settledAt time.Time, entry *models.CashflowEntry, audit *models.AuditEvent) error
}

// VoyageService manages voyages, crew shares and settlement. Settlement
// splits the net result across crew by share percentage, books the remainder
// to the company and writes everything, including the ledger entry, in one
// transaction.
type VoyageService struct {
	voyages   voyageRepository
	validator *validator.Validate
	logger    *zap.Logger

	// companyShareFloor is the minimum percentage the company retains;
	// crew shares may not add up past its complement.
	companyShareFloor int
}

// NewVoyageService constructs a VoyageService instance.
func NewVoyageService(voyages voyageRepository, validate *validator.Validate, logger *zap.Logger, companyShareFloor int) *VoyageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if companyShareFloor < 0 || companyShareFloor > 100 {
		companyShareFloor = 0
	}
	return &VoyageService{voyages: voyages, validator: validate, logger: logger, companyShareFloor: companyShareFloor}
}

// List returns voyages matching the filter.
func (s *VoyageService) List(ctx context.Context, filter models.VoyageFilter) ([]models.Voyage, int, error) {
	voyages, total, err := s.voyages.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list voyages")
	}
	return voyages, total, nil
}

// Get returns one voyage with its crew assignments.
func (s *VoyageService) Get(ctx context.Context, id string) (*models.Voyage, []models.VoyageCrew, error) {
	voyage, err := s.voyages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "voyage not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}
	crew, err := s.voyages.ListCrew(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load crew")
	}
	return voyage, crew, nil
}

// Create persists a new voyage in the planned state.
func (s *VoyageService) Create(ctx context.Context, voyage *models.Voyage) (*models.Voyage, error) {
	if voyage.Name == "" || voyage.VesselName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voyage name and vessel are required")
	}
	voyage.Status = models.VoyagePlanned
	if err := s.voyages.Create(ctx, voyage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create voyage")
	}
	return voyage, nil
}

// Update mutates a voyage. Settled voyages are immutable.
func (s *VoyageService) Update(ctx context.Context, voyage *models.Voyage) error {
	current, err := s.voyages.FindByID(ctx, voyage.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "voyage not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}
	if current.Status == models.VoyageSettled {
		return appErrors.Clone(appErrors.ErrConflict, "settled voyages are immutable")
	}
	if voyage.Status != current.Status && !current.Status.CanTransition(voyage.Status) {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move voyage from %s to %s", current.Status, voyage.Status))
	}
	if err := s.voyages.Update(ctx, voyage); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update voyage")
	}
	return nil
}

// AssignCrew sets an employee's share on a voyage. The aggregate share check
// runs against the post-assignment crew list.
func (s *VoyageService) AssignCrew(ctx context.Context, voyageID, employeeID string, sharePct int) error {
	if sharePct < 0 || sharePct > 100 {
		return appErrors.Clone(appErrors.ErrValidation, "share percentage must be between 0 and 100")
	}
	voyage, err := s.voyages.FindByID(ctx, voyageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "voyage not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}
	if voyage.Status == models.VoyageSettled {
		return appErrors.Clone(appErrors.ErrConflict, "settled voyages are immutable")
	}
	crew, err := s.voyages.ListCrew(ctx, voyageID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load crew")
	}
	sum := sharePct
	for _, c := range crew {
		if c.EmployeeID != employeeID {
			sum += c.SharePct
		}
	}
	if sum > 100-s.companyShareFloor {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("crew shares may not exceed %d%%", 100-s.companyShareFloor))
	}
	if err := s.voyages.AssignCrew(ctx, &models.VoyageCrew{VoyageID: voyageID, EmployeeID: employeeID, SharePct: sharePct}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign crew")
	}
	return nil
}

// Settle computes and records the settlement for a completed voyage: crew
// payouts from the net result, the company remainder, a ledger entry and the
// audit event, all atomically. The guarded status flip makes settlement
// idempotent under concurrent requests.
func (s *VoyageService) Settle(ctx context.Context, actor *authz.Context, voyageID string) (*models.Settlement, error) {
	voyage, err := s.voyages.FindByID(ctx, voyageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "voyage not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}
	if voyage.Status != models.VoyageCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only completed voyages can be settled")
	}
	crew, err := s.voyages.ListCrew(ctx, voyageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load crew")
	}

	settlement := ComputeSettlement(voyage, crew)
	now := time.Now().UTC()
	entry := &models.CashflowEntry{
		Category:    "voyage_settlement",
		Amount:      settlement.CompanyShare,
		Description: fmt.Sprintf("Settlement of voyage %s (%s)", voyage.Name, voyage.VesselName),
		RecordedBy:  actorID(actor),
		VoyageID:    &voyage.ID,
		OccurredAt:  now,
	}
	audit := &models.AuditEvent{
		ActorID:  actorID(actor),
		Action:   models.AuditActionVoyageSettled,
		Metadata: mustJSON(map[string]interface{}{"voyage_id": voyage.ID, "net": settlement.Net}),
	}
	if err := s.voyages.ApplySettlement(ctx, settlement, now, entry, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "settlement failed")
	}
	return settlement, nil
}

// ComputeSettlement splits the voyage's net result across crew shares.
// Payouts round down; the company keeps the remainder, so the split always
// sums exactly to the net.
func ComputeSettlement(voyage *models.Voyage, crew []models.VoyageCrew) *models.Settlement {
	net := voyage.GrossRevenue - voyage.Expenses
	settlement := &models.Settlement{VoyageID: voyage.ID, Net: net}
	var paid int64
	for _, c := range crew {
		payout := int64(0)
		if net > 0 {
			payout = net * int64(c.SharePct) / 100
		}
		c.Payout = payout
		paid += payout
		settlement.Crew = append(settlement.Crew, c)
	}
	settlement.CompanyShare = net - paid
	return settlement
}
