package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/frontier-maritime/intranet-api/internal/models"
)

// VoyageRepository handles persistence of voyages and crew assignments.
type VoyageRepository struct {
	db *sqlx.DB
}

// NewVoyageRepository constructs the repository.
func NewVoyageRepository(db *sqlx.DB) *VoyageRepository {
	return &VoyageRepository{db: db}
}

const voyageColumns = `id, name, vessel_name, status, gross_revenue, expenses, departed_at, returned_at, settled_at, notes, created_at, updated_at`

// FindByID returns a voyage by primary key.
func (r *VoyageRepository) FindByID(ctx context.Context, id string) (*models.Voyage, error) {
	query := fmt.Sprintf(`SELECT %s FROM voyages WHERE id = $1`, voyageColumns)
	var voyage models.Voyage
	if err := r.db.GetContext(ctx, &voyage, query, id); err != nil {
		return nil, err
	}
	return &voyage, nil
}

// List returns voyages filtered by the provided criteria.
func (r *VoyageRepository) List(ctx context.Context, filter models.VoyageFilter) ([]models.Voyage, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR vessel_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM voyages%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		voyageColumns, clause, size, offset)
	var voyages []models.Voyage
	if err := r.db.SelectContext(ctx, &voyages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list voyages: %w", err)
	}
	countQuery := "SELECT COUNT(*) FROM voyages" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count voyages: %w", err)
	}
	return voyages, total, nil
}

// Create persists a new voyage.
func (r *VoyageRepository) Create(ctx context.Context, voyage *models.Voyage) error {
	if voyage.ID == "" {
		voyage.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	voyage.CreatedAt = now
	voyage.UpdatedAt = now
	const query = `INSERT INTO voyages (id, name, vessel_name, status, gross_revenue, expenses, departed_at, returned_at, notes, created_at, updated_at)
        VALUES (:id, :name, :vessel_name, :status, :gross_revenue, :expenses, :departed_at, :returned_at, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, voyage); err != nil {
		return fmt.Errorf("create voyage: %w", err)
	}
	return nil
}

// Update mutates voyage attributes.
func (r *VoyageRepository) Update(ctx context.Context, voyage *models.Voyage) error {
	voyage.UpdatedAt = time.Now().UTC()
	const query = `UPDATE voyages SET name = :name, vessel_name = :vessel_name, status = :status,
        gross_revenue = :gross_revenue, expenses = :expenses, departed_at = :departed_at,
        returned_at = :returned_at, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, voyage); err != nil {
		return fmt.Errorf("update voyage: %w", err)
	}
	return nil
}

// ListCrew returns the crew assignments for a voyage.
func (r *VoyageRepository) ListCrew(ctx context.Context, voyageID string) ([]models.VoyageCrew, error) {
	const query = `SELECT id, voyage_id, employee_id, share_pct, payout FROM voyage_crew WHERE voyage_id = $1`
	var crew []models.VoyageCrew
	if err := r.db.SelectContext(ctx, &crew, query, voyageID); err != nil {
		return nil, fmt.Errorf("list crew: %w", err)
	}
	return crew, nil
}

// AssignCrew upserts a crew assignment keyed by (voyage_id, employee_id).
func (r *VoyageRepository) AssignCrew(ctx context.Context, crew *models.VoyageCrew) error {
	if crew.ID == "" {
		crew.ID = uuid.NewString()
	}
	const query = `INSERT INTO voyage_crew (id, voyage_id, employee_id, share_pct, payout)
        VALUES (:id, :voyage_id, :employee_id, :share_pct, :payout)
        ON CONFLICT (voyage_id, employee_id) DO UPDATE SET share_pct = EXCLUDED.share_pct`
	if _, err := r.db.NamedExecContext(ctx, query, crew); err != nil {
		return fmt.Errorf("assign crew: %w", err)
	}
	return nil
}

// ApplySettlement atomically records the settlement: voyage status flip, crew
// payouts, the cashflow ledger entry and one audit event.
func (r *VoyageRepository) ApplySettlement(ctx context.Context, settlement *models.Settlement, settledAt time.Time, entry *models.CashflowEntry, audit *models.AuditEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const flip = `UPDATE voyages SET status = $2, settled_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, flip, settlement.VoyageID, models.VoyageSettled, settledAt, models.VoyageCompleted)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("settle voyage: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("settle voyage: not in completed state")
	}
	for _, crew := range settlement.Crew {
		if _, err := tx.ExecContext(ctx,
			`UPDATE voyage_crew SET payout = $3 WHERE voyage_id = $1 AND employee_id = $2`,
			crew.VoyageID, crew.EmployeeID, crew.Payout); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record payout: %w", err)
		}
	}
	if entry != nil {
		if err := insertCashflow(ctx, tx, entry); err != nil {
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
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}
