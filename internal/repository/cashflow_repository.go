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

// CashflowRepository persists the append-only finance ledger.
type CashflowRepository struct {
	db *sqlx.DB
}

// NewCashflowRepository constructs the repository.
func NewCashflowRepository(db *sqlx.DB) *CashflowRepository {
	return &CashflowRepository{db: db}
}

// Append records one ledger entry. Entries are never updated or deleted.
func (r *CashflowRepository) Append(ctx context.Context, entry *models.CashflowEntry) error {
	return insertCashflow(ctx, r.db, entry)
}

func insertCashflow(ctx context.Context, ext sqlx.ExtContext, entry *models.CashflowEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = now
	}
	const query = `INSERT INTO cashflow_entries (id, category, amount, description, recorded_by, voyage_id, occurred_at, created_at)
        VALUES (:id, :category, :amount, :description, :recorded_by, :voyage_id, :occurred_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("append cashflow entry: %w", err)
	}
	return nil
}

// List returns ledger entries oldest first, with the total count and the
// balance carried in from entries before the requested window.
func (r *CashflowRepository) List(ctx context.Context, filter models.CashflowFilter) ([]models.CashflowEntry, int, int64, error) {
	var conditions []string
	var args []interface{}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", len(args)+1))
		args = append(args, *filter.To)
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
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, category, amount, description, recorded_by, voyage_id, occurred_at, created_at
        FROM cashflow_entries%s ORDER BY occurred_at, created_at LIMIT %d OFFSET %d`, clause, size, offset)
	var entries []models.CashflowEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("list cashflow: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM cashflow_entries" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("count cashflow: %w", err)
	}

	carryQuery := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0) FROM (
        SELECT amount FROM cashflow_entries%s ORDER BY occurred_at, created_at LIMIT %d
        ) carried`, clause, offset)
	var carried int64
	if err := r.db.GetContext(ctx, &carried, carryQuery, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("carry cashflow: %w", err)
	}
	return entries, total, carried, nil
}

// Balance returns the ledger's total balance.
func (r *CashflowRepository) Balance(ctx context.Context) (int64, error) {
	var balance int64
	if err := r.db.GetContext(ctx, &balance, `SELECT COALESCE(SUM(amount), 0) FROM cashflow_entries`); err != nil {
		return 0, fmt.Errorf("cashflow balance: %w", err)
	}
	return balance, nil
}
