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

// AuditRepository appends audit trail events. Events are never updated or
// deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append records one audit event.
func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	return appendAudit(ctx, r.db, event)
}

// List returns audit events newest first, filtered by the given criteria.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, int, error) {
	var conditions []string
	var args []interface{}
	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT id, employee_id, actor_id, action, metadata, ip_address, created_at
        FROM audit_events%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, clause, size, offset)
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	countQuery := "SELECT COUNT(*) FROM audit_events" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}
	return events, total, nil
}

// appendAudit writes an audit event through any sqlx executor, so composite
// repository transactions can include the event in the same atomic batch.
func appendAudit(ctx context.Context, ext sqlx.ExtContext, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events (id, employee_id, actor_id, action, metadata, ip_address, created_at)
        VALUES (:id, :employee_id, :actor_id, :action, :metadata, :ip_address, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
