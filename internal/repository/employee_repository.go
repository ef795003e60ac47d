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

// EmployeeRepository handles persistence of employee records.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, identity_id, username, serial, rank, grade, user_status,
        college_start_at, college_due_at, college_passed_at, created_at, updated_at`

// FindByID returns an employee by primary key.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE id = $1`, employeeColumns)
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByIdentity returns an employee by external identity id.
func (r *EmployeeRepository) FindByIdentity(ctx context.Context, identityID string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE identity_id = $1`, employeeColumns)
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, identityID); err != nil {
		return nil, err
	}
	return &employee, nil
}

// List returns employees filtered by the provided criteria.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("user_status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Rank != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(rank) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Rank)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR serial ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"username":   "username",
		"rank":       "rank",
		"created_at": "created_at",
	}
	sortBy := allowedSorts[filter.SortBy]
	if sortBy == "" {
		sortBy = "username"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s FROM employees%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		employeeColumns, clause, sortBy, order, size, offset)

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM employees" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// Create persists a new employee record.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now
	const query = `INSERT INTO employees (id, identity_id, username, serial, rank, grade, user_status,
        college_start_at, college_due_at, college_passed_at, created_at, updated_at)
        VALUES (:id, :identity_id, :username, :serial, :rank, :grade, :user_status,
        :college_start_at, :college_due_at, :college_passed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update mutates display attributes of an existing employee.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET username = :username, serial = :serial, rank = :rank,
        grade = :grade, user_status = :user_status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, employee)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("update employee: no row for %s", employee.ID)
	}
	return nil
}
