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

// RoleRepository handles persistence of roles, assignments and the mapping
// tables consumed by capability resolution.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns all roles in sort order with their granted permission keys.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	const query = `SELECT id, name, sort_order, created_at, updated_at FROM roles ORDER BY sort_order, name`
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	if len(roles) == 0 {
		return roles, nil
	}

	ids := make([]string, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
	}
	grants, err := r.FindPermissionsGroupedByRole(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		roles[i].Permissions = grants[roles[i].ID]
	}
	return roles, nil
}

// FindByID returns one role with its permissions.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	const query = `SELECT id, name, sort_order, created_at, updated_at FROM roles WHERE id = $1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, err
	}
	grants, err := r.FindPermissionsGroupedByRole(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	role.Permissions = grants[id]
	return &role, nil
}

// FindByName returns one role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT id, name, sort_order, created_at, updated_at FROM roles WHERE name = $1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		return nil, err
	}
	return &role, nil
}

// Create persists a role and its permission grants in one transaction.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insertRole = `INSERT INTO roles (id, name, sort_order, created_at, updated_at)
        VALUES (:id, :name, :sort_order, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRole, role); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create role: %w", err)
	}
	for _, key := range role.Permissions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			role.ID, key); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("grant permission: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role: %w", err)
	}
	return nil
}

// ReplacePermissions swaps a role's grant set atomically.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, keys []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear permissions: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_key) VALUES ($1, $2)`, roleID, key); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("grant permission: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE roles SET updated_at = $2 WHERE id = $1`, roleID, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("touch role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit permissions: %w", err)
	}
	return nil
}

// Assign grants a role directly to an identity, idempotently.
func (r *RoleRepository) Assign(ctx context.Context, identityID, roleID string) error {
	const query = `INSERT INTO role_assignments (id, identity_id, role_id, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (identity_id, role_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), identityID, roleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Unassign removes a direct role assignment.
func (r *RoleRepository) Unassign(ctx context.Context, identityID, roleID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM role_assignments WHERE identity_id = $1 AND role_id = $2`, identityID, roleID); err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}
	return nil
}

// MapGroup maps an external group to a role; a group maps to exactly one role.
func (r *RoleRepository) MapGroup(ctx context.Context, groupID, roleID string) error {
	const query = `INSERT INTO group_role_mappings (id, group_id, role_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (group_id) DO UPDATE SET role_id = EXCLUDED.role_id`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), groupID, roleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("map group: %w", err)
	}
	return nil
}

// UnmapGroup removes an external group mapping.
func (r *RoleRepository) UnmapGroup(ctx context.Context, groupID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_role_mappings WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("unmap group: %w", err)
	}
	return nil
}

// SetRankPermissions replaces the permission keys granted by a rank.
func (r *RoleRepository) SetRankPermissions(ctx context.Context, rank string, keys []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rank_permissions WHERE LOWER(rank) = LOWER($1)`, rank); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear rank permissions: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rank_permissions (id, rank, permission_key, created_at) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), rank, key, time.Now().UTC()); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("grant rank permission: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rank permissions: %w", err)
	}
	return nil
}

// FindRoleIDsByIdentity returns directly assigned role ids.
func (r *RoleRepository) FindRoleIDsByIdentity(ctx context.Context, identityID string) ([]string, error) {
	var ids []string
	const query = `SELECT role_id FROM role_assignments WHERE identity_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, identityID); err != nil {
		return nil, fmt.Errorf("roles by identity: %w", err)
	}
	return ids, nil
}

// FindRoleIDsByGroups returns role ids mapped from the given external groups.
func (r *RoleRepository) FindRoleIDsByGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT DISTINCT role_id FROM group_role_mappings WHERE group_id IN (%s)`,
		strings.Join(placeholders, ","))
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("roles by groups: %w", err)
	}
	return ids, nil
}

// FindPermissionsByRoleIDs returns the union of permission keys granted by
// the given roles.
func (r *RoleRepository) FindPermissionsByRoleIDs(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roleIDs))
	args := make([]interface{}, len(roleIDs))
	for i, id := range roleIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT DISTINCT permission_key FROM role_permissions WHERE role_id IN (%s)`,
		strings.Join(placeholders, ","))
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("permissions by roles: %w", err)
	}
	return keys, nil
}

// FindPermissionsByRank returns keys granted by the rank mapping table.
// Matching is case-insensitive exact.
func (r *RoleRepository) FindPermissionsByRank(ctx context.Context, rank string) ([]string, error) {
	if rank == "" {
		return nil, nil
	}
	var keys []string
	const query = `SELECT permission_key FROM rank_permissions WHERE LOWER(rank) = LOWER($1)`
	if err := r.db.SelectContext(ctx, &keys, query, rank); err != nil {
		return nil, fmt.Errorf("permissions by rank: %w", err)
	}
	return keys, nil
}

// FindPermissionsGroupedByRole returns grants keyed by role id.
func (r *RoleRepository) FindPermissionsGroupedByRole(ctx context.Context, roleIDs []string) (map[string][]string, error) {
	if len(roleIDs) == 0 {
		return map[string][]string{}, nil
	}
	placeholders := make([]string, len(roleIDs))
	args := make([]interface{}, len(roleIDs))
	for i, id := range roleIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT role_id, permission_key FROM role_permissions WHERE role_id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("permissions grouped by role: %w", err)
	}
	defer rows.Close()
	result := make(map[string][]string, len(roleIDs))
	for rows.Next() {
		var grant models.RolePermission
		if err := rows.StructScan(&grant); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		result[grant.RoleID] = append(result[grant.RoleID], grant.PermissionKey)
	}
	return result, rows.Err()
}
