package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type roleAdminRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	FindByID(ctx context.Context, id string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	ReplacePermissions(ctx context.Context, roleID string, keys []string) error
	Assign(ctx context.Context, identityID, roleID string) error
	Unassign(ctx context.Context, identityID, roleID string) error
	MapGroup(ctx context.Context, groupID, roleID string) error
	UnmapGroup(ctx context.Context, groupID string) error
	SetRankPermissions(ctx context.Context, rank string, keys []string) error
}

// RoleService administers roles, assignments and the mapping tables behind
// capability resolution. Every grant mutation validates its keys against the
// catalog and invalidates the capability cache.
type RoleService struct {
	roles     roleAdminRepository
	catalog   *authz.Catalog
	cache     *CapabilityCacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(roles roleAdminRepository, catalog *authz.Catalog, cache *CapabilityCacheService, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{roles: roles, catalog: catalog, cache: cache, validator: validate, logger: logger}
}

// ListCatalog returns the grantable permission keys in display order.
func (s *RoleService) ListCatalog() []authz.PermissionInfo {
	return s.catalog.List()
}

// List returns all roles with their grants.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return roles, nil
}

// Get returns one role.
func (s *RoleService) Get(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return role, nil
}

// Create persists a new role with validated grants.
func (s *RoleService) Create(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if err := s.validateKeys(req.Permissions); err != nil {
		return nil, err
	}
	role := &models.Role{Name: req.Name, SortOrder: req.SortOrder, Permissions: req.Permissions}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	return role, nil
}

// ReplacePermissions swaps a role's grant set and flushes cached capabilities.
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID string, req models.ReplacePermissionsRequest) error {
	if err := s.validateKeys(req.Permissions); err != nil {
		return err
	}
	if _, err := s.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.roles.ReplacePermissions(ctx, roleID, req.Permissions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace permissions")
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// Assign grants a role directly to an identity.
func (s *RoleService) Assign(ctx context.Context, identityID, roleID string) error {
	if _, err := s.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.roles.Assign(ctx, identityID, roleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}
	s.cache.InvalidateIdentity(ctx, identityID)
	return nil
}

// Unassign removes a direct role assignment.
func (s *RoleService) Unassign(ctx context.Context, identityID, roleID string) error {
	if err := s.roles.Unassign(ctx, identityID, roleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign role")
	}
	s.cache.InvalidateIdentity(ctx, identityID)
	return nil
}

// MapGroup maps an external group onto a role.
func (s *RoleService) MapGroup(ctx context.Context, groupID, roleID string) error {
	if _, err := s.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.roles.MapGroup(ctx, groupID, roleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to map group")
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// UnmapGroup removes an external group mapping.
func (s *RoleService) UnmapGroup(ctx context.Context, groupID string) error {
	if err := s.roles.UnmapGroup(ctx, groupID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmap group")
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// SetRankPermissions replaces the keys granted by a rank.
func (s *RoleService) SetRankPermissions(ctx context.Context, rank string, keys []string) error {
	if rank == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rank is required")
	}
	if err := s.validateKeys(keys); err != nil {
		return err
	}
	if err := s.roles.SetRankPermissions(ctx, rank, keys); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set rank permissions")
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// validateKeys rejects grants outside the catalog. The superuser sentinels
// are not grantable.
func (s *RoleService) validateKeys(keys []string) error {
	for _, key := range keys {
		if key == authz.PermSuperAdmin || key == authz.PermAdminOverride {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s cannot be granted through roles", key))
		}
		if !s.catalog.IsKnown(key) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown permission key %s", key))
		}
	}
	return nil
}
