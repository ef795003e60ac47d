package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type roleResolverRepository interface {
	FindRoleIDsByIdentity(ctx context.Context, identityID string) ([]string, error)
	FindRoleIDsByGroups(ctx context.Context, groupIDs []string) ([]string, error)
	FindPermissionsByRoleIDs(ctx context.Context, roleIDs []string) ([]string, error)
	FindPermissionsByRank(ctx context.Context, rank string) ([]string, error)
}

type employeeReader interface {
	FindByIdentity(ctx context.Context, identityID string) (*models.Employee, error)
}

type capabilityCache interface {
	GetCapabilities(ctx context.Context, identityID string) (*models.Capabilities, bool)
	SetCapabilities(ctx context.Context, identityID string, caps *models.Capabilities)
}

// ResolverService computes effective permission sets for principals. A
// storage failure during resolution fails the whole request with a retryable
// service-unavailable error: it never silently de-privileges or
// over-privileges.
type ResolverService struct {
	roles     roleResolverRepository
	employees employeeReader
	catalog   *authz.Catalog
	cache     capabilityCache
	logger    *zap.Logger
}

// NewResolverService constructs a ResolverService.
func NewResolverService(roles roleResolverRepository, employees employeeReader, catalog *authz.Catalog, cache capabilityCache, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{roles: roles, employees: employees, catalog: catalog, cache: cache, logger: logger}
}

// ResolveCapabilities computes the principal's role ids and the union of
// role-granted and rank-granted permission keys, expanded one alias hop.
func (s *ResolverService) ResolveCapabilities(ctx context.Context, identityID string, groupIDs []string, rank string) (*models.Capabilities, error) {
	direct, err := s.roles.FindRoleIDsByIdentity(ctx, identityID)
	if err != nil {
		return nil, s.unavailable(err, "resolve direct roles")
	}
	mapped, err := s.roles.FindRoleIDsByGroups(ctx, groupIDs)
	if err != nil {
		return nil, s.unavailable(err, "resolve group roles")
	}

	seen := make(map[string]struct{}, len(direct)+len(mapped))
	roleIDs := make([]string, 0, len(direct)+len(mapped))
	for _, id := range append(direct, mapped...) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			roleIDs = append(roleIDs, id)
		}
	}

	rolePerms, err := s.roles.FindPermissionsByRoleIDs(ctx, roleIDs)
	if err != nil {
		return nil, s.unavailable(err, "resolve role permissions")
	}
	rankPerms, err := s.roles.FindPermissionsByRank(ctx, rank)
	if err != nil {
		return nil, s.unavailable(err, "resolve rank permissions")
	}

	return &models.Capabilities{
		RoleIDs:     roleIDs,
		Permissions: s.catalog.Expand(append(rolePerms, rankPerms...)),
	}, nil
}

// BuildContext assembles the request authorization context for a principal.
// Superusers receive the unconditional bypass set even without an employee
// record; everyone else gets resolver output.
func (s *ResolverService) BuildContext(ctx context.Context, claims *models.JWTClaims) (*authz.Context, error) {
	employee, err := s.lookupEmployee(ctx, claims.IdentityID)
	if err != nil {
		return nil, err
	}

	if claims.Superuser {
		return authz.NewSuperuserContext(s.catalog, employee), nil
	}

	rank := ""
	if employee != nil {
		rank = employee.Rank
	}

	if s.cache != nil {
		if caps, ok := s.cache.GetCapabilities(ctx, claims.IdentityID); ok {
			return authz.NewContext(s.catalog, caps.Permissions, caps.RoleIDs, employee), nil
		}
	}

	caps, err := s.ResolveCapabilities(ctx, claims.IdentityID, claims.GroupIDs, rank)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetCapabilities(ctx, claims.IdentityID, caps)
	}
	return authz.NewContext(s.catalog, caps.Permissions, caps.RoleIDs, employee), nil
}

func (s *ResolverService) lookupEmployee(ctx context.Context, identityID string) (*models.Employee, error) {
	employee, err := s.employees.FindByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, s.unavailable(err, "load employee")
	}
	return employee, nil
}

func (s *ResolverService) unavailable(err error, op string) error {
	s.logger.Error("permission resolution failed", zap.String("op", op), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "permission storage unavailable")
}
